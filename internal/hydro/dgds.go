// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/hydroengine/internal/catalog"
	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
)

// Image operations.
const (
	FunctionLog       = "log"
	FunctionMagnitude = "magnitude"
	FunctionFlowmap   = "flowmap"
	FunctionMosaic    = "mosaic_elevation_datasets"

	gloffisHydro = "projects/dgds-gee/gloffis/hydro"
	gebcoSource  = "projects/dgds-gee/bathymetry/gebco/2019"
)

// sourceMode says how an explicit imageId maps to the source whose
// visualization parameters apply.
type sourceMode int

const (
	// sourceParent: the image is a member of the collection at its parent path.
	sourceParent sourceMode = iota
	// sourceSelf: the image id is the source.
	sourceSelf
)

// dgdsFamily describes one get_<family>_data endpoint.
type dgdsFamily struct {
	prefix         string
	suffix         string
	fixed          string
	mode           sourceMode
	bandRequired   bool
	defaultDataset string
	defaultBand    string
}

var dgdsFamilies = map[string]dgdsFamily{
	"glossis":  {prefix: "projects/dgds-gee/glossis/", mode: sourceParent},
	"gloffis":  {prefix: "projects/dgds-gee/gloffis/", mode: sourceParent, bandRequired: true},
	"metocean": {prefix: "projects/dgds-gee/metocean/waves/", mode: sourceSelf, bandRequired: true},
	"chasm":    {prefix: "projects/dgds-gee/chasm/", mode: sourceParent, bandRequired: true},
	"gtsm":     {prefix: "projects/dgds-gee/gtsm/", mode: sourceSelf, bandRequired: true},
	"crucial":  {prefix: "projects/dgds-gee/crucial/", mode: sourceSelf},
	"msfd":     {prefix: "projects/dgds-gee/msfd/", mode: sourceSelf},
	"gebco": {
		prefix:         "projects/dgds-gee/bathymetry/",
		suffix:         "/2019",
		mode:           sourceSelf,
		defaultDataset: "gebco",
		defaultBand:    "elevation",
	},
	"gll_dtm": {
		fixed:          "users/maartenpronk/gll_dtm/gll_dtm_v1",
		mode:           sourceSelf,
		defaultDataset: "gll_dtm",
		defaultBand:    "elevation",
	},
}

// DGDSFamilies lists the dataset families served by GetDGDSData.
func DGDSFamilies() []string {
	return []string{"glossis", "gloffis", "metocean", "chasm", "gtsm", "crucial", "msfd", "gebco", "gll_dtm"}
}

// DGDSRequest selects an image of a DGDS dataset and how to render it.
// When both are set, ImageID wins over Dataset in every family.
type DGDSRequest struct {
	Dataset   string   `json:"dataset,omitempty"`
	ImageID   string   `json:"imageId,omitempty"`
	Band      string   `json:"band,omitempty"`
	Function  string   `json:"function,omitempty" validate:"omitempty,oneof=log magnitude flowmap"`
	StartDate string   `json:"startDate,omitempty" validate:"omitempty,isodate"`
	EndDate   string   `json:"endDate,omitempty" validate:"omitempty,isodate"`
	Limit     int      `json:"limit,omitempty" validate:"omitempty,gt=0"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Palette   []string `json:"palette,omitempty" validate:"omitempty,dive,hexcolor|len=6"`
}

// ImageRef is one entry of an image time series.
type ImageRef struct {
	ImageID string  `json:"imageId"`
	Date    *string `json:"date"`
}

// GradientStop is one colour of a legend gradient.
type GradientStop struct {
	Offset  string `json:"offset"`
	Opacity int    `json:"opacity"`
	Color   string `json:"color"`
}

// ImageInfo describes a rendered image layer.
type ImageInfo struct {
	earthengine.MapID
	Min            float64        `json:"min"`
	Max            float64        `json:"max"`
	Palette        []string       `json:"palette,omitempty"`
	Band           *string        `json:"band,omitempty"`
	Function       string         `json:"function,omitempty"`
	Source         string         `json:"source,omitempty"`
	Date           *string        `json:"date"`
	ImageID        string         `json:"imageId,omitempty"`
	LinearGradient []GradientStop `json:"linearGradient"`
}

// DGDSResult is ImageInfo plus the time series the image was picked from.
type DGDSResult struct {
	*ImageInfo
	Dataset         *string    `json:"dataset"`
	Band            *string    `json:"band"`
	ImageTimeseries []ImageRef `json:"imageTimeseries"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parentPath(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[:i]
	}
	return id
}

// resolveSource returns the source and image id to render for a family
// request.
func resolveSource(family string, req *DGDSRequest) (source, imageID string, err error) {
	f, ok := dgdsFamilies[family]
	if !ok {
		return "", "", usageErrorf("unknown dataset family %q", family)
	}
	if req.Dataset == "" {
		req.Dataset = f.defaultDataset
	}
	if req.Band == "" {
		req.Band = f.defaultBand
	}
	if f.bandRequired && req.Band == "" {
		return "", "", usageErrorf("band is a required parameter")
	}

	if f.fixed != "" {
		return f.fixed, f.fixed, nil
	}
	if req.Dataset == "" && req.ImageID == "" {
		return "", "", usageErrorf("dataset or imageId required.")
	}
	if req.ImageID != "" {
		if f.mode == sourceParent {
			return parentPath(req.ImageID), req.ImageID, nil
		}
		return req.ImageID, req.ImageID, nil
	}
	return f.prefix + req.Dataset + f.suffix, "", nil
}

// visParams looks up the visualization parameters for a source, falling
// back to the image id.
func (s *Service) visParams(source, imageID string) (*catalog.VisSource, error) {
	if vp, ok := s.catalog.VisParams(source); ok {
		return vp, nil
	}
	if imageID != "" {
		if vp, ok := s.catalog.VisParams(imageID); ok {
			return vp, nil
		}
	}
	return nil, usageErrorf("%s not in assets.", source)
}

// GetDGDSData renders the requested (or most recent) image of a DGDS
// dataset and lists the images available in the date window.
func (s *Service) GetDGDSData(ctx context.Context, family string, req *DGDSRequest) (*DGDSResult, error) {
	source, imageID, err := resolveSource(family, req)
	if err != nil {
		return nil, err
	}
	vp, err := s.visParams(source, imageID)
	if err != nil {
		return nil, err
	}

	series, err := s.ImageCollectionInfo(ctx, source, req.StartDate, req.EndDate, req.Limit)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, usageErrorf("No images returned.")
	}
	if imageID == "" {
		imageID = series[len(series)-1].ImageID
	}

	function := req.Function
	if function == "" && !vp.Function.IsZero() {
		function = vp.Function.Default(req.Band)
	}

	info, err := s.wmsInfo(ctx, wmsRequest{
		imageID:  imageID,
		typ:      vp.Type,
		band:     req.Band,
		function: function,
		min:      req.Min,
		max:      req.Max,
		palette:  req.Palette,
	})
	if err != nil {
		return nil, err
	}
	return &DGDSResult{
		ImageInfo:       info,
		Dataset:         strPtr(req.Dataset),
		Band:            strPtr(req.Band),
		ImageTimeseries: series,
	}, nil
}

// ImageCollectionInfo lists the images of source between start and end,
// oldest first. Without start every image is listed; start without end
// selects one day. With limit only the latest limit images are kept. It
// returns nil when nothing matches.
func (s *Service) ImageCollectionInfo(ctx context.Context, source, start, end string, limit int) ([]ImageRef, error) {
	vp, err := s.visParams(source, "")
	if err != nil {
		return nil, err
	}

	var collection earthengine.ImageCollection
	switch vp.Type {
	case catalog.TypeImage:
		collection = earthengine.ImageCollectionFromImages(earthengine.LoadImage(source))
	default:
		collection = earthengine.LoadImageCollection(source)
	}

	if end != "" && start == "" {
		logging.CtxDebug(ctx).Msg("If endDate provided, must also include startDate")
		return nil, nil
	}
	if start != "" {
		from := earthengine.NewDate(start)
		to := from.Advance(1, "day")
		if end != "" {
			to = earthengine.NewDate(end)
		}
		collection = collection.FilterDate(from, to)
	}
	if limit > 0 {
		collection = collection.Limit(limit, timeStart, false)
	}
	collection = collection.Sort(timeStart, true)

	listing := earthengine.DictionaryOf(map[string]interface{}{
		"ids": collection.AggregateArray("system:id"),
		"dates": collection.AggregateArray(timeStart).Map(func(o earthengine.Object) earthengine.Valuer {
			return earthengine.NewDate(o).Format("")
		}),
	})
	var out struct {
		IDs   []string `json:"ids"`
		Dates []string `json:"dates"`
	}
	if err := s.computeInto(ctx, listing, &out); err != nil {
		return nil, err
	}
	if len(out.IDs) == 0 {
		logging.CtxDebug(ctx).Str("start", start).Str("end", end).Msg("no images available")
		return nil, nil
	}

	refs := make([]ImageRef, len(out.IDs))
	for i, id := range out.IDs {
		refs[i].ImageID = id
		if len(out.Dates) == len(out.IDs) {
			refs[i].Date = &out.Dates[i]
		}
	}
	return refs, nil
}

type wmsRequest struct {
	imageID  string
	typ      string
	band     string
	function string
	min      *float64
	max      *float64
	palette  []string
}

// applyFunction applies a named image operation. flowmap needs the source
// parameters for its value range.
func applyFunction(image earthengine.Image, function string, vp *catalog.VisSource) (earthengine.Image, error) {
	switch function {
	case FunctionLog:
		return image.Log10().Rename("log"), nil
	case FunctionMagnitude:
		return image.Pow(2).Reduce(earthengine.SumReducer()).Sqrt().Rename("magnitude"), nil
	case FunctionFlowmap:
		if vp == nil {
			return image, usageErrorf("function %s needs visualization parameters", function)
		}
		scaled := image.UnitScale(vp.Min[function], vp.Max[function])
		mask := scaled.Unmask(-9999).Eq(-9999).SelectIndex(0).Rename("mask")
		return scaled.Clamp(0, 1).AddBands(mask), nil
	}
	return image, usageErrorf("unknown function %q", function)
}

// wmsInfo renders one image with the parameters of its source.
func (s *Service) wmsInfo(ctx context.Context, req wmsRequest) (*ImageInfo, error) {
	if strings.Contains(req.imageID, "gebco") {
		return s.visualizeGebco(ctx, req.imageID, req.band)
	}

	image := earthengine.LoadImage(req.imageID)
	source := req.imageID
	if req.typ == catalog.TypeImageCollection {
		source = parentPath(req.imageID)
	}

	info := &ImageInfo{
		Min:     0,
		Max:     1,
		Palette: []string{"#000000", "#FFFFFF"},
		Source:  source,
		ImageID: req.imageID,
	}

	vp, known := s.catalog.VisParams(source)
	if known {
		if req.band != "" {
			bandName, ok := vp.BandNames[req.band]
			if !ok {
				return nil, usageErrorf("unknown band %q for %s", req.band, source)
			}
			image = image.Select(bandName)
			info.Band = strPtr(req.band)
			info.Min, info.Max, info.Palette = vp.Min[req.band], vp.Max[req.band], vp.Palette[req.band]
		}
		if req.function != "" {
			if !vp.Function.Allows(req.function, req.band) {
				return nil, usageErrorf("function %q is not available for %s", req.function, source)
			}
			var err error
			if image, err = applyFunction(image, req.function, vp); err != nil {
				return nil, err
			}
			if len(vp.Function.List) > 0 {
				info.Min, info.Max, info.Palette = vp.Min[req.function], vp.Max[req.function], vp.Palette[req.function]
			}
			info.Function = req.function
		}
	} else if req.band != "" {
		image = image.Select(req.band)
	}

	if req.min != nil {
		info.Min = *req.min
	}
	if req.max != nil {
		info.Max = *req.max
	}
	if len(req.palette) > 0 {
		info.Palette = req.palette
	}
	if source == gloffisHydro {
		image = image.Mask(image.Gte(0))
	}

	var styled earthengine.Image
	if known && vp.SLDStyle != "" {
		style, _ := s.catalog.SLDStyle(vp.SLDStyle)
		styled = image.SldStyle(style)
	} else {
		styled = image.Visualize(earthengine.VisParams{Min: info.Min, Max: info.Max, Palette: info.Palette})
	}

	if err := s.mapWithDate(ctx, info, styled, earthengine.LoadImage(req.imageID)); err != nil {
		return nil, err
	}
	info.LinearGradient = linearGradient(info.Palette, info.Function)

	if info.Function == FunctionLog {
		info.Min = math.Pow(10, info.Min)
		info.Max = math.Pow(10, info.Max)
	}
	return info, nil
}

// mapWithDate creates the map of styled and reads the date of dated in
// parallel. A missing date is not an error.
func (s *Service) mapWithDate(ctx context.Context, info *ImageInfo, styled, dated earthengine.Image) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := s.createMap(gctx, styled)
		if err != nil {
			return err
		}
		info.MapID = *id
		return nil
	})
	g.Go(func() error {
		var date string
		if err := s.computeInto(gctx, dated.Date().Format(""), &date); err != nil {
			logging.CtxDebug(ctx).Err(err).Str("image", info.ImageID).Msg("image does not have an assigned date")
			return nil
		}
		info.Date = &date
		return nil
	})
	return g.Wait()
}

// linearGradient spreads the palette over 0..100%. With the log function
// the offsets are spaced logarithmically between 1% and 100% and the first
// is pinned to 0%.
func linearGradient(palette []string, function string) []GradientStop {
	n := len(palette)
	stops := make([]GradientStop, n)
	if n == 0 {
		return stops
	}
	offsets := make([]float64, n)
	if n > 1 {
		if function == FunctionLog {
			floats.LogSpan(offsets, 1, 100)
			offsets[0] = 0
		} else {
			floats.Span(offsets, 0, 100)
		}
	}
	for i, c := range palette {
		stops[i] = GradientStop{Offset: fmt.Sprintf("%.3f%%", offsets[i]), Opacity: 100, Color: c}
	}
	return stops
}

// gebcoRender blends separate land and sea colour ramps and shades the
// result.
func gebcoRender(elevation earthengine.Image, vp *catalog.VisSource) earthengine.Image {
	topo := elevation.Mask(elevation.Gt(0)).Visualize(earthengine.VisParams{
		Min: vp.TopoVis.Min, Max: vp.TopoVis.Max, Palette: vp.TopoVis.Palette,
	})
	bathy := elevation.Mask(elevation.Lte(0)).Visualize(earthengine.VisParams{
		Min: vp.BathyVis.Min, Max: vp.BathyVis.Max, Palette: vp.BathyVis.Palette,
	})
	rgb := topo.Blend(bathy)
	if vp.BathyOnly {
		rgb = bathy.Mask(elevation.Multiply(-1).UnitScale(-1, 10).Clamp(0, 1))
	}

	hsv := rgb.UnitScale(0, 255).RGBToHSV()
	hs := shadedRelief(elevation.Multiply(earthengine.ConstantImage(30)), 315, 30)

	return earthengine.CatImages(
		hsv.Select("hue"),
		hsv.Select("saturation").Multiply(0.8),
		hs.Multiply(hsv.Select("value")).Multiply(0.9),
	).HSVToRGB()
}

func gebcoGradient(vp *catalog.VisSource) []string {
	palette := make([]string, 0, len(vp.BathyVis.Palette)+len(vp.TopoVis.Palette))
	palette = append(palette, vp.BathyVis.Palette...)
	return append(palette, vp.TopoVis.Palette...)
}

// gebcoParams returns source's parameters when they carry land and sea
// ramps, else the GEBCO defaults.
func (s *Service) gebcoParams(source string) (*catalog.VisSource, error) {
	if vp, ok := s.catalog.VisParams(source); ok && vp.TopoVis != nil && vp.BathyVis != nil {
		return vp, nil
	}
	vp, ok := s.catalog.VisParams(gebcoSource)
	if !ok || vp.TopoVis == nil || vp.BathyVis == nil {
		return nil, usageErrorf("%s not in assets.", source)
	}
	return vp, nil
}

func (s *Service) visualizeGebco(ctx context.Context, source, band string) (*ImageInfo, error) {
	vp, err := s.gebcoParams(source)
	if err != nil {
		return nil, err
	}
	if band == "" {
		band = "elevation"
	}
	bandName, ok := vp.BandNames[band]
	if !ok {
		return nil, usageErrorf("unknown band %q for %s", band, source)
	}
	elevation := earthengine.LoadImage(source).Select(bandName)

	id, err := s.createMap(ctx, gebcoRender(elevation, vp))
	if err != nil {
		return nil, err
	}
	palette := gebcoGradient(vp)
	return &ImageInfo{
		MapID:          *id,
		Min:            vp.BathyVis.Min,
		Max:            vp.TopoVis.Max,
		Palette:        palette,
		Band:           strPtr(band),
		ImageID:        source,
		LinearGradient: linearGradient(palette, ""),
	}, nil
}

// ElevationRequest selects the layers of the elevation mosaic.
type ElevationRequest struct {
	Datasets []string `json:"datasets,omitempty"`
	ImageID  string   `json:"imageId,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

// elevationMosaic stacks the named elevation layers, later names on top.
// No names selects every layer.
func (s *Service) elevationMosaic(names []string) (earthengine.Image, error) {
	if len(names) == 0 {
		names = s.catalog.ElevationNames()
	}
	layers := make([]earthengine.Image, 0, len(names))
	for _, name := range names {
		d, ok := s.catalog.ElevationDataset(name)
		if !ok {
			return earthengine.Image{}, usageErrorf("unknown elevation dataset %q", name)
		}
		var img earthengine.Image
		if d.Collection {
			img = earthengine.LoadImageCollection(d.Asset).Mosaic()
		} else {
			img = earthengine.LoadImage(d.Asset)
		}
		layers = append(layers, img.Select(d.Band).Rename("elevation").Float())
	}
	return earthengine.ImageCollectionFromImages(layers...).Mosaic(), nil
}

// GetElevationData renders a mosaic of elevation datasets with the GEBCO
// land and sea ramps and hillshading.
func (s *Service) GetElevationData(ctx context.Context, req *ElevationRequest) (*ImageInfo, error) {
	var elevation earthengine.Image
	if req.ImageID != "" {
		elevation = earthengine.LoadImage(req.ImageID).SelectIndex(0).Rename("elevation")
	} else {
		var err error
		if elevation, err = s.elevationMosaic(req.Datasets); err != nil {
			return nil, err
		}
	}

	base, err := s.gebcoParams(gebcoSource)
	if err != nil {
		return nil, err
	}
	vp := *base
	topo, bathy := *base.TopoVis, *base.BathyVis
	if req.Min != nil {
		bathy.Min = *req.Min
	}
	if req.Max != nil {
		topo.Max = *req.Max
	}
	vp.TopoVis, vp.BathyVis = &topo, &bathy

	id, err := s.createMap(ctx, gebcoRender(elevation, &vp))
	if err != nil {
		return nil, err
	}
	palette := gebcoGradient(&vp)
	return &ImageInfo{
		MapID:          *id,
		Min:            bathy.Min,
		Max:            topo.Max,
		Palette:        palette,
		ImageID:        req.ImageID,
		LinearGradient: linearGradient(palette, ""),
	}, nil
}

// FeatureInfoRequest samples an image inside a small box.
type FeatureInfoRequest struct {
	ImageID    string          `json:"imageId" validate:"required_without=Datasets"`
	BBox       json.RawMessage `json:"bbox" validate:"required"`
	Band       string          `json:"band,omitempty"`
	Function   string          `json:"function,omitempty" validate:"omitempty,oneof=log magnitude flowmap mosaic_elevation_datasets"`
	InfoFormat string          `json:"info_format,omitempty"`
	Datasets   []string        `json:"datasets,omitempty"`
}

// SetDefaults selects the JSON info format.
func (r *FeatureInfoRequest) SetDefaults() {
	if r.InfoFormat == "" {
		r.InfoFormat = "JSON"
	}
}

// sourceOf derives the catalog source from a 4- or 5-segment image id.
func sourceOf(imageID string) string {
	parts := strings.Split(imageID, "/")
	if len(parts) == 5 {
		return strings.Join(parts[:4], "/")
	}
	return imageID
}

// GetFeatureInfo returns the value of the image at the box. Without data
// at the location the value is null.
func (s *Service) GetFeatureInfo(ctx context.Context, req *FeatureInfoRequest) (json.RawMessage, error) {
	req.SetDefaults()
	bbox, err := geometry("bbox", req.BBox)
	if err != nil {
		return nil, err
	}

	var image earthengine.Image
	if req.Function == FunctionMosaic {
		if image, err = s.elevationMosaic(req.Datasets); err != nil {
			return nil, err
		}
	} else {
		image = earthengine.LoadImage(req.ImageID)
		vp, known := s.catalog.VisParams(sourceOf(req.ImageID))
		if req.Band != "" {
			if !known {
				return nil, usageErrorf("%s not in assets.", sourceOf(req.ImageID))
			}
			bandName, ok := vp.BandNames[req.Band]
			if !ok {
				return nil, usageErrorf("unknown band %q", req.Band)
			}
			image = image.Select(bandName)
		}
		if req.Function != "" {
			if !known {
				vp = nil
			}
			if image, err = applyFunction(image, req.Function, vp); err != nil {
				return nil, err
			}
		}
	}

	sample := image.Rename("value").Sample(bbox, true).First()
	raw, err := s.compute(ctx, sample)
	if err != nil {
		return nil, err
	}

	var feature struct {
		Properties json.RawMessage `json:"properties"`
	}
	if len(raw) == 0 || string(raw) == "null" {
		empty := map[string]interface{}{
			"geometry":   req.BBox,
			"id":         "0",
			"properties": map[string]interface{}{"value": nil},
			"type":       "Feature",
		}
		if raw, err = json.Marshal(empty); err != nil {
			return nil, err
		}
	}
	if req.InfoFormat != "JSON" {
		return raw, nil
	}
	if err := json.Unmarshal(raw, &feature); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return feature.Properties, nil
}
