// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/validation"
)

const timeStart = "system:time_start"

// hillshadeOptions parameterizes hillshade. The zero value of Azimuth and
// Zenith selects 315 and 40 degrees.
type hillshadeOptions struct {
	Reproject        bool
	HeightMultiplier float64
	Weight           float64
	Azimuth          float64
	Zenith           float64
}

func radians(img earthengine.Image) earthengine.Image {
	return img.ToFloat().Multiply(3.1415927).Divide(180)
}

// shadedRelief computes the illumination of the terrain z for a sun at
// azimuth and zenith degrees.
func shadedRelief(z earthengine.Image, azimuth, zenith float64) earthengine.Image {
	terrain := earthengine.Terrain(z)
	slope := radians(terrain.Select("slope"))
	aspect := radians(terrain.Select("aspect")).Resample("bicubic")
	az := radians(earthengine.ConstantImage(azimuth))
	zen := radians(earthengine.ConstantImage(zenith))

	return az.Subtract(aspect).Cos().
		Multiply(slope.Sin()).
		Multiply(zen.Sin()).
		Add(zen.Cos().Multiply(slope.Cos())).
		Resample("bicubic")
}

// hillshade mixes an RGB rendering with the shaded relief of elevation in
// HSV space.
func hillshade(rgb, elevation earthengine.Image, o hillshadeOptions) earthengine.Image {
	if o.Azimuth == 0 {
		o.Azimuth = 315
	}
	if o.Zenith == 0 {
		o.Zenith = 40
	}
	hsv := rgb.UnitScale(0, 255).RGBToHSV()

	z := elevation
	if o.Reproject {
		z = z.Reproject(earthengine.NewProjection("EPSG:3857").AtScale(30))
	}
	hs := shadedRelief(z.Multiply(earthengine.ConstantImage(o.HeightMultiplier)), o.Azimuth, o.Zenith)
	intensity := hs.Multiply(earthengine.ConstantImage(o.Weight)).Multiply(hsv.Select("value"))

	return earthengine.CatImages(hsv.Select("hue", "saturation"), intensity).HSVToRGB()
}

// splitPalette turns "#a,#b" into ["#a", "#b"].
func splitPalette(p string) []string {
	parts := strings.Split(p, ",")
	out := make([]string, 0, len(parts))
	for _, c := range parts {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// BathymetryRequest selects a bathymetry composite.
type BathymetryRequest struct {
	Dataset   string   `json:"dataset" validate:"required,oneof=jetski vaklodingen kustlidar jarkus ahn"`
	BeginDate string   `json:"begin_date" validate:"required,isodate"`
	EndDate   string   `json:"end_date" validate:"required,isodate"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Palette   string   `json:"palette,omitempty" validate:"omitempty,hexcolor_list"`
	Hillshade *bool    `json:"hillshade,omitempty"`
}

// BathymetryResult is a tile layer of the composite.
type BathymetryResult struct {
	earthengine.MapID
	Begin     string `json:"begin"`
	End       string `json:"end"`
	Palette   string `json:"palette"`
	Hillshade *bool  `json:"hillshade,omitempty"`
}

// GetBathymetry composites the most recent survey per pixel between the
// begin and end date.
func (s *Service) GetBathymetry(ctx context.Context, req *BathymetryRequest) (*BathymetryResult, error) {
	ds, ok := s.catalog.BathymetryDataset(req.Dataset)
	if !ok {
		return nil, usageErrorf("unknown dataset %q", req.Dataset)
	}
	palette, _ := s.catalog.Palette(ds.Palette)

	lo, hi := ds.Min, ds.Max
	if req.Min != nil {
		lo = *req.Min
	}
	if req.Max != nil {
		hi = *req.Max
	}
	if req.Palette != "" {
		palette = req.Palette
	}

	image := earthengine.LoadImageCollection(ds.Collection).
		FilterDate(req.BeginDate, req.EndDate).
		Sort(timeStart, false).
		Reduce(earthengine.FirstNonNullReducer())

	vis := image.Visualize(earthengine.VisParams{Min: lo, Max: hi, Palette: splitPalette(palette)})
	if req.Hillshade != nil && *req.Hillshade {
		elevation := image.Subtract(lo).Divide(earthengine.ConstantImage(hi).Subtract(lo))
		vis = hillshade(vis, elevation, hillshadeOptions{
			Reproject:        true,
			HeightMultiplier: 500,
			Weight:           1.2,
		})
	}

	id, err := s.createMap(ctx, vis)
	if err != nil {
		return nil, err
	}
	return &BathymetryResult{
		MapID:     *id,
		Begin:     req.BeginDate,
		End:       req.EndDate,
		Palette:   palette,
		Hillshade: req.Hillshade,
	}, nil
}

// ImageURLsRequest asks for a series of averaged bathymetry windows.
type ImageURLsRequest struct {
	Dataset   string  `json:"dataset" validate:"required,oneof=bathymetry_jetski bathymetry_vaklodingen bathymetry_lidar"`
	BeginDate string  `json:"begin_date" validate:"required,isodate"`
	EndDate   string  `json:"end_date" validate:"omitempty,isodate"`
	Step      float64 `json:"step" validate:"gt=0"`
	Interval  float64 `json:"interval" validate:"gt=0"`
}

// imageURLWindows is the number of windows returned by GetImageURLs.
const imageURLWindows = 11

// DateValue is a date in the form the backend serializes dates.
type DateValue struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

func dateValue(t time.Time) DateValue {
	return DateValue{Type: "Date", Value: t.UnixMilli()}
}

// ImageURL is one window of GetImageURLs.
type ImageURL struct {
	earthengine.MapID
	Begin DateValue `json:"begin"`
	End   DateValue `json:"end"`
}

// GetImageURLs returns mean composites for eleven consecutive windows.
// Deprecated in favour of GetBathymetry.
func (s *Service) GetImageURLs(ctx context.Context, req *ImageURLsRequest) ([]ImageURL, error) {
	logging.CtxWarn(ctx).Msg("get_image_urls is no longer supported, please update to get_bathymetry")

	ds, ok := s.catalog.ProfileDataset(req.Dataset)
	if !ok {
		return nil, usageErrorf("unknown dataset %q", req.Dataset)
	}
	begin, err := validation.ParseDate(req.BeginDate)
	if err != nil {
		return nil, usageErrorf("begin_date: %v", err)
	}
	palette, _ := s.catalog.Palette("sandengine")

	collection := earthengine.LoadImageCollection(ds.Collection)
	out := make([]ImageURL, imageURLWindows)

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		b := begin.Add(days(req.Step * float64(i)))
		e := b.Add(days(req.Interval))
		image := collection.FilterDate(b.UnixMilli(), e.UnixMilli()).
			Reduce(earthengine.MeanReducer()).
			Visualize(earthengine.VisParams{Min: ds.Min, Max: ds.Max, Palette: splitPalette(palette)})
		g.Go(func() error {
			id, err := s.createMap(gctx, image)
			if err != nil {
				return err
			}
			out[i] = ImageURL{MapID: *id, Begin: dateValue(b), End: dateValue(e)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func days(n float64) time.Duration {
	return time.Duration(n * float64(24*time.Hour))
}

// RasterProfileRequest samples a dataset along a polyline.
type RasterProfileRequest struct {
	Polyline  json.RawMessage `json:"polyline" validate:"required"`
	Scale     float64         `json:"scale" validate:"gt=0"`
	Dataset   string          `json:"dataset" validate:"required,oneof=bathymetry_jetski bathymetry_vaklodingen bathymetry_lidar"`
	BeginDate string          `json:"begin_date,omitempty" validate:"omitempty,isodate"`
	EndDate   string          `json:"end_date,omitempty" validate:"omitempty,isodate"`
}

// GetRasterProfile cuts the polyline every scale meters and returns the
// mean of the dataset over each segment.
func (s *Service) GetRasterProfile(ctx context.Context, req *RasterProfileRequest) (json.RawMessage, error) {
	line, err := geometry("polyline", req.Polyline)
	if err != nil {
		return nil, err
	}
	ds, ok := s.catalog.ProfileDataset(req.Dataset)
	if !ok {
		return nil, usageErrorf("unknown dataset %q", req.Dataset)
	}

	collection := earthengine.LoadImageCollection(ds.Collection)
	if req.BeginDate != "" {
		collection = collection.FilterDate(req.BeginDate, optional(req.EndDate))
	}
	raster := collection.Reduce(earthengine.MeanReducer())

	return s.compute(ctx, profile(raster, line, req.Scale))
}

func profile(raster earthengine.Image, line earthengine.Geometry, scale float64) earthengine.FeatureCollection {
	distances := earthengine.Sequence(0, line.Length(nil), scale)
	segments := line.CutLines(distances, nil).Geometries().Zip(distances).Map(func(o earthengine.Object) earthengine.Valuer {
		pair := o.AsList()
		segment := earthengine.NewLineString(pair.Get(0).AsGeometry().Coordinates())
		return earthengine.NewFeature(segment, map[string]interface{}{"distance": pair.Get(1)})
	})
	reducer := earthengine.MeanReducer().SetOutputList(raster.BandNames())
	return raster.ReduceRegions(earthengine.FeatureCollectionFromList(segments), reducer, scale)
}

// optional maps "" to nil so the argument is left out of the graph.
func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
