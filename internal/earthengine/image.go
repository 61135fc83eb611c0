// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

// Image is an ee.Image.
type Image struct{ expr }

func asImage(n *Node) Image { return Image{expr{n}} }

// LoadImage references a stored image asset.
func LoadImage(id string) Image {
	return asImage(call("Image.load", "id", id))
}

// ConstantImage is an image with a constant value in every pixel.
func ConstantImage(value interface{}) Image {
	return asImage(call("Image.constant", "value", value))
}

// ImageOf reinterprets a computed value as an image.
func ImageOf(v Valuer) Image { return asImage(v.Node()) }

// PixelArea is an image whose pixels hold their area in square metres.
func PixelArea() Image {
	return asImage(call("Image.pixelArea"))
}

// Terrain computes slope, aspect and hillshade bands from a DEM.
func Terrain(dem Image) Image {
	return asImage(call("Terrain", "input", dem))
}

// CatImages combines the bands of images into one image.
func CatImages(images ...Image) Image {
	if len(images) == 0 {
		return Image{}
	}
	out := images[0]
	for _, img := range images[1:] {
		out = out.AddBands(img)
	}
	return out
}

// imageOperand promotes plain numbers to constant images, as the backend
// requires both sides of a band-math operator to be images.
func imageOperand(v interface{}) interface{} {
	switch v.(type) {
	case Valuer, *Node:
		return v
	}
	return ConstantImage(v)
}

func (i Image) binary(op string, other interface{}) Image {
	return asImage(call("Image."+op, "image1", i, "image2", imageOperand(other)))
}

func (i Image) unary(op string) Image {
	return asImage(call("Image."+op, "value", i))
}

func (i Image) Add(other interface{}) Image      { return i.binary("add", other) }
func (i Image) Subtract(other interface{}) Image { return i.binary("subtract", other) }
func (i Image) Multiply(other interface{}) Image { return i.binary("multiply", other) }
func (i Image) Divide(other interface{}) Image   { return i.binary("divide", other) }
func (i Image) Pow(other interface{}) Image      { return i.binary("pow", other) }
func (i Image) Atan2(other interface{}) Image    { return i.binary("atan2", other) }
func (i Image) Gt(other interface{}) Image       { return i.binary("gt", other) }
func (i Image) Gte(other interface{}) Image      { return i.binary("gte", other) }
func (i Image) Lt(other interface{}) Image       { return i.binary("lt", other) }
func (i Image) Lte(other interface{}) Image      { return i.binary("lte", other) }
func (i Image) Eq(other interface{}) Image       { return i.binary("eq", other) }
func (i Image) Neq(other interface{}) Image      { return i.binary("neq", other) }

func (i Image) Log10() Image   { return i.unary("log10") }
func (i Image) Sqrt() Image    { return i.unary("sqrt") }
func (i Image) Cos() Image     { return i.unary("cos") }
func (i Image) Sin() Image     { return i.unary("sin") }
func (i Image) Not() Image     { return i.unary("not") }
func (i Image) Int() Image     { return i.unary("int") }
func (i Image) Float() Image   { return i.unary("float") }
func (i Image) ToFloat() Image { return i.unary("toFloat") }

// Select picks bands by name.
func (i Image) Select(bands ...string) Image {
	return asImage(call("Image.select", "input", i, "bandSelectors", bands))
}

// SelectIndex picks a single band by position.
func (i Image) SelectIndex(index int) Image {
	return asImage(call("Image.select", "input", i, "bandSelectors", []int{index}))
}

// SelectAs picks bands and renames them.
func (i Image) SelectAs(bands, names []string) Image {
	return asImage(call("Image.select", "input", i, "bandSelectors", bands, "newNames", names))
}

func (i Image) Rename(names ...string) Image {
	return asImage(call("Image.rename", "input", i, "names", names))
}

func (i Image) BandNames() List {
	return asList(call("Image.bandNames", "image", i))
}

// VisParams are the visualization parameters applied by Visualize. Min and
// Max are always sent; Bands and Palette only when non-empty.
type VisParams struct {
	Bands   []string
	Min     float64
	Max     float64
	Palette []string
}

// Visualize renders the image into an 8-bit RGB image.
func (i Image) Visualize(p VisParams) Image {
	var bands, palette interface{}
	if len(p.Bands) > 0 {
		bands = p.Bands
	}
	if len(p.Palette) > 0 {
		palette = p.Palette
	}
	return asImage(call("Image.visualize",
		"image", i,
		"bands", bands,
		"min", p.Min,
		"max", p.Max,
		"palette", palette))
}

// SldStyle renders the image with a Styled Layer Descriptor RasterSymbolizer.
func (i Image) SldStyle(sld string) Image {
	return asImage(call("Image.sldStyle", "input", i, "sldXml", sld))
}

func (i Image) Mask(mask interface{}) Image {
	return asImage(call("Image.mask", "image", i, "mask", imageOperand(mask)))
}

// MaskImage returns the current mask of the image.
func (i Image) MaskImage() Image {
	return asImage(call("Image.mask", "image", i))
}

func (i Image) UpdateMask(mask interface{}) Image {
	return asImage(call("Image.updateMask", "image", i, "mask", imageOperand(mask)))
}

func (i Image) Unmask(value float64) Image {
	return asImage(call("Image.unmask", "input", i, "value", value))
}

func (i Image) UnitScale(low, high float64) Image {
	return asImage(call("Image.unitScale", "input", i, "low", low, "high", high))
}

func (i Image) Clamp(low, high float64) Image {
	return asImage(call("Image.clamp", "input", i, "low", low, "high", high))
}

func (i Image) RGBToHSV() Image { return asImage(call("Image.rgbToHsv", "image", i)) }
func (i Image) HSVToRGB() Image { return asImage(call("Image.hsvToRgb", "image", i)) }

func (i Image) AddBands(src Image) Image {
	return asImage(call("Image.addBands", "dstImg", i, "srcImg", src))
}

// Resample sets the resampling mode: bilinear or bicubic.
func (i Image) Resample(mode string) Image {
	return asImage(call("Image.resample", "image", i, "mode", mode))
}

// Reproject forces computation in proj, a Projection or a CRS string.
func (i Image) Reproject(proj interface{}) Image {
	return asImage(call("Image.reproject", "image", i, "crs", proj))
}

func (i Image) SetDefaultProjection(crs string, scale float64) Image {
	return asImage(call("Image.setDefaultProjection", "image", i, "crs", crs, "scale", scale))
}

// Blend draws top over i.
func (i Image) Blend(top Image) Image {
	return ImageCollectionFromImages(i, top).Mosaic()
}

func (i Image) Clip(geometry Valuer) Image {
	return asImage(call("Image.clip", "input", i, "geometry", geometry))
}

func (i Image) ClipToBoundsAndScale(geometry Valuer, scale float64) Image {
	return asImage(call("Image.clipToBoundsAndScale", "input", i, "geometry", geometry, "scale", scale))
}

func (i Image) Reduce(r Reducer) Image {
	return asImage(call("Image.reduce", "image", i, "reducer", r))
}

// NormalizedDifference computes (b1-b2)/(b1+b2); with no bands the first
// two bands are used.
func (i Image) NormalizedDifference(bands ...string) Image {
	var names interface{}
	if len(bands) > 0 {
		names = bands
	}
	return asImage(call("Image.normalizedDifference", "input", i, "bandNames", names))
}

func (i Image) focal(op string, radius float64, kernelType, units string) Image {
	return asImage(call("Image."+op,
		"image", i,
		"radius", radius,
		"kernelType", kernelType,
		"units", units))
}

func (i Image) FocalMode(radius float64, kernelType, units string) Image {
	return i.focal("focal_mode", radius, kernelType, units)
}

func (i Image) FocalMax(radius float64, kernelType, units string) Image {
	return i.focal("focal_max", radius, kernelType, units)
}

func (i Image) FocalMin(radius float64, kernelType, units string) Image {
	return i.focal("focal_min", radius, kernelType, units)
}

func (i Image) FastDistanceTransform() Image {
	return asImage(call("Image.fastDistanceTransform", "image", i))
}

func (i Image) Convolve(k Kernel) Image {
	return asImage(call("Image.convolve", "image", i, "kernel", k))
}

func (i Image) ConnectedComponents(connectedness Kernel, maxSize int) Image {
	return asImage(call("Image.connectedComponents",
		"image", i,
		"connectedness", connectedness,
		"maxSize", maxSize))
}

// Paint draws the features of fc into the image with value color.
func (i Image) Paint(fc FeatureCollection, color interface{}) Image {
	return asImage(call("Image.paint", "image", i, "featureCollection", fc, "color", color))
}

func (i Image) Remap(from, to interface{}) Image {
	return asImage(call("Image.remap", "image", i, "from", from, "to", to))
}

// Geometry is the footprint of the image.
func (i Image) Geometry() Geometry {
	return asGeometry(call("Image.geometry", "feature", i))
}

func (i Image) Date() Date {
	return asDate(call("Image.date", "image", i))
}

func (i Image) Set(key string, value interface{}) Image {
	return asImage(call("Element.set", "object", i, "key", key, "value", value))
}

func (i Image) Get(property string) Object {
	return asObject(call("Element.get", "object", i, "property", property))
}

func (i Image) CopyProperties(source Valuer) Image {
	return asImage(call("Element.copyProperties", "destination", i, "source", source))
}

// ReduceRegion applies reducer over geometry and returns a dictionary keyed
// by band (or output) name.
func (i Image) ReduceRegion(reducer Reducer, geometry Valuer, scale interface{}) Dictionary {
	return asDictionary(call("Image.reduceRegion",
		"image", i,
		"reducer", reducer,
		"geometry", geometry,
		"scale", scale))
}

// ReduceRegions applies reducer to every feature of fc and stores the result
// as feature properties.
func (i Image) ReduceRegions(fc FeatureCollection, reducer Reducer, scale interface{}) FeatureCollection {
	return asFeatureCollection(call("Image.reduceRegions",
		"image", i,
		"collection", fc,
		"reducer", reducer,
		"scale", scale))
}

// VectorOptions configures ReduceToVectors. Zero values are omitted.
type VectorOptions struct {
	Reducer        *Reducer
	Geometry       Valuer
	Scale          interface{}
	CRS            interface{}
	GeometryType   string
	EightConnected *bool
	LabelProperty  string
	TileScale      float64
}

// ReduceToVectors converts homogeneous regions of the image into polygons.
func (i Image) ReduceToVectors(o VectorOptions) FeatureCollection {
	var reducer, geometryType, labelProperty, tileScale, eight interface{}
	if o.Reducer != nil {
		reducer = *o.Reducer
	}
	if o.GeometryType != "" {
		geometryType = o.GeometryType
	}
	if o.LabelProperty != "" {
		labelProperty = o.LabelProperty
	}
	if o.TileScale != 0 {
		tileScale = o.TileScale
	}
	if o.EightConnected != nil {
		eight = *o.EightConnected
	}
	return asFeatureCollection(call("Image.reduceToVectors",
		"image", i,
		"reducer", reducer,
		"geometry", o.Geometry,
		"scale", o.Scale,
		"crs", o.CRS,
		"geometryType", geometryType,
		"eightConnected", eight,
		"labelProperty", labelProperty,
		"tileScale", tileScale))
}

// Sample samples pixels inside region. With geometries set every sample
// carries its point geometry.
func (i Image) Sample(region Valuer, geometries bool) FeatureCollection {
	return asFeatureCollection(call("Image.sample",
		"image", i,
		"region", region,
		"geometries", geometries))
}
