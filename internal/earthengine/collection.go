// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

// ImageCollection is an ee.ImageCollection.
type ImageCollection struct{ expr }

func asImageCollection(n *Node) ImageCollection { return ImageCollection{expr{n}} }

// LoadImageCollection references a stored image collection asset.
func LoadImageCollection(id string) ImageCollection {
	return asImageCollection(call("ImageCollection.load", "id", id))
}

// ImageCollectionFromImages builds a collection from images.
func ImageCollectionFromImages(images ...Image) ImageCollection {
	return asImageCollection(call("ImageCollection.fromImages", "images", images))
}

// ImageCollectionFromList builds a collection from a server-side list of
// images.
func ImageCollectionFromList(images List) ImageCollection {
	return asImageCollection(call("ImageCollection.fromImages", "images", images))
}

func (c ImageCollection) Filter(f Filter) ImageCollection {
	return asImageCollection(filterCollection(c, f))
}

// FilterDate keeps images whose system:time_start lies in [start, end).
// start and end may be strings, millis or Date values.
func (c ImageCollection) FilterDate(start, end interface{}) ImageCollection {
	return c.Filter(FilterDate(start, end))
}

func (c ImageCollection) FilterBounds(geometry Valuer) ImageCollection {
	return c.Filter(FilterBounds(geometry))
}

func (c ImageCollection) Map(fn func(Image) Image) ImageCollection {
	return asImageCollection(mapCollection(c, func(arg *Node) Valuer { return fn(asImage(arg)) }))
}

// Select selects (and optionally renames) bands in every image.
func (c ImageCollection) Select(bands ...string) ImageCollection {
	return c.Map(func(i Image) Image { return i.Select(bands...) })
}

func (c ImageCollection) SelectAs(bands, names []string) ImageCollection {
	return c.Map(func(i Image) Image { return i.SelectAs(bands, names) })
}

func (c ImageCollection) Size() Number { return sizeOf(c) }

func (c ImageCollection) Sort(property string, ascending bool) ImageCollection {
	return asImageCollection(limitCollection(c, nil, property, ascending))
}

func (c ImageCollection) Limit(n int, property string, ascending bool) ImageCollection {
	return asImageCollection(limitCollection(c, n, property, ascending))
}

func (c ImageCollection) First() Image {
	return asImage(call("Collection.first", "collection", c))
}

func (c ImageCollection) ToList(count int) List {
	return asList(call("Collection.toList", "collection", c, "count", count))
}

func (c ImageCollection) AggregateArray(property string) List {
	return aggregateArray(c, property)
}

func (c ImageCollection) Reduce(r Reducer) Image {
	return asImage(call("ImageCollection.reduce", "collection", c, "reducer", r))
}

func (c ImageCollection) Mosaic() Image {
	return asImage(call("ImageCollection.mosaic", "collection", c))
}

func (c ImageCollection) Mean() Image  { return asImage(call("reduce.mean", "collection", c)) }
func (c ImageCollection) Sum() Image   { return asImage(call("reduce.sum", "collection", c)) }
func (c ImageCollection) Count() Image { return asImage(call("reduce.count", "collection", c)) }

// GetRegion returns rows [id, lon, lat, time, band...] for every pixel of
// every image intersecting geometry. The first row is the header.
func (c ImageCollection) GetRegion(geometry Valuer, scale float64, crs string) List {
	return asList(call("ImageCollection.getRegion",
		"collection", c,
		"geometry", geometry,
		"scale", scale,
		"crs", crs))
}

// FeatureCollection is an ee.FeatureCollection.
type FeatureCollection struct{ expr }

func asFeatureCollection(n *Node) FeatureCollection { return FeatureCollection{expr{n}} }

// LoadFeatureCollection references a stored table asset.
func LoadFeatureCollection(id string) FeatureCollection {
	return asFeatureCollection(call("Collection.loadTable", "tableId", id))
}

// NewFeatureCollection builds a collection from features.
func NewFeatureCollection(features ...Feature) FeatureCollection {
	return asFeatureCollection(call("Collection", "features", features))
}

// FeatureCollectionFromList builds a collection from a server-side list of
// features.
func FeatureCollectionFromList(features List) FeatureCollection {
	return asFeatureCollection(call("Collection", "features", features))
}

// FeatureCollectionOf reinterprets a computed value as a feature collection.
func FeatureCollectionOf(v Valuer) FeatureCollection { return asFeatureCollection(v.Node()) }

func (c FeatureCollection) Filter(f Filter) FeatureCollection {
	return asFeatureCollection(filterCollection(c, f))
}

func (c FeatureCollection) FilterBounds(geometry Valuer) FeatureCollection {
	return c.Filter(FilterBounds(geometry))
}

// Map applies fn to every feature. fn may return a feature or a collection;
// in the latter case follow with Flatten.
func (c FeatureCollection) Map(fn func(Feature) Valuer) FeatureCollection {
	return asFeatureCollection(mapCollection(c, func(arg *Node) Valuer { return fn(asFeature(arg)) }))
}

func (c FeatureCollection) Flatten() FeatureCollection {
	return asFeatureCollection(call("Collection.flatten", "collection", c))
}

func (c FeatureCollection) Distinct(properties ...string) FeatureCollection {
	return asFeatureCollection(call("Collection.distinct", "collection", c, "properties", properties))
}

func (c FeatureCollection) Merge(other FeatureCollection) FeatureCollection {
	return asFeatureCollection(call("Collection.merge", "collection1", c, "collection2", other))
}

// SelectProperties keeps only the named properties (and the geometry).
func (c FeatureCollection) SelectProperties(properties ...string) FeatureCollection {
	return c.Map(func(f Feature) Valuer {
		return asFeature(call("Feature.select", "input", f, "propertySelectors", properties))
	})
}

// Geometry unions all geometries of the collection.
func (c FeatureCollection) Geometry() Geometry {
	return asGeometry(call("Collection.geometry", "collection", c))
}

func (c FeatureCollection) Size() Number { return sizeOf(c) }

func (c FeatureCollection) Sort(property string, ascending bool) FeatureCollection {
	return asFeatureCollection(limitCollection(c, nil, property, ascending))
}

func (c FeatureCollection) First() Feature {
	return asFeature(call("Collection.first", "collection", c))
}

func (c FeatureCollection) ToList(count int) List {
	return asList(call("Collection.toList", "collection", c, "count", count))
}

func (c FeatureCollection) AggregateArray(property string) List {
	return aggregateArray(c, property)
}

// Distance is an image of the distance in metres to the nearest feature, up
// to searchRadius.
func (c FeatureCollection) Distance(searchRadius, maxError float64) Image {
	return asImage(call("Collection.distance",
		"features", c,
		"searchRadius", searchRadius,
		"maxError", maxError))
}

func filterCollection(c Valuer, f Filter) *Node {
	return call("Collection.filter", "collection", c, "filter", f)
}

func mapCollection(c Valuer, fn func(arg *Node) Valuer) *Node {
	return call("Collection.map", "collection", c, "baseAlgorithm", lambda(fn))
}

func limitCollection(c Valuer, n interface{}, property string, ascending bool) *Node {
	return call("Collection.limit",
		"collection", c,
		"limit", n,
		"key", property,
		"ascending", ascending)
}

func sizeOf(c Valuer) Number {
	return asNumber(call("Collection.size", "collection", c))
}

func aggregateArray(c Valuer, property string) List {
	return asList(call("AggregateFeatureCollection.array", "collection", c, "property", property))
}
