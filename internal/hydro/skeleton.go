// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	ee "github.com/tomtom215/hydroengine/internal/earthengine"
)

// Centerline extraction: points are placed along the buffered water
// polygon boundary, the distance field to those points is segmented into
// Voronoi cells, and the shared edges of neighbouring cells that stay inside
// the mask form the skeleton.

const simplifyCenterlineFactor = 15

type skeletonResult struct {
	centerline ee.FeatureCollection
	// distance to the nearest perimeter point, in pixels
	distance ee.Image
}

// perimeterPoints places points at equal spacing (close to step) along the
// exterior and every interior ring of geom.
func perimeterPoints(geom ee.Geometry, step float64) ee.FeatureCollection {
	errM := ee.ErrorMargin(1)

	p := geom.Perimeter(errM)
	n := p.Divide(step).Int()
	spacing := p.Divide(n)

	rings := geom.Coordinates().Map(func(coords ee.Object) ee.Valuer {
		ring := ee.NewLineString(coords)
		distances := ee.Sequence(0, ring.Length(errM), spacing)
		return ee.NewFeature(ring, nil).
			Set("distances", distances).
			Set("distancesCount", distances.Length())
	})

	return ee.FeatureCollectionFromList(rings).
		Filter(ee.FilterGt("distancesCount", 2)).
		Map(func(ring ee.Feature) ee.Valuer {
			segments := ring.Geometry().CutLines(ring.Get("distances"), nil).Geometries()
			return ee.FeatureCollectionFromList(segments.Map(func(g ee.Object) ee.Valuer {
				return ee.NewFeature(g.AsGeometry().Centroid(1), nil)
			}))
		}).
		Flatten()
}

// voronoi segments the distance field around points into labelled cells.
func voronoi(points ee.FeatureCollection, scale float64, aoi ee.Geometry) (ee.FeatureCollection, ee.Image) {
	proj := ee.NewProjection("EPSG:4326").AtScale(scale)

	distance := ee.ConstantImage(0).Float().Paint(points, 1).
		FastDistanceTransform().Sqrt().Clip(aoi).
		Reproject(proj)

	concavity := distance.Convolve(ee.Laplacian8Kernel()).Reproject(proj).Multiply(distance)
	edges := concavity.Lt(0)

	connected := edges.Not().
		ConnectedComponents(ee.CircleKernel(1), 256).
		Clip(aoi).
		FocalMax(scale*3, "circle", "meters").
		FocalMin(scale*3, "circle", "meters").
		FocalMode(scale*5, "circle", "meters").
		Reproject(proj)

	// reduceToVectors overflows on large label values; remap to 0..n-1.
	hist := connected.ReduceRegion(ee.FrequencyHistogramReducer(), aoi, scale)
	unique := hist.Get("labels").AsDictionary().Keys().Map(func(o ee.Object) ee.Valuer {
		return ee.ParseNumber(o)
	})
	labels := ee.Sequence(0, unique.Size().Subtract(1), nil)
	connected = connected.Remap(unique, labels).Rename("labels").Int().Reproject(proj)

	eight := true
	polygons := connected.Select("labels").ReduceToVectors(ee.VectorOptions{
		Scale:          scale,
		CRS:            proj,
		Geometry:       aoi,
		EightConnected: &eight,
		LabelProperty:  "labels",
		TileScale:      4,
	})
	return polygons, distance
}

// skeleton computes the centerline network of a water polygon.
func skeleton(scale float64, water ee.FeatureCollection) skeletonResult {
	step := scale * 10
	errM := ee.ErrorMargin(1)
	proj := ee.NewProjection("EPSG:4326").AtScale(scale)

	// Drop interior rings of five vertices or fewer.
	coords := water.Geometry().Coordinates()
	interiors := ee.FeatureCollectionFromList(coords.Slice(1).Map(func(o ee.Object) ee.Valuer {
		return ee.NewFeature(nil, map[string]interface{}{
			"count":  o.AsList().Length(),
			"values": o,
		})
	})).
		Filter(ee.FilterGt("count", 5)).
		ToList(10000).
		Map(func(o ee.Object) ee.Valuer { return ee.FeatureOf(o).Get("values") })

	polygon := ee.NewPolygon(ee.ListOf(coords.Get(0)).Cat(interiors), "", nil, nil)

	buffered := polygon.Buffer(scale*4, errM)
	perimeter := buffered.Difference(buffered.Buffer(-scale*2, errM), errM)

	points := perimeterPoints(buffered, step)
	polygons, distance := voronoi(points, scale, buffered)

	neighbours := ee.FilterAnd(
		ee.FilterFieldsIntersect(".geo", ".geo", 1),
		ee.FilterFieldsEq("labels", "labels").Not(),
	)
	edges := ee.SaveAllJoin("matches").Apply(polygons, polygons, neighbours).
		Map(func(cell ee.Feature) ee.Valuer {
			matches := ee.FeatureCollectionFromList(cell.Get("matches").AsList())
			return matches.Map(func(other ee.Feature) ee.Valuer {
				shared := other.Intersection(cell, errM, proj)
				return shared.
					Set("touchesPerimeter", shared.Intersects(perimeter, errM, proj)).
					Set("intersectsWithMask", shared.Intersects(buffered, errM, proj))
			})
		}).
		Flatten()

	inner := ee.FilterAnd(
		ee.FilterEq("touchesPerimeter", false),
		ee.FilterEq("intersectsWithMask", true),
	)
	lines := edges.Filter(inner).Geometry().
		Dissolve(scale, proj).
		Simplify(scale*simplifyCenterlineFactor, proj).
		Geometries().
		Map(func(g ee.Object) ee.Valuer { return ee.NewFeature(g.AsGeometry(), nil) })

	centerline := ee.FeatureCollectionFromList(lines).
		Map(func(f ee.Feature) ee.Valuer { return f.Set("type", f.Geometry().Type()) }).
		Filter(ee.FilterEq("type", "LineString"))

	return skeletonResult{centerline: centerline, distance: distance}
}
