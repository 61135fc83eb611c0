// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidGeoJSON is returned for geometries that cannot be converted.
var ErrInvalidGeoJSON = errors.New("invalid GeoJSON geometry")

// Geometry is an ee.Geometry.
type Geometry struct{ expr }

func asGeometry(n *Node) Geometry { return Geometry{expr{n}} }

// GeometryOf reinterprets a computed value as a geometry.
func GeometryOf(v Valuer) Geometry { return asGeometry(v.Node()) }

var geometryConstructors = map[string]string{
	"Point":           "GeometryConstructors.Point",
	"MultiPoint":      "GeometryConstructors.MultiPoint",
	"LineString":      "GeometryConstructors.LineString",
	"MultiLineString": "GeometryConstructors.MultiLineString",
	"Polygon":         "GeometryConstructors.Polygon",
	"MultiPolygon":    "GeometryConstructors.MultiPolygon",
	"LinearRing":      "GeometryConstructors.LinearRing",
}

// geoJSON is the subset of RFC 7946 understood by the backend, plus the
// non-standard geodesic flag and the legacy named crs member.
type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometries  []geoJSON       `json:"geometries"`
	Geodesic    *bool           `json:"geodesic"`
	CRS         *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
	// Feature wrappers are accepted and unwrapped.
	Geometry *geoJSON `json:"geometry"`
}

// GeometryFromGeoJSON converts a GeoJSON geometry (or a Feature wrapping
// one) into a geometry constructor call.
func GeometryFromGeoJSON(raw []byte) (Geometry, error) {
	var g geoJSON
	if err := json.Unmarshal(raw, &g); err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}
	n, err := g.node()
	if err != nil {
		return Geometry{}, err
	}
	return asGeometry(n), nil
}

func (g *geoJSON) node() (*Node, error) {
	if g.Type == "Feature" {
		if g.Geometry == nil {
			return nil, fmt.Errorf("%w: feature without geometry", ErrInvalidGeoJSON)
		}
		return g.Geometry.node()
	}

	var crs, geodesic interface{}
	if g.CRS != nil && g.CRS.Properties.Name != "" {
		crs = g.CRS.Properties.Name
	}
	if g.Geodesic != nil {
		geodesic = *g.Geodesic
	}

	if g.Type == "GeometryCollection" {
		if len(g.Geometries) == 0 {
			return nil, fmt.Errorf("%w: empty GeometryCollection", ErrInvalidGeoJSON)
		}
		parts := make([]*Node, len(g.Geometries))
		for i := range g.Geometries {
			p, err := g.Geometries[i].node()
			if err != nil {
				return nil, err
			}
			parts[i] = p
		}
		return call("GeometryConstructors.MultiGeometry",
			"geometries", parts,
			"crs", crs,
			"geodesic", geodesic), nil
	}

	fn, ok := geometryConstructors[g.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidGeoJSON, g.Type)
	}
	if len(g.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: %s without coordinates", ErrInvalidGeoJSON, g.Type)
	}
	var coords interface{}
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}
	if err := checkDepth(g.Type, coords); err != nil {
		return nil, err
	}

	if g.Type == "Point" || g.Type == "MultiPoint" {
		return call(fn, "coordinates", constant(coords), "crs", crs), nil
	}
	return call(fn, "coordinates", constant(coords), "crs", crs, "geodesic", geodesic), nil
}

var coordinateDepth = map[string]int{
	"Point":           1,
	"MultiPoint":      2,
	"LineString":      2,
	"LinearRing":      2,
	"MultiLineString": 3,
	"Polygon":         3,
	"MultiPolygon":    4,
}

// checkDepth verifies the nesting depth of the coordinate arrays and that
// the innermost arrays hold numbers.
func checkDepth(typ string, coords interface{}) error {
	want := coordinateDepth[typ]
	depth := 0
	cur := coords
	for {
		arr, ok := cur.([]interface{})
		if !ok {
			break
		}
		depth++
		if len(arr) == 0 {
			// empty rings/parts are left to the backend
			return nil
		}
		cur = arr[0]
	}
	if _, ok := cur.(float64); !ok || depth != want {
		return fmt.Errorf("%w: %s coordinates must be nested %d deep", ErrInvalidGeoJSON, typ, want)
	}
	return nil
}

// NewPoint builds a point from (possibly computed) coordinates. crs may be
// empty for EPSG:4326.
func NewPoint(coords interface{}, crs string) Geometry {
	return asGeometry(call("GeometryConstructors.Point", "coordinates", coords, "crs", optString(crs)))
}

func NewMultiPoint(coords interface{}, crs string) Geometry {
	return asGeometry(call("GeometryConstructors.MultiPoint", "coordinates", coords, "crs", optString(crs)))
}

func NewLineString(coords interface{}) Geometry {
	return asGeometry(call("GeometryConstructors.LineString", "coordinates", coords))
}

// NewPolygon builds a polygon. Planar polygons in a projected crs pass
// geodesic=false.
func NewPolygon(coords interface{}, crs string, geodesic *bool, maxError interface{}) Geometry {
	var g interface{}
	if geodesic != nil {
		g = *geodesic
	}
	return asGeometry(call("GeometryConstructors.Polygon",
		"coordinates", coords,
		"crs", optString(crs),
		"geodesic", g,
		"maxError", maxError))
}

func optString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (g Geometry) geomOp(op string, kv ...interface{}) *Node {
	return call("Geometry."+op, append([]interface{}{"geometry", g}, kv...)...)
}

func (g Geometry) Bounds(maxError interface{}) Geometry {
	return asGeometry(g.geomOp("bounds", "maxError", maxError))
}

func (g Geometry) Transform(proj interface{}, maxError interface{}) Geometry {
	return asGeometry(g.geomOp("transform", "proj", proj, "maxError", maxError))
}

func (g Geometry) Coordinates() List { return asList(g.geomOp("coordinates")) }
func (g Geometry) Geometries() List  { return asList(g.geomOp("geometries")) }
func (g Geometry) Type() String      { return asString(g.geomOp("type")) }

func (g Geometry) Length(maxError interface{}) Number {
	return asNumber(g.geomOp("length", "maxError", maxError))
}

func (g Geometry) Perimeter(maxError interface{}) Number {
	return asNumber(g.geomOp("perimeter", "maxError", maxError))
}

func (g Geometry) Area(maxError interface{}) Number {
	return asNumber(g.geomOp("area", "maxError", maxError))
}

// CutLines splits a line at the given distances along its length and
// returns a MultiLineString.
func (g Geometry) CutLines(distances interface{}, maxError interface{}) Geometry {
	return asGeometry(g.geomOp("cutLines", "distances", distances, "maxError", maxError))
}

func (g Geometry) Centroid(maxError interface{}) Geometry {
	return asGeometry(g.geomOp("centroid", "maxError", maxError))
}

func (g Geometry) Buffer(distance interface{}, maxError interface{}) Geometry {
	return asGeometry(g.geomOp("buffer", "distance", distance, "maxError", maxError))
}

func (g Geometry) Dissolve(maxError, proj interface{}) Geometry {
	return asGeometry(g.geomOp("dissolve", "maxError", maxError, "proj", proj))
}

func (g Geometry) Simplify(maxError, proj interface{}) Geometry {
	return asGeometry(g.geomOp("simplify", "maxError", maxError, "proj", proj))
}

func (g Geometry) binaryOp(op string, right Valuer, maxError interface{}) *Node {
	return call("Geometry."+op, "left", g, "right", right, "maxError", maxError)
}

func (g Geometry) Intersection(right Valuer, maxError interface{}) Geometry {
	return asGeometry(g.binaryOp("intersection", right, maxError))
}

func (g Geometry) Difference(right Valuer, maxError interface{}) Geometry {
	return asGeometry(g.binaryOp("difference", right, maxError))
}

func (g Geometry) Distance(right Valuer, maxError interface{}) Number {
	return asNumber(g.binaryOp("distance", right, maxError))
}
