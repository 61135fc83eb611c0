// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

// Feature is an ee.Feature: a geometry plus properties.
type Feature struct{ expr }

func asFeature(n *Node) Feature { return Feature{expr{n}} }

// NewFeature builds a feature. geometry may be nil for a feature without
// geometry.
func NewFeature(geometry Valuer, properties map[string]interface{}) Feature {
	var g interface{} = Null
	if geometry != nil && geometry.Node() != nil {
		g = geometry
	}
	var props interface{}
	if properties != nil {
		props = properties
	}
	return asFeature(call("Feature", "geometry", g, "metadata", props))
}

// FeatureOf reinterprets a computed value as a feature.
func FeatureOf(v Valuer) Feature { return asFeature(v.Node()) }

func (f Feature) Geometry() Geometry {
	return asGeometry(call("Feature.geometry", "feature", f))
}

// GeometryIn returns the geometry computed with maxError in proj.
func (f Feature) GeometryIn(maxError interface{}, proj interface{}) Geometry {
	return asGeometry(call("Feature.geometry", "feature", f, "maxError", maxError, "proj", proj))
}

func (f Feature) ID() String {
	return asString(call("Feature.id", "element", f))
}

func (f Feature) Set(key string, value interface{}) Feature {
	return asFeature(call("Element.set", "object", f, "key", key, "value", value))
}

func (f Feature) Get(property string) Object {
	return asObject(call("Element.get", "object", f, "property", property))
}

func (f Feature) GetNumber(property string) Number {
	return asNumber(call("Element.getNumber", "object", f, "property", property))
}

func (f Feature) CopyProperties(source Valuer) Feature {
	return asFeature(call("Element.copyProperties", "destination", f, "source", source))
}

func (f Feature) Area(maxError interface{}) Number {
	return asNumber(call("Feature.area", "feature", f, "maxError", maxError))
}

func (f Feature) Length(maxError interface{}) Number {
	return asNumber(call("Feature.length", "feature", f, "maxError", maxError))
}

func (f Feature) Simplify(maxError interface{}) Feature {
	return asFeature(call("Feature.simplify", "feature", f, "maxError", maxError))
}

// Transform reprojects the feature geometry to proj.
func (f Feature) Transform(proj interface{}, maxError interface{}) Feature {
	return asFeature(call("Feature.transform", "feature", f, "proj", proj, "maxError", maxError))
}

func (f Feature) Intersection(right Valuer, maxError, proj interface{}) Feature {
	return asFeature(call("Feature.intersection",
		"left", f,
		"right", right,
		"maxError", maxError,
		"proj", proj))
}

func (f Feature) Intersects(right Valuer, maxError, proj interface{}) Object {
	return asObject(call("Feature.intersects",
		"left", f,
		"right", right,
		"maxError", maxError,
		"proj", proj))
}
