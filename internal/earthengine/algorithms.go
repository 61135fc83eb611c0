// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

// Reducer is an ee.Reducer.
type Reducer struct{ expr }

func reducer(name string, kv ...interface{}) Reducer {
	return Reducer{expr{call("Reducer."+name, kv...)}}
}

func MeanReducer() Reducer               { return reducer("mean") }
func MaxReducer() Reducer                { return reducer("max") }
func MinReducer() Reducer                { return reducer("min") }
func SumReducer() Reducer                { return reducer("sum") }
func MedianReducer() Reducer             { return reducer("median") }
func FirstNonNullReducer() Reducer       { return reducer("firstNonNull") }
func FrequencyHistogramReducer() Reducer { return reducer("frequencyHistogram") }

// PercentileReducer computes the given percentiles (0-100).
func PercentileReducer(percentiles ...float64) Reducer {
	return reducer("percentile", "percentiles", percentiles)
}

// SetOutputs renames the reducer outputs.
func (r Reducer) SetOutputs(outputs ...string) Reducer {
	return reducer("setOutputs", "reducer", r, "outputs", outputs)
}

// SetOutputList renames the reducer outputs to a computed list of names.
func (r Reducer) SetOutputList(outputs List) Reducer {
	return reducer("setOutputs", "reducer", r, "outputs", outputs)
}

// Filter is an ee.Filter.
type Filter struct{ expr }

func filter(name string, kv ...interface{}) Filter {
	return Filter{expr{call("Filter."+name, kv...)}}
}

// FilterEq matches elements whose property equals value.
func FilterEq(property string, value interface{}) Filter {
	return filter("equals", "leftField", property, "rightValue", value)
}

func FilterGt(property string, value interface{}) Filter {
	return filter("greaterThan", "leftField", property, "rightValue", value)
}

func FilterGte(property string, value interface{}) Filter {
	return filter("greaterThanOrEquals", "leftField", property, "rightValue", value)
}

func FilterLt(property string, value interface{}) Filter {
	return filter("lessThan", "leftField", property, "rightValue", value)
}

func FilterLte(property string, value interface{}) Filter {
	return filter("lessThanOrEquals", "leftField", property, "rightValue", value)
}

// FilterInList matches elements whose property is one of values.
func FilterInList(property string, values interface{}) Filter {
	return filter("listContains", "leftValue", values, "rightField", property)
}

// FilterListContains matches elements whose list property contains value.
func FilterListContains(property string, value interface{}) Filter {
	return filter("listContains", "leftField", property, "rightValue", value)
}

// FilterDate matches elements with system:time_start in [start, end).
func FilterDate(start, end interface{}) Filter {
	return filter("dateRangeContains",
		"leftValue", NewDateRange(start, end),
		"rightField", "system:time_start")
}

// FilterBounds matches elements whose footprint intersects geometry.
func FilterBounds(geometry Valuer) Filter {
	return filter("intersects",
		"leftField", ".all",
		"rightValue", geometry)
}

// FilterFieldsIntersect is a join condition on intersecting geometries of
// the primary and secondary elements.
func FilterFieldsIntersect(leftField, rightField string, maxError float64) Filter {
	return filter("intersects",
		"leftField", leftField,
		"rightField", rightField,
		"maxError", maxError)
}

// FilterFieldsEq is a join condition on equal properties of the primary and
// secondary elements.
func FilterFieldsEq(leftField, rightField string) Filter {
	return filter("equals", "leftField", leftField, "rightField", rightField)
}

func FilterAnd(filters ...Filter) Filter {
	return filter("and", "filters", filters)
}

func (f Filter) Not() Filter {
	return filter("not", "filter", f)
}

// Join is an ee.Join.
type Join struct{ expr }

// SaveAllJoin stores all matches of the secondary collection in the matchesKey
// property of each primary element.
func SaveAllJoin(matchesKey string) Join {
	return Join{expr{call("Join.saveAll", "matchesKey", matchesKey)}}
}

func (j Join) Apply(primary, secondary Valuer, condition Filter) FeatureCollection {
	return asFeatureCollection(call("Join.apply",
		"join", j,
		"primary", primary,
		"secondary", secondary,
		"condition", condition))
}

// Kernel is an ee.Kernel.
type Kernel struct{ expr }

func Laplacian8Kernel() Kernel {
	return Kernel{expr{call("Kernel.laplacian8")}}
}

// CircleKernel is a circular kernel with radius in pixels.
func CircleKernel(radius float64) Kernel {
	return Kernel{expr{call("Kernel.circle", "radius", radius)}}
}

// Projection is an ee.Projection.
type Projection struct{ expr }

func NewProjection(crs string) Projection {
	return Projection{expr{call("Projection", "crs", crs)}}
}

// AtScale returns the projection scaled to meters per pixel.
func (p Projection) AtScale(meters float64) Projection {
	return Projection{expr{call("Projection.atScale", "projection", p, "meters", meters)}}
}

// ErrorMargin builds a geometry error margin in meters.
func ErrorMargin(value float64) *Node {
	return call("ErrorMargin", "value", value, "unit", "meters")
}
