// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

// Number is an ee.Number.
type Number struct{ expr }

func asNumber(n *Node) Number { return Number{expr{n}} }

// NumberOf wraps a Go number or a computed value.
func NumberOf(v interface{}) Number { return asNumber(toNode(v)) }

// ParseNumber converts a computed string into a number.
func ParseNumber(s Valuer) Number {
	return asNumber(call("Number.parse", "input", s))
}

func (n Number) binary(op string, right interface{}) Number {
	return asNumber(call("Number."+op, "left", n, "right", right))
}

func (n Number) Add(right interface{}) Number      { return n.binary("add", right) }
func (n Number) Subtract(right interface{}) Number { return n.binary("subtract", right) }
func (n Number) Multiply(right interface{}) Number { return n.binary("multiply", right) }
func (n Number) Divide(right interface{}) Number   { return n.binary("divide", right) }
func (n Number) Max(right interface{}) Number      { return n.binary("max", right) }
func (n Number) Min(right interface{}) Number      { return n.binary("min", right) }

func (n Number) Int() Number { return asNumber(call("Number.int", "input", n)) }
func (n Number) Abs() Number { return asNumber(call("Number.abs", "input", n)) }

// Format renders the number with a Java-style format pattern.
func (n Number) Format(pattern string) String {
	return asString(call("Number.format", "number", n, "pattern", pattern))
}

// String is an ee.String.
type String struct{ expr }

func asString(n *Node) String { return String{expr{n}} }

func (s String) Cat(other interface{}) String {
	return asString(call("String.cat", "string1", s, "string2", other))
}

// List is an ee.List.
type List struct{ expr }

func asList(n *Node) List { return List{expr{n}} }

// ListOf wraps a Go slice of values.
func ListOf(items ...interface{}) List { return asList(toNode(items)) }

// Sequence is the list start, start+step, ... up to and including end.
func Sequence(start, end interface{}, step interface{}) List {
	return asList(call("List.sequence", "start", start, "end", end, "step", step))
}

func (l List) Get(index interface{}) Object {
	return asObject(call("List.get", "list", l, "index", index))
}

func (l List) Size() Number { return asNumber(call("List.size", "list", l)) }

func (l List) Length() Number { return asNumber(call("List.length", "list", l)) }

// Slice returns the elements from start on.
func (l List) Slice(start int) List {
	return asList(call("List.slice", "list", l, "start", start))
}

func (l List) Zip(other List) List {
	return asList(call("List.zip", "list", l, "other", other))
}

func (l List) Flatten() List { return asList(call("List.flatten", "list", l)) }

func (l List) Cat(other List) List {
	return asList(call("List.cat", "list", l, "other", other))
}

// Map applies fn to every element.
func (l List) Map(fn func(Object) Valuer) List {
	return asList(call("List.map",
		"list", l,
		"baseAlgorithm", lambda(func(arg *Node) Valuer { return fn(asObject(arg)) })))
}

// Dictionary is an ee.Dictionary.
type Dictionary struct{ expr }

func asDictionary(n *Node) Dictionary { return Dictionary{expr{n}} }

// DictionaryOf builds a server-side dictionary; entries may hold computed
// values.
func DictionaryOf(entries map[string]interface{}) Dictionary {
	return asDictionary(call("Dictionary", "input", entries))
}

func (d Dictionary) Get(key interface{}) Object {
	return asObject(call("Dictionary.get", "dictionary", d, "key", key))
}

func (d Dictionary) GetNumber(key interface{}) Number {
	return asNumber(call("Dictionary.getNumber", "dictionary", d, "key", key))
}

func (d Dictionary) Keys() List   { return asList(call("Dictionary.keys", "dictionary", d)) }
func (d Dictionary) Values() List { return asList(call("Dictionary.values", "dictionary", d)) }

func (d Dictionary) Set(key string, value interface{}) Dictionary {
	return asDictionary(call("Dictionary.set", "dictionary", d, "key", key, "value", value))
}

// Date is an ee.Date.
type Date struct{ expr }

func asDate(n *Node) Date { return Date{expr{n}} }

// NewDate parses an ISO-8601 date string or wraps epoch millis.
func NewDate(value interface{}) Date {
	return asDate(call("Date", "value", value))
}

// Advance moves the date by delta units (year, month, week, day, hour,
// minute, second).
func (d Date) Advance(delta interface{}, unit string) Date {
	return asDate(call("Date.advance", "date", d, "delta", delta, "unit", unit))
}

func (d Date) Millis() Number { return asNumber(call("Date.millis", "input", d)) }

// Format renders the date with a Joda pattern; an empty pattern gives ISO.
func (d Date) Format(pattern string) String {
	return asString(call("Date.format", "date", d, "format", optString(pattern)))
}

// DateRange is a half-open [start, end) interval.
type DateRange struct{ expr }

func NewDateRange(start, end interface{}) DateRange {
	return DateRange{expr{call("DateRange", "start", start, "end", end)}}
}

func (r DateRange) Start() Date { return asDate(call("DateRange.start", "range", r)) }
func (r DateRange) End() Date   { return asDate(call("DateRange.end", "range", r)) }
