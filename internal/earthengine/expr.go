// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

/*
Package earthengine builds Earth Engine expression graphs and evaluates them
through the Earth Engine REST API (v1).

Graphs are assembled with typed, immutable wrappers (Image, ImageCollection,
Feature, FeatureCollection, Geometry, Number, List, ...). Every method returns
a new value; nothing is sent to the backend until a graph is handed to a
Backend:

	img := earthengine.LoadImageCollection("JRC/GSW1_0/MonthlyHistory").
		FilterDate("2019-01-01", "2020-01-01").
		Map(func(i earthengine.Image) earthengine.Image { return i.Eq(2) }).
		Sum()
	mapID, err := backend.CreateMap(ctx, img.Visualize(vis), earthengine.MapOptions{})

Lambdas passed to Map are Go closures. They are invoked once, while the graph
is being built, with an argument reference standing in for the element.
*/
package earthengine

import (
	"fmt"
	"reflect"
	"sort"
)

type nodeKind uint8

const (
	kindConstant nodeKind = iota
	kindInvocation
	kindArray
	kindDictionary
	kindArgument
	kindFunction
)

// Node is one vertex of an expression graph. Nodes are immutable once built
// and may be shared between graphs.
type Node struct {
	kind  nodeKind
	value interface{}      // constant
	fn    string           // invocation
	args  map[string]*Node // invocation, dictionary
	items []*Node          // array
	param *variable        // argument reference, function definition
	body  *Node            // function definition

	// functions counts function definitions at or below this node.
	functions int
}

// variable is a lambda parameter. Its name is assigned after the body has
// been built, because the name depends on how many function definitions the
// body contains.
type variable struct {
	name string
}

// Node returns n itself so a bare *Node satisfies Valuer.
func (n *Node) Node() *Node { return n }

// Valuer is implemented by every typed wrapper in this package.
type Valuer interface {
	Node() *Node
}

type nullValue struct{}

// Null is an explicit JSON null argument. A nil Go value instead omits the
// argument altogether.
var Null = nullValue{}

func constant(v interface{}) *Node {
	return &Node{kind: kindConstant, value: v}
}

func argument(v *variable) *Node {
	return &Node{kind: kindArgument, param: v}
}

// call builds a function invocation. kv alternates argument names and
// values; nil values are dropped.
func call(fn string, kv ...interface{}) *Node {
	if len(kv)%2 != 0 {
		panic("earthengine: odd argument list for " + fn)
	}
	n := &Node{kind: kindInvocation, fn: fn, args: make(map[string]*Node, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("earthengine: argument name %v of %s is not a string", kv[i], fn))
		}
		child := toNode(kv[i+1])
		if child == nil {
			continue
		}
		n.args[name] = child
		n.functions += child.functions
	}
	return n
}

// lambda builds a one-argument function definition. The parameter is named
// _MAPPING_VAR_<n>_0 where n counts the function definitions inside the body,
// so nested lambdas never shadow each other and identical lambdas serialize
// identically.
func lambda(body func(arg *Node) Valuer) *Node {
	v := &variable{}
	b := toNode(body(argument(v)))
	if b == nil {
		b = constant(nil)
	}
	v.name = fmt.Sprintf("_MAPPING_VAR_%d_0", b.functions)
	return &Node{kind: kindFunction, param: v, body: b, functions: b.functions + 1}
}

// toNode converts Go values into graph nodes. Numbers, strings and booleans
// become constants, slices become arrays and string-keyed maps become
// dictionaries.
func toNode(v interface{}) *Node {
	switch x := v.(type) {
	case nil:
		return nil
	case *Node:
		return x
	case Valuer:
		if reflect.ValueOf(x).Kind() == reflect.Ptr && reflect.ValueOf(x).IsNil() {
			return nil
		}
		return x.Node()
	case nullValue:
		return constant(nil)
	case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return constant(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return toNode(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		n := &Node{kind: kindArray, items: make([]*Node, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			item := toNode(rv.Index(i).Interface())
			if item == nil {
				item = constant(nil)
			}
			n.items[i] = item
			n.functions += item.functions
		}
		return n
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		n := &Node{kind: kindDictionary, args: make(map[string]*Node, rv.Len())}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			item := toNode(rv.MapIndex(k).Interface())
			if item == nil {
				item = constant(nil)
			}
			n.args[k.String()] = item
			n.functions += item.functions
		}
		return n
	}
	panic(fmt.Sprintf("earthengine: cannot use %T in an expression", v))
}

// expr is embedded by every typed wrapper.
type expr struct {
	n *Node
}

// Node returns the underlying graph node.
func (e expr) Node() *Node { return e.n }

// Object is a computed value of unknown type, e.g. the result of List.get or
// Element.get. Cast it with one of its conversion methods.
type Object struct{ expr }

func asObject(n *Node) Object { return Object{expr{n}} }

func (o Object) AsNumber() Number { return asNumber(o.n) }
func (o Object) AsString() String { return asString(o.n) }
func (o Object) AsList() List { return asList(o.n) }
func (o Object) AsDictionary() Dictionary { return asDictionary(o.n) }
func (o Object) AsGeometry() Geometry { return asGeometry(o.n) }
func (o Object) AsFeature() Feature { return asFeature(o.n) }
func (o Object) AsFeatureCollection() FeatureCollection { return asFeatureCollection(o.n) }
func (o Object) AsImage() Image { return asImage(o.n) }
func (o Object) AsDate() Date { return asDate(o.n) }

// If evaluates to trueCase when condition is truthy on the server.
func If(condition, trueCase, falseCase interface{}) Object {
	return asObject(call("If",
		"condition", condition,
		"trueCase", trueCase,
		"falseCase", falseCase))
}
