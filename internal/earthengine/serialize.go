// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
)

// Expression is the wire form of a graph: a table of values and the id of
// the result.
type Expression struct {
	Result string                `json:"result"`
	Values map[string]*ValueNode `json:"values"`
}

// ValueNode is one entry of an Expression. Exactly one field is set.
type ValueNode struct {
	ConstantValue           json.RawMessage     `json:"constantValue,omitempty"`
	ArrayValue              *ArrayValue         `json:"arrayValue,omitempty"`
	DictionaryValue         *DictionaryValue    `json:"dictionaryValue,omitempty"`
	FunctionDefinitionValue *FunctionDefinition `json:"functionDefinitionValue,omitempty"`
	FunctionInvocationValue *FunctionInvocation `json:"functionInvocationValue,omitempty"`
	ArgumentReference       string              `json:"argumentReference,omitempty"`
	ValueReference          string              `json:"valueReference,omitempty"`
}

type ArrayValue struct {
	Values []*ValueNode `json:"values"`
}

type DictionaryValue struct {
	Values map[string]*ValueNode `json:"values"`
}

type FunctionDefinition struct {
	ArgumentNames []string `json:"argumentNames"`
	Body          string   `json:"body"`
}

type FunctionInvocation struct {
	FunctionName string                `json:"functionName"`
	Arguments    map[string]*ValueNode `json:"arguments"`
}

// Encode serializes the graph rooted at v.
//
// Structurally equal sub-graphs share one entry. Entries referenced exactly
// once are inlined into their parent; shared entries and function bodies stay
// in the table and are referenced by id. Ids are assigned in post-order, so
// the same graph always encodes to the same bytes.
func Encode(v Valuer) (*Expression, error) {
	if v == nil || v.Node() == nil {
		return nil, fmt.Errorf("earthengine: encode empty expression")
	}
	e := &encoder{
		ids:    make(map[*Node]string),
		keys:   make(map[string]string),
		table:  make(map[string]*ValueNode),
		refs:   make(map[string]int),
		bodies: make(map[string]bool),
		out:    make(map[string]*ValueNode),
	}

	root, err := e.visit(v.Node())
	if err != nil {
		return nil, err
	}
	e.keep(root)
	return &Expression{Result: root, Values: e.out}, nil
}

// Digest returns a stable hex SHA-256 of the encoded graph.
func Digest(expr *Expression) (string, error) {
	b, err := json.Marshal(expr)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

type encoder struct {
	ids    map[*Node]string
	keys   map[string]string // canonical JSON -> id
	table  map[string]*ValueNode
	next   int
	refs   map[string]int
	bodies map[string]bool
	out    map[string]*ValueNode
}

// visit hash-conses n and returns its table id. Children are stored as
// references so that the canonical form of a node is independent of the
// size of its sub-graphs.
func (e *encoder) visit(n *Node) (string, error) {
	if id, ok := e.ids[n]; ok {
		return id, nil
	}

	shallow, err := e.shallow(n)
	if err != nil {
		return "", err
	}
	key, err := json.Marshal(shallow)
	if err != nil {
		return "", fmt.Errorf("earthengine: encode %s: %w", describe(n), err)
	}

	id, ok := e.keys[string(key)]
	if !ok {
		id = strconv.Itoa(e.next)
		e.next++
		e.keys[string(key)] = id
		e.table[id] = shallow
		for _, child := range children(shallow) {
			if child.ValueReference != "" {
				e.refs[child.ValueReference]++
			}
		}
		if fd := shallow.FunctionDefinitionValue; fd != nil {
			e.bodies[fd.Body] = true
		}
	}
	e.ids[n] = id
	return id, nil
}

func (e *encoder) shallow(n *Node) (*ValueNode, error) {
	switch n.kind {
	case kindConstant:
		raw, err := json.Marshal(n.value)
		if err != nil {
			return nil, fmt.Errorf("earthengine: constant %v: %w", n.value, err)
		}
		return &ValueNode{ConstantValue: raw}, nil

	case kindArgument:
		return &ValueNode{ArgumentReference: n.param.name}, nil

	case kindArray:
		values := make([]*ValueNode, len(n.items))
		for i, item := range n.items {
			ref, err := e.ref(item)
			if err != nil {
				return nil, err
			}
			values[i] = ref
		}
		return &ValueNode{ArrayValue: &ArrayValue{Values: values}}, nil

	case kindDictionary:
		values, err := e.refMap(n.args)
		if err != nil {
			return nil, err
		}
		return &ValueNode{DictionaryValue: &DictionaryValue{Values: values}}, nil

	case kindInvocation:
		args, err := e.refMap(n.args)
		if err != nil {
			return nil, err
		}
		return &ValueNode{FunctionInvocationValue: &FunctionInvocation{FunctionName: n.fn, Arguments: args}}, nil

	case kindFunction:
		body, err := e.visit(n.body)
		if err != nil {
			return nil, err
		}
		return &ValueNode{FunctionDefinitionValue: &FunctionDefinition{
			ArgumentNames: []string{n.param.name},
			Body:          body,
		}}, nil
	}
	return nil, fmt.Errorf("earthengine: unknown node kind %d", n.kind)
}

// ref returns the representation of a child inside its parent. Constants and
// argument references are always written inline.
func (e *encoder) ref(n *Node) (*ValueNode, error) {
	if n.kind == kindConstant || n.kind == kindArgument {
		return e.shallow(n)
	}
	id, err := e.visit(n)
	if err != nil {
		return nil, err
	}
	return &ValueNode{ValueReference: id}, nil
}

func (e *encoder) refMap(m map[string]*Node) (map[string]*ValueNode, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]*ValueNode, len(m))
	for _, k := range keys {
		ref, err := e.ref(m[k])
		if err != nil {
			return nil, err
		}
		out[k] = ref
	}
	return out, nil
}

// keep places id in the output table, inlining its single-use children.
func (e *encoder) keep(id string) {
	if _, ok := e.out[id]; ok {
		return
	}
	e.out[id] = nil
	e.out[id] = e.expand(e.table[id])
}

func (e *encoder) expand(v *ValueNode) *ValueNode {
	if id := v.ValueReference; id != "" {
		if e.refs[id] == 1 && !e.bodies[id] {
			return e.expand(e.table[id])
		}
		e.keep(id)
		return v
	}

	switch {
	case v.ArrayValue != nil:
		values := make([]*ValueNode, len(v.ArrayValue.Values))
		for i, item := range v.ArrayValue.Values {
			values[i] = e.expand(item)
		}
		return &ValueNode{ArrayValue: &ArrayValue{Values: values}}
	case v.DictionaryValue != nil:
		return &ValueNode{DictionaryValue: &DictionaryValue{Values: e.expandMap(v.DictionaryValue.Values)}}
	case v.FunctionInvocationValue != nil:
		return &ValueNode{FunctionInvocationValue: &FunctionInvocation{
			FunctionName: v.FunctionInvocationValue.FunctionName,
			Arguments:    e.expandMap(v.FunctionInvocationValue.Arguments),
		}}
	case v.FunctionDefinitionValue != nil:
		e.keep(v.FunctionDefinitionValue.Body)
	}
	return v
}

func (e *encoder) expandMap(m map[string]*ValueNode) map[string]*ValueNode {
	out := make(map[string]*ValueNode, len(m))
	for k, child := range m {
		out[k] = e.expand(child)
	}
	return out
}

func children(v *ValueNode) []*ValueNode {
	switch {
	case v.ArrayValue != nil:
		return v.ArrayValue.Values
	case v.DictionaryValue != nil:
		return mapValues(v.DictionaryValue.Values)
	case v.FunctionInvocationValue != nil:
		return mapValues(v.FunctionInvocationValue.Arguments)
	}
	return nil
}

func mapValues(m map[string]*ValueNode) []*ValueNode {
	out := make([]*ValueNode, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func describe(n *Node) string {
	if n.kind == kindInvocation {
		return n.fn
	}
	return fmt.Sprintf("node kind %d", n.kind)
}
