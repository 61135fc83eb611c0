// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

// encodeJSON encodes v and returns the expression as generic JSON so it can
// be compared against a literal.
func encodeJSON(t *testing.T, v Valuer) interface{} {
	t.Helper()
	expr, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	b, err := json.Marshal(expr)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return out
}

func parseJSON(t *testing.T, s string) interface{} {
	t.Helper()
	var out interface{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("bad test JSON: %v", err)
	}
	return out
}

func TestEncodeInlinesSingleUseValues(t *testing.T) {
	got := encodeJSON(t, LoadImage("a").Add(1))
	want := parseJSON(t, `{
		"result": "2",
		"values": {
			"2": {"functionInvocationValue": {
				"functionName": "Image.add",
				"arguments": {
					"image1": {"functionInvocationValue": {
						"functionName": "Image.load",
						"arguments": {"id": {"constantValue": "a"}}
					}},
					"image2": {"functionInvocationValue": {
						"functionName": "Image.constant",
						"arguments": {"value": {"constantValue": 1}}
					}}
				}
			}}
		}
	}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeSharesEqualSubgraphs(t *testing.T) {
	want := parseJSON(t, `{
		"result": "1",
		"values": {
			"0": {"functionInvocationValue": {
				"functionName": "Image.load",
				"arguments": {"id": {"constantValue": "a"}}
			}},
			"1": {"functionInvocationValue": {
				"functionName": "Image.add",
				"arguments": {
					"image1": {"valueReference": "0"},
					"image2": {"valueReference": "0"}
				}
			}}
		}
	}`)

	img := LoadImage("a")
	tests := []struct {
		name string
		v    Valuer
	}{
		{"same node", img.Add(img)},
		{"structurally equal nodes", LoadImage("a").Add(LoadImage("a"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(want, encodeJSON(t, tt.v)); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeLambda(t *testing.T) {
	c := LoadImageCollection("c").Map(func(i Image) Image { return i.Multiply(2) })
	want := parseJSON(t, `{
		"result": "4",
		"values": {
			"1": {"functionInvocationValue": {
				"functionName": "Image.multiply",
				"arguments": {
					"image1": {"argumentReference": "_MAPPING_VAR_0_0"},
					"image2": {"functionInvocationValue": {
						"functionName": "Image.constant",
						"arguments": {"value": {"constantValue": 2}}
					}}
				}
			}},
			"4": {"functionInvocationValue": {
				"functionName": "Collection.map",
				"arguments": {
					"baseAlgorithm": {"functionDefinitionValue": {
						"argumentNames": ["_MAPPING_VAR_0_0"],
						"body": "1"
					}},
					"collection": {"functionInvocationValue": {
						"functionName": "ImageCollection.load",
						"arguments": {"id": {"constantValue": "c"}}
					}}
				}
			}}
		}
	}`)
	if diff := cmp.Diff(want, encodeJSON(t, c)); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestLambdaNamesCountNestedFunctions(t *testing.T) {
	inner := func(f Feature) Valuer {
		return f.Geometry().Coordinates().Map(func(o Object) Valuer { return o.AsNumber().Add(1) })
	}
	fc := LoadFeatureCollection("t").Map(inner)

	expr, err := Encode(fc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var names []string
	var walk func(v *ValueNode)
	walk = func(v *ValueNode) {
		if v == nil {
			return
		}
		if fd := v.FunctionDefinitionValue; fd != nil {
			names = append(names, fd.ArgumentNames...)
			walk(expr.Values[fd.Body])
		}
		for _, c := range children(v) {
			walk(c)
		}
	}
	walk(expr.Values[expr.Result])

	want := []string{"_MAPPING_VAR_1_0", "_MAPPING_VAR_0_0"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("lambda argument names mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	build := func(threshold float64) Valuer {
		return LoadImageCollection("JRC/GSW1_0/MonthlyHistory").
			FilterDate("2019-01-01", "2020-01-01").
			Map(func(i Image) Image { return i.Eq(2) }).
			Sum().
			Gt(threshold)
	}

	d1 := digest(t, build(0.3))
	d2 := digest(t, build(0.3))
	d3 := digest(t, build(0.4))

	if d1 != d2 {
		t.Errorf("identical graphs gave different digests %s and %s", d1, d2)
	}
	if d1 == d3 {
		t.Errorf("different graphs gave the same digest %s", d1)
	}
}

func digest(t *testing.T, v Valuer) string {
	t.Helper()
	expr, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	d, err := Digest(expr)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	return d
}

func TestEncodeNullAndOmittedArguments(t *testing.T) {
	got := encodeJSON(t, NewFeature(nil, nil))
	want := parseJSON(t, `{
		"result": "0",
		"values": {
			"0": {"functionInvocationValue": {
				"functionName": "Feature",
				"arguments": {"geometry": {"constantValue": null}}
			}}
		}
	}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeEmpty(t *testing.T) {
	if _, err := Encode(Image{}); err == nil {
		t.Error("Encode(empty image) expected error")
	}
	if _, err := Encode(nil); err == nil {
		t.Error("Encode(nil) expected error")
	}
}
