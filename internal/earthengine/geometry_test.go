// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGeometryFromGeoJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "point",
			in:   `{"type":"Point","coordinates":[4.5,52.1]}`,
			want: `{"result":"0","values":{"0":{"functionInvocationValue":{
				"functionName":"GeometryConstructors.Point",
				"arguments":{"coordinates":{"constantValue":[4.5,52.1]}}}}}}`,
		},
		{
			name: "planar polygon with crs",
			in: `{"type":"Polygon","geodesic":false,
				"crs":{"type":"name","properties":{"name":"EPSG:3857"}},
				"coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`,
			want: `{"result":"0","values":{"0":{"functionInvocationValue":{
				"functionName":"GeometryConstructors.Polygon",
				"arguments":{
					"coordinates":{"constantValue":[[[0,0],[1,0],[1,1],[0,0]]]},
					"crs":{"constantValue":"EPSG:3857"},
					"geodesic":{"constantValue":false}}}}}}`,
		},
		{
			name: "feature wrapper",
			in:   `{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}`,
			want: `{"result":"0","values":{"0":{"functionInvocationValue":{
				"functionName":"GeometryConstructors.LineString",
				"arguments":{"coordinates":{"constantValue":[[0,0],[1,1]]}}}}}}`,
		},
		{
			name: "geometry collection",
			in:   `{"type":"GeometryCollection","geometries":[{"type":"Point","coordinates":[1,2]}]}`,
			want: `{"result":"2","values":{"2":{"functionInvocationValue":{
				"functionName":"GeometryConstructors.MultiGeometry",
				"arguments":{"geometries":{"arrayValue":{"values":[
					{"functionInvocationValue":{
						"functionName":"GeometryConstructors.Point",
						"arguments":{"coordinates":{"constantValue":[1,2]}}}}]}}}}}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := GeometryFromGeoJSON([]byte(tt.in))
			if err != nil {
				t.Fatalf("GeometryFromGeoJSON() error = %v", err)
			}
			if diff := cmp.Diff(parseJSON(t, tt.want), encodeJSON(t, g)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeometryFromGeoJSONInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{"type":`},
		{"unknown type", `{"type":"Circle","coordinates":[0,0]}`},
		{"missing coordinates", `{"type":"Point"}`},
		{"wrong depth", `{"type":"Polygon","coordinates":[[0,0],[1,1]]}`},
		{"non numeric", `{"type":"Point","coordinates":["a","b"]}`},
		{"feature without geometry", `{"type":"Feature","properties":{}}`},
		{"empty collection", `{"type":"GeometryCollection","geometries":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GeometryFromGeoJSON([]byte(tt.in))
			if !errors.Is(err, ErrInvalidGeoJSON) {
				t.Errorf("GeometryFromGeoJSON() error = %v, want ErrInvalidGeoJSON", err)
			}
		})
	}
}
