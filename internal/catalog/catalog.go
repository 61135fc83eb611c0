// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

// Package catalog holds the static dataset tables: bathymetry collections,
// HydroSHEDS assets, raster assets, LIWO scenario collections, elevation
// layers, DGDS visualization parameters and the SLD styles. The tables are
// embedded YAML and XML, parsed once.
package catalog

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed datasets.yaml styles/*.sld
var files embed.FS

// Source types.
const (
	TypeImage           = "Image"
	TypeImageCollection = "ImageCollection"
)

// Catalog is the parsed dataset catalog.
type Catalog struct {
	Palettes      map[string]string            `yaml:"palettes"`
	Bathymetry    map[string]BathymetryDataset `yaml:"bathymetry"`
	Profiles      map[string]string            `yaml:"profiles"`
	HydroSHEDS    HydroSHEDS                   `yaml:"hydrosheds"`
	Rasters       map[string]RasterAsset       `yaml:"rasters"`
	LIWO          map[string]LIWOCollection    `yaml:"liwo"`
	Elevation     []ElevationDataset           `yaml:"elevation"`
	Visualization map[string]*VisSource        `yaml:"visualization"`

	styles map[string]string
}

// BathymetryDataset is a time series of survey grids.
type BathymetryDataset struct {
	Collection string  `yaml:"collection"`
	Min        float64 `yaml:"min"`
	Max        float64 `yaml:"max"`
	// Palette names an entry of Catalog.Palettes.
	Palette string `yaml:"palette"`
}

// HydroSHEDS holds the basin, river and lake assets.
type HydroSHEDS struct {
	Basins        map[int]string `yaml:"basins"`
	UpstreamIndex string         `yaml:"upstream_index"`
	UpstreamLevel int            `yaml:"upstream_level"`
	Rivers        string         `yaml:"rivers"`
	Lakes         string         `yaml:"lakes"`
}

// RasterAsset is a static model input layer.
type RasterAsset struct {
	Asset string `yaml:"asset"`
	// Collection assets are mosaicked before use.
	Collection bool `yaml:"collection"`
}

// LIWOCollection describes one version of the flood scenario collection.
type LIWOCollection struct {
	Collection string            `yaml:"collection"`
	IDKey      string            `yaml:"id_key"`
	FullBands  []string          `yaml:"full_bands"`
	Bands      map[string]string `yaml:"bands"`
	Reducers   map[string]string `yaml:"reducers"`
}

// ElevationDataset is one layer of the elevation mosaic.
type ElevationDataset struct {
	Name       string `yaml:"name"`
	Asset      string `yaml:"asset"`
	Band       string `yaml:"band"`
	Collection bool   `yaml:"collection"`
}

// VisRange is a plain min/max/palette triple.
type VisRange struct {
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Palette []string `yaml:"palette"`
}

// VisSource holds the visualization parameters of one DGDS source.
type VisSource struct {
	Type      string              `yaml:"type"`
	BandNames map[string]string   `yaml:"bandNames"`
	Function  Functions           `yaml:"function"`
	Min       map[string]float64  `yaml:"min"`
	Max       map[string]float64  `yaml:"max"`
	Palette   map[string][]string `yaml:"palette"`
	SLDStyle  string              `yaml:"sld_style"`
	BathyOnly bool                `yaml:"bathy_only"`
	TopoVis   *VisRange           `yaml:"topo_vis_params"`
	BathyVis  *VisRange           `yaml:"bathy_vis_params"`
}

// Functions is either a list of allowed image operations or a per-band map
// of the operation always applied to that band.
type Functions struct {
	List    []string
	PerBand map[string]string
}

// UnmarshalYAML accepts a sequence or a mapping.
func (f *Functions) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&f.List)
	case yaml.MappingNode:
		return node.Decode(&f.PerBand)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
	}
	return fmt.Errorf("line %d: function must be a list or a map", node.Line)
}

// IsZero reports whether no function is configured.
func (f Functions) IsZero() bool {
	return len(f.List) == 0 && len(f.PerBand) == 0
}

// Default returns the operation applied when the request names none: the
// first list entry, or the band's entry in a per-band map.
func (f Functions) Default(band string) string {
	if len(f.List) > 0 {
		return f.List[0]
	}
	return f.PerBand[band]
}

// Allows reports whether fn may be applied to band.
func (f Functions) Allows(fn, band string) bool {
	if len(f.List) > 0 {
		for _, v := range f.List {
			if v == fn {
				return true
			}
		}
		return false
	}
	return f.PerBand[band] == fn
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded files are
// malformed, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = load()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCatalog
}

func load() (*Catalog, error) {
	data, err := files.ReadFile("datasets.yaml")
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	entries, err := files.ReadDir("styles")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		raw, err := files.ReadFile(path.Join("styles", e.Name()))
		if err != nil {
			return nil, err
		}
		c.styles[strings.TrimSuffix(e.Name(), ".sld")] = compactXML(string(raw))
	}
	return c, c.validate()
}

// Parse parses a catalog document. Styles are not loaded.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.styles = make(map[string]string)
	return &c, nil
}

// compactXML joins the lines of an SLD document, dropping indentation.
func compactXML(s string) string {
	lines := strings.Split(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(strings.TrimSpace(l))
	}
	return b.String()
}

// LIWOReducers are the reducer names a LIWO band may use.
var LIWOReducers = map[string]bool{"max": true, "min": true, "mean": true, "sum": true}

func (c *Catalog) validate() error {
	for name, d := range c.Bathymetry {
		if _, ok := c.Palettes[d.Palette]; !ok {
			return fmt.Errorf("bathymetry %s: unknown palette %q", name, d.Palette)
		}
	}
	for name, ds := range c.Profiles {
		if _, ok := c.Bathymetry[ds]; !ok {
			return fmt.Errorf("profile %s: unknown bathymetry dataset %q", name, ds)
		}
	}
	for version, l := range c.LIWO {
		for band := range l.Bands {
			r, ok := l.Reducers[band]
			if !ok {
				return fmt.Errorf("liwo %s: band %s has no reducer", version, band)
			}
			if !LIWOReducers[r] {
				return fmt.Errorf("liwo %s: band %s: unknown reducer %q", version, band, r)
			}
			if _, ok := c.styles[band]; !ok {
				return fmt.Errorf("liwo %s: band %s has no style", version, band)
			}
		}
	}
	for source, v := range c.Visualization {
		if v.Type != TypeImage && v.Type != TypeImageCollection {
			return fmt.Errorf("visualization %s: bad type %q", source, v.Type)
		}
		if v.SLDStyle != "" {
			if _, ok := c.styles[v.SLDStyle]; !ok {
				return fmt.Errorf("visualization %s: unknown style %q", source, v.SLDStyle)
			}
		}
	}
	return nil
}

// BathymetryDataset returns the named bathymetry dataset.
func (c *Catalog) BathymetryDataset(name string) (BathymetryDataset, bool) {
	d, ok := c.Bathymetry[name]
	return d, ok
}

// Palette returns a named comma-separated palette.
func (c *Catalog) Palette(name string) (string, bool) {
	p, ok := c.Palettes[name]
	return p, ok
}

// ProfileDataset resolves a raster profile dataset name
// (bathymetry_jetski, ...) to its bathymetry dataset.
func (c *Catalog) ProfileDataset(name string) (BathymetryDataset, bool) {
	ds, ok := c.Profiles[name]
	if !ok {
		return BathymetryDataset{}, false
	}
	return c.BathymetryDataset(ds)
}

// BasinCollection returns the HydroBASINS collection for a level.
func (c *Catalog) BasinCollection(level int) (string, bool) {
	id, ok := c.HydroSHEDS.Basins[level]
	return id, ok
}

// RasterAsset returns a get_raster variable.
func (c *Catalog) RasterAsset(variable string) (RasterAsset, bool) {
	a, ok := c.Rasters[variable]
	return a, ok
}

// LIWOCollection returns the scenario collection for a version ("v1", "v2").
func (c *Catalog) LIWOCollection(version string) (LIWOCollection, bool) {
	l, ok := c.LIWO[version]
	return l, ok
}

// SLDStyle returns a style by name, as a single line of XML.
func (c *Catalog) SLDStyle(name string) (string, bool) {
	s, ok := c.styles[name]
	return s, ok
}

// ElevationDataset returns an elevation layer by name.
func (c *Catalog) ElevationDataset(name string) (ElevationDataset, bool) {
	for _, d := range c.Elevation {
		if d.Name == name {
			return d, true
		}
	}
	return ElevationDataset{}, false
}

// ElevationNames lists the elevation layers in default mosaic order.
func (c *Catalog) ElevationNames() []string {
	names := make([]string, len(c.Elevation))
	for i, d := range c.Elevation {
		names[i] = d.Name
	}
	return names
}

// VisParams returns the visualization parameters of a DGDS source.
func (c *Catalog) VisParams(source string) (*VisSource, bool) {
	v, ok := c.Visualization[source]
	return v, ok
}

// Summary lists the keys of every table, sorted, for the datasets command.
func (c *Catalog) Summary() map[string][]string {
	out := map[string][]string{
		"bathymetry":    sortedKeys(c.Bathymetry),
		"profiles":      sortedKeys(c.Profiles),
		"rasters":       sortedKeys(c.Rasters),
		"liwo":          sortedKeys(c.LIWO),
		"visualization": sortedKeys(c.Visualization),
		"styles":        sortedKeys(c.styles),
		"elevation":     c.ElevationNames(),
	}
	levels := make([]string, 0, len(c.HydroSHEDS.Basins))
	for l := range c.HydroSHEDS.Basins {
		levels = append(levels, fmt.Sprintf("level %d", l))
	}
	sort.Strings(levels)
	out["basins"] = levels
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
