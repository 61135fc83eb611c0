// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hydroengine/internal/cache"
	"github.com/tomtom215/hydroengine/internal/catalog"
	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/earthengine"
)

// Service builds expression graphs for every hydroengine operation and
// evaluates them on the backend.
type Service struct {
	backend earthengine.Backend
	maps    *cache.MapCache
	catalog *catalog.Catalog
	cfg     *config.Config
	tasks   TaskTracker
}

// TaskTracker is told about every batch operation the service starts.
type TaskTracker interface {
	Track(op *earthengine.Operation)
}

// NewService creates a service. maps may be nil, in which case every map is
// created on the backend.
func NewService(backend earthengine.Backend, maps *cache.MapCache, cat *catalog.Catalog, cfg *config.Config) *Service {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Service{
		backend: backend,
		maps:    maps,
		catalog: cat,
		cfg:     cfg,
	}
}

// SetTaskTracker registers the tracker for submitted export tasks.
func (s *Service) SetTaskTracker(t TaskTracker) {
	s.tasks = t
}

// Tracker returns the registered task tracker, or nil.
func (s *Service) Tracker() TaskTracker {
	return s.tasks
}

// HasMapCache reports whether map ids are memoized.
func (s *Service) HasMapCache() bool {
	return s.maps != nil
}

// Catalog returns the dataset catalog used by the service.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Backend returns the backend the service evaluates graphs on.
func (s *Service) Backend() earthengine.Backend {
	return s.backend
}

// UsageError is a request the service cannot serve as asked. Status
// defaults to 400.
type UsageError struct {
	Message string
	Status  int
}

func (e *UsageError) Error() string { return e.Message }

// HTTPStatus returns the status code for the error.
func (e *UsageError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

func usageErrorf(format string, args ...interface{}) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err is or wraps a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// geometry parses a GeoJSON request field.
func geometry(field string, raw json.RawMessage) (earthengine.Geometry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return earthengine.Geometry{}, usageErrorf("%s is required", field)
	}
	g, err := earthengine.GeometryFromGeoJSON(raw)
	if err != nil {
		return earthengine.Geometry{}, usageErrorf("%s: %v", field, err)
	}
	return g, nil
}

// compute evaluates v and returns the raw JSON result.
func (s *Service) compute(ctx context.Context, v earthengine.Valuer) (json.RawMessage, error) {
	out, err := s.backend.Compute(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("compute: %w", err)
	}
	return out, nil
}

// computeInto evaluates v and decodes the result into out.
func (s *Service) computeInto(ctx context.Context, v earthengine.Valuer, out interface{}) error {
	raw, err := s.compute(ctx, v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode compute result: %w", err)
	}
	return nil
}

// createMap registers a visualized image, going through the map cache when
// one is configured.
func (s *Service) createMap(ctx context.Context, image earthengine.Image) (*earthengine.MapID, error) {
	var (
		id  *earthengine.MapID
		err error
	)
	if s.maps != nil {
		id, err = s.maps.GetOrCreate(ctx, image, earthengine.MapOptions{}, s.backend.CreateMap)
	} else {
		id, err = s.backend.CreateMap(ctx, image, earthengine.MapOptions{})
	}
	if err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}
	return id, nil
}

// tableURL returns a GeoJSON download URL for fc.
func (s *Service) tableURL(ctx context.Context, fc earthengine.FeatureCollection) (*URLResult, error) {
	url, err := s.backend.TableDownloadURL(ctx, fc, "json")
	if err != nil {
		return nil, fmt.Errorf("table download: %w", err)
	}
	return &URLResult{URL: url}, nil
}

// URLResult is a bare {"url": ...} response.
type URLResult struct {
	URL string `json:"url"`
}

// GeoJSONResult is a backend result passed through verbatim, usually a
// FeatureCollection.
type GeoJSONResult = json.RawMessage

// Welcome is the text served at the root path.
const Welcome = `Welcome to Hydro Earth Engine. Currently, only RESTful API is supported. Visit <a href="http://github.com/deltares/hydro-engine">http://github.com/deltares/hydro-engine</a> for more information ...`

// MapExpression returns the expression graph a map id was created from.
func (s *Service) MapExpression(mapID string) (*earthengine.Expression, error) {
	if s.maps == nil {
		return nil, &UsageError{Message: "map cache disabled", Status: http.StatusNotFound}
	}
	expr, err := s.maps.Expression(mapID)
	if errors.Is(err, cache.ErrUnknownMap) {
		return nil, &UsageError{Message: fmt.Sprintf("unknown map %q", mapID), Status: http.StatusNotFound}
	}
	return expr, err
}
