// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package earthengine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/metrics"
)

// Backend evaluates expression graphs. Client talks to the REST API;
// CircuitBreakerBackend wraps any Backend; tests use fakes.
type Backend interface {
	// Compute evaluates v and returns the JSON result.
	Compute(ctx context.Context, v Valuer) (json.RawMessage, error)
	// CreateMap registers a visualized image for tile serving.
	CreateMap(ctx context.Context, image Image, opts MapOptions) (*MapID, error)
	// ImageDownloadURL returns a URL serving the image as a file.
	ImageDownloadURL(ctx context.Context, image Image, opts DownloadOptions) (string, error)
	// TableDownloadURL returns a URL serving fc as a file.
	TableDownloadURL(ctx context.Context, fc FeatureCollection, format string) (string, error)
	// ExportImage starts a batch export to Cloud Storage.
	ExportImage(ctx context.Context, opts ExportOptions) (*Operation, error)
	// GetOperation returns the state of a batch operation.
	GetOperation(ctx context.Context, name string) (*Operation, error)
	// Ping checks that credentials can be obtained.
	Ping(ctx context.Context) error
}

// MapID identifies a tile layer. Token is always empty with the REST API and
// is only kept for response compatibility.
type MapID struct {
	MapID string `json:"mapid"`
	Token string `json:"token"`
	URL   string `json:"url"`
}

// MapOptions configures CreateMap.
type MapOptions struct {
	// Format is the tile format, PNG by default.
	Format string
}

// DownloadOptions configures ImageDownloadURL.
type DownloadOptions struct {
	Name   string
	Format string // "tif" (default), "png" or "jpg"
	CRS    string
	Scale  float64
	Region Valuer
}

// ExportOptions configures ExportImage.
type ExportOptions struct {
	Image          Image
	Description    string
	Bucket         string
	FilenamePrefix string
	Region         Valuer
	Scale          float64
	CRS            string
	MaxPixels      int64
}

// Operation is a long-running batch operation.
type Operation struct {
	Name     string            `json:"name"`
	Metadata OperationMetadata `json:"metadata"`
	Done     bool              `json:"done"`
	Error    *OperationError   `json:"error,omitempty"`
}

type OperationMetadata struct {
	Type            string   `json:"type,omitempty"`
	State           string   `json:"state,omitempty"`
	Description     string   `json:"description,omitempty"`
	CreateTime      string   `json:"createTime,omitempty"`
	UpdateTime      string   `json:"updateTime,omitempty"`
	DestinationURIs []string `json:"destinationUris,omitempty"`
	Progress        float64  `json:"progress,omitempty"`
}

type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Operation states.
const (
	StatePending    = "PENDING"
	StateRunning    = "RUNNING"
	StateCancelling = "CANCELLING"
	StateSucceeded  = "SUCCEEDED"
	StateCancelled  = "CANCELLED"
	StateFailed     = "FAILED"
	StateUnknown    = "UNKNOWN"
)

// TaskID is the last path segment of the operation name.
func (o *Operation) TaskID() string {
	if i := strings.LastIndex(o.Name, "/"); i >= 0 {
		return o.Name[i+1:]
	}
	return o.Name
}

// Terminal reports whether the operation will not change state again.
func (o *Operation) Terminal() bool {
	switch o.Metadata.State {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return o.Done
}

var legacyStates = map[string]string{
	StatePending:    "READY",
	StateRunning:    "RUNNING",
	StateSucceeded:  "COMPLETED",
	StateFailed:     "FAILED",
	StateCancelling: "CANCEL_REQUESTED",
	StateCancelled:  "CANCELLED",
}

// LegacyState maps the operation state onto the task states reported by the
// old batch API (READY, RUNNING, COMPLETED, ...).
func (o *Operation) LegacyState() string {
	if s, ok := legacyStates[o.Metadata.State]; ok {
		return s
	}
	return StateUnknown
}

// Scopes requested for service account tokens.
var Scopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

// legacyProject is used when no cloud project is configured.
const legacyProject = "earthengine-legacy"

// Client is a Backend talking to the Earth Engine REST API.
//
// Requests are throttled client-side with a token bucket and retried with
// exponential backoff on 429 and 503. Safe for concurrent use.
type Client struct {
	endpoint       string
	project        string
	httpClient     *http.Client
	tokens         oauth2.TokenSource
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a client. ts may be nil for anonymous access to a local
// fake of the API.
func NewClient(cfg *config.BackendConfig, ts oauth2.TokenSource) *Client {
	var transport http.RoundTripper = http.DefaultTransport
	if ts != nil {
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	project := cfg.Project
	if project == "" {
		project = legacyProject
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		project:  project,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		tokens:         ts,
		limiter:        rate.NewLimiter(rate.Limit(cfg.QPS), cfg.Burst),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: time.Second,
	}
}

func (c *Client) projectPath(method string) string {
	return fmt.Sprintf("v1/projects/%s/%s", c.project, method)
}

func (c *Client) url(path string) string {
	return c.endpoint + "/" + path
}

// Ping fetches a token. Anonymous clients are always ready.
func (c *Client) Ping(ctx context.Context) error {
	if c.tokens == nil {
		return nil
	}
	if _, err := c.tokens.Token(); err != nil {
		return fmt.Errorf("earthengine: obtain token: %w", err)
	}
	return ctx.Err()
}

type computeRequest struct {
	Expression *Expression `json:"expression"`
}

type computeResponse struct {
	Result json.RawMessage `json:"result"`
}

// Compute evaluates v with value:compute.
func (c *Client) Compute(ctx context.Context, v Valuer) (json.RawMessage, error) {
	expr, err := Encode(v)
	if err != nil {
		return nil, err
	}
	var resp computeResponse
	if err := c.do(ctx, "compute", http.MethodPost, c.projectPath("value:compute"), computeRequest{Expression: expr}, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

type mapRequest struct {
	Expression *Expression `json:"expression"`
	FileFormat string      `json:"fileFormat,omitempty"`
}

type namedResponse struct {
	Name string `json:"name"`
}

// CreateMap registers image with maps.create.
func (c *Client) CreateMap(ctx context.Context, image Image, opts MapOptions) (*MapID, error) {
	expr, err := Encode(image)
	if err != nil {
		return nil, err
	}
	format := opts.Format
	if format == "" {
		format = "PNG"
	}
	var resp namedResponse
	if err := c.do(ctx, "create_map", http.MethodPost, c.projectPath("maps"), mapRequest{Expression: expr, FileFormat: format}, &resp); err != nil {
		return nil, err
	}
	return &MapID{
		MapID: resp.Name,
		URL:   c.url("v1/" + resp.Name + "/tiles/{z}/{x}/{y}"),
	}, nil
}

type thumbnailRequest struct {
	Expression     *Expression `json:"expression"`
	FileFormat     string      `json:"fileFormat"`
	FilenamePrefix string      `json:"filenamePrefix,omitempty"`
}

var imageFormats = map[string]string{
	"":        "GEO_TIFF",
	"tif":     "GEO_TIFF",
	"tiff":    "GEO_TIFF",
	"geotiff": "GEO_TIFF",
	"png":     "PNG",
	"jpg":     "JPEG",
	"jpeg":    "JPEG",
	"npy":     "NPY",
}

// ImageDownloadURL creates a thumbnail resource and returns its getPixels URL.
// The image is set to crs/scale and clipped to the region bounds first.
func (c *Client) ImageDownloadURL(ctx context.Context, image Image, opts DownloadOptions) (string, error) {
	format, ok := imageFormats[strings.ToLower(opts.Format)]
	if !ok {
		return "", fmt.Errorf("earthengine: unsupported image format %q", opts.Format)
	}
	img := prepareForDownload(image, opts.CRS, opts.Scale, opts.Region)
	expr, err := Encode(img)
	if err != nil {
		return "", err
	}
	req := thumbnailRequest{Expression: expr, FileFormat: format, FilenamePrefix: opts.Name}
	var resp namedResponse
	if err := c.do(ctx, "image_download", http.MethodPost, c.projectPath("thumbnails"), req, &resp); err != nil {
		return "", err
	}
	return c.url("v1/" + resp.Name + ":getPixels"), nil
}

func prepareForDownload(image Image, crs string, scale float64, region Valuer) Image {
	if crs != "" && scale > 0 {
		image = image.SetDefaultProjection(crs, scale)
	}
	if region != nil && region.Node() != nil {
		var s interface{}
		if scale > 0 {
			s = scale
		}
		image = asImage(call("Image.clipToBoundsAndScale", "input", image, "geometry", region, "scale", s))
	}
	return image
}

var tableFormats = map[string]string{
	"":        "GEO_JSON",
	"json":    "GEO_JSON",
	"geojson": "GEO_JSON",
	"csv":     "CSV",
	"kml":     "KML",
	"kmz":     "KMZ",
}

type tableRequest struct {
	Expression *Expression `json:"expression"`
	FileFormat string      `json:"fileFormat"`
}

// TableDownloadURL creates a table resource and returns its getFeatures URL.
func (c *Client) TableDownloadURL(ctx context.Context, fc FeatureCollection, format string) (string, error) {
	f, ok := tableFormats[strings.ToLower(format)]
	if !ok {
		return "", fmt.Errorf("earthengine: unsupported table format %q", format)
	}
	expr, err := Encode(fc)
	if err != nil {
		return "", err
	}
	var resp namedResponse
	if err := c.do(ctx, "table_download", http.MethodPost, c.projectPath("tables"), tableRequest{Expression: expr, FileFormat: f}, &resp); err != nil {
		return "", err
	}
	return c.url("v1/" + resp.Name + ":getFeatures"), nil
}

type exportRequest struct {
	Expression        *Expression       `json:"expression"`
	Description       string            `json:"description,omitempty"`
	FileExportOptions fileExportOptions `json:"fileExportOptions"`
	Grid              *pixelGrid        `json:"grid,omitempty"`
	MaxPixels         int64             `json:"maxPixels,omitempty,string"`
	RequestID         string            `json:"requestId,omitempty"`
}

type fileExportOptions struct {
	FileFormat     string         `json:"fileFormat"`
	GCSDestination gcsDestination `json:"gcsDestination"`
}

type gcsDestination struct {
	Bucket         string `json:"bucket"`
	FilenamePrefix string `json:"filenamePrefix,omitempty"`
}

type pixelGrid struct {
	CRSCode string `json:"crsCode"`
}

// ExportImage starts image:export to Cloud Storage as GeoTIFF.
func (c *Client) ExportImage(ctx context.Context, opts ExportOptions) (*Operation, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("earthengine: export %q: bucket is required", opts.Description)
	}
	img := opts.Image
	if opts.Region != nil && opts.Region.Node() != nil {
		var s interface{}
		if opts.Scale > 0 {
			s = opts.Scale
		}
		img = asImage(call("Image.clipToBoundsAndScale", "input", img, "geometry", opts.Region, "scale", s))
	}
	expr, err := Encode(img)
	if err != nil {
		return nil, err
	}
	req := exportRequest{
		Expression:  expr,
		Description: opts.Description,
		FileExportOptions: fileExportOptions{
			FileFormat:     "GEO_TIFF",
			GCSDestination: gcsDestination{Bucket: opts.Bucket, FilenamePrefix: opts.FilenamePrefix},
		},
		MaxPixels: opts.MaxPixels,
		RequestID: logging.GenerateRequestID(),
	}
	if opts.CRS != "" {
		req.Grid = &pixelGrid{CRSCode: opts.CRS}
	}
	var op Operation
	if err := c.do(ctx, "export_image", http.MethodPost, c.projectPath("image:export"), req, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// GetOperation reads an operation by full name or bare task id.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	if !strings.Contains(name, "/") {
		name = fmt.Sprintf("projects/%s/operations/%s", c.project, name)
	}
	var op Operation
	if err := c.do(ctx, "get_operation", http.MethodGet, "v1/"+name, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// do sends one API request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) (err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.RecordBackendCall(op, outcome, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		outcome = "transport_error"
		return fmt.Errorf("earthengine: %s: rate limiter: %w", op, err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			outcome = "transport_error"
			return fmt.Errorf("earthengine: %s: encode request: %w", op, err)
		}
	}

	resp, err := c.doWithRetry(ctx, method, c.url(path), payload)
	if err != nil {
		outcome = "transport_error"
		return fmt.Errorf("earthengine: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp)
		if resp.StatusCode >= 500 {
			outcome = "server_error"
		} else {
			outcome = "client_error"
		}
		logging.Ctx(ctx).Debug().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("Backend request failed")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		outcome = "transport_error"
		return fmt.Errorf("earthengine: %s: decode response: %w", op, err)
	}
	return nil
}

// doWithRetry retries 429 and 503 responses with exponential backoff,
// honouring Retry-After when present.
func (c *Client) doWithRetry(ctx context.Context, method, reqURL string, payload []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var reader *bytes.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := newRequest(ctx, method, reqURL, reader)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if !retryable(resp.StatusCode) || attempt >= c.maxRetries {
			return resp, nil
		}
		_ = resp.Body.Close()

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if d, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			delay = d
		}
		logging.Ctx(ctx).Warn().
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Backend throttled, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// retryAfter parses a Retry-After value in delta-seconds or HTTP-date form.
// Dates in the past mean retry now.
func retryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

func newRequest(ctx context.Context, method, reqURL string, body *bytes.Reader) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}
