// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package hydro

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/metrics"
	"github.com/tomtom215/hydroengine/internal/validation"
)

// Velocity models.
const (
	ModelHYCOM   = "HYCOM"
	ModelGLOSSIS = "GLOSSIS"

	hycomVelocity   = "HYCOM/sea_water_velocity"
	glossisCurrents = "projects/dgds-gee/glossis/currents"

	ecopathDefaultScale    = 10000
	ecopathDefaultCRS      = "EPSG:3035"
	ecopathDefaultBucket   = "hydro-engine-public"
	ecopathDefaultStart    = "2020-07-01"
	ecopathDefaultPeriods  = 12
	ecopathMaxParallelJobs = 4
)

// northSea is the export extent (xmin, ymin, xmax, ymax) in the request crs.
var northSea = [4]float64{
	3463000.0001221001148224,
	3117163.4356725001707673,
	4313000.0001221001148224,
	4257163.4356725001707673,
}

// EcopathRequest configures the monthly water velocity exports.
type EcopathRequest struct {
	Scale    float64 `json:"scale,omitempty" validate:"omitempty,gt=0"`
	CRS      string  `json:"crs,omitempty" validate:"omitempty,crs"`
	Model    string  `json:"model,omitempty" validate:"omitempty,oneof=HYCOM GLOSSIS"`
	TStart   string  `json:"t_start,omitempty" validate:"omitempty,isodate"`
	NPeriods int     `json:"n_periods,omitempty" validate:"omitempty,gte=1,lte=120"`
}

// fillDefaults fills unset fields from the built-in defaults.
func (r *EcopathRequest) fillDefaults() {
	if r.Scale == 0 {
		r.Scale = ecopathDefaultScale
	}
	if r.CRS == "" {
		r.CRS = ecopathDefaultCRS
	}
	if r.Model == "" {
		r.Model = ModelHYCOM
	}
	if r.TStart == "" {
		r.TStart = ecopathDefaultStart
	}
	if r.NPeriods == 0 {
		r.NPeriods = ecopathDefaultPeriods
	}
}

// ExportTask identifies one submitted export.
type ExportTask struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
}

// ExportSubmitError reports a failed export submission together with the
// exports of the same request that were accepted and keep running.
type ExportSubmitError struct {
	Failed    string
	Submitted []ExportTask
	Err       error
}

func (e *ExportSubmitError) Error() string {
	return fmt.Sprintf("export %s: %v (%d other exports submitted)", e.Failed, e.Err, len(e.Submitted))
}

func (e *ExportSubmitError) Unwrap() error { return e.Err }

func (s *Service) ecopathDefaults(req *EcopathRequest) {
	if s.cfg != nil {
		if req.Scale == 0 {
			req.Scale = s.cfg.Ecopath.DefaultScale
		}
		if req.CRS == "" {
			req.CRS = s.cfg.Ecopath.DefaultCRS
		}
	}
	req.fillDefaults()
}

func (s *Service) ecopathBucket() string {
	if s.cfg != nil && s.cfg.Ecopath.Bucket != "" {
		return s.cfg.Ecopath.Bucket
	}
	return ecopathDefaultBucket
}

// addMonths adds n calendar months, clamping to the last day of the month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// velocities returns the model's surface currents as velocity_u/velocity_v
// in m/s.
func velocities(model string) earthengine.ImageCollection {
	if model == ModelGLOSSIS {
		return earthengine.LoadImageCollection(glossisCurrents).Map(func(img earthengine.Image) earthengine.Image {
			return img.Rename("velocity_u", "velocity_v").
				Resample("bicubic").
				Set(timeStart, img.Get(timeStart))
		})
	}
	return earthengine.LoadImageCollection(hycomVelocity).Map(func(img earthengine.Image) earthengine.Image {
		return img.SelectAs([]string{"velocity_u_0", "velocity_v_0"}, []string{"velocity_u", "velocity_v"}).
			Float().
			Multiply(0.001).
			CopyProperties(img).
			Set(timeStart, img.Get(timeStart))
	})
}

type ecopathPeriod struct {
	start, stop time.Time
	images      earthengine.ImageCollection
}

// exportName is ecopath_<model><start as 2006-01-02T15_04_05>.
func exportName(model string, start time.Time) string {
	return fmt.Sprintf("ecopath_%s%s", model, start.Format("2006-01-02T15_04_05"))
}

// SubmitEcopathJobs exports the monthly mean currents of the model over the
// North Sea to cloud storage, one task per month with data.
func (s *Service) SubmitEcopathJobs(ctx context.Context, req *EcopathRequest) ([]ExportTask, error) {
	s.ecopathDefaults(req)
	start, err := validation.ParseDate(req.TStart)
	if err != nil {
		return nil, usageErrorf("t_start: %v", err)
	}

	collection := velocities(req.Model)
	periods := make([]ecopathPeriod, req.NPeriods)
	sizes := make([]interface{}, req.NPeriods)
	for i := range periods {
		p := ecopathPeriod{start: addMonths(start, i), stop: addMonths(start, i+1)}
		p.images = collection.FilterDate(p.start.UnixMilli(), p.stop.UnixMilli())
		periods[i] = p
		sizes[i] = p.images.Size()
	}

	var counts []int
	if err := s.computeInto(ctx, earthengine.ListOf(sizes...), &counts); err != nil {
		return nil, err
	}
	if len(counts) != len(periods) {
		return nil, fmt.Errorf("ecopath: expected %d image counts, got %d", len(periods), len(counts))
	}

	geodesic := false
	region := earthengine.NewPolygon([][][]float64{{
		{northSea[0], northSea[1]},
		{northSea[0], northSea[3]},
		{northSea[2], northSea[3]},
		{northSea[2], northSea[1]},
		{northSea[0], northSea[1]},
	}}, req.CRS, &geodesic, 1)

	var submit []int
	for i, n := range counts {
		if n == 0 {
			logging.CtxInfo(ctx).Str("model", req.Model).Time("start", periods[i].start).Msg("no images in period, skipping export")
			continue
		}
		submit = append(submit, i)
	}

	var (
		mu        sync.Mutex
		submitted = make([]ExportTask, len(submit))
		accepted  = make([]bool, len(submit))
		failed    string
	)
	bucket := s.ecopathBucket()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ecopathMaxParallelJobs)
	for k, i := range submit {
		p := periods[i]
		name := exportName(req.Model, p.start)
		image := p.images.Mean().
			Set("model", req.Model).
			Set("tStart", p.start.UnixMilli()).
			Set("tStop", p.stop.UnixMilli()).
			Set("imageCount", counts[i]).
			Set("units", "m/s").
			Set(timeStart, p.start.UnixMilli())

		g.Go(func() error {
			op, err := s.backend.ExportImage(gctx, earthengine.ExportOptions{
				Image:          image,
				Description:    name,
				Bucket:         bucket,
				FilenamePrefix: name,
				Region:         region,
				Scale:          req.Scale,
				CRS:            req.CRS,
			})
			if err != nil {
				mu.Lock()
				if failed == "" {
					failed = name
				}
				mu.Unlock()
				return err
			}
			metrics.ExportTasksSubmitted.WithLabelValues(req.Model).Inc()
			if s.tasks != nil {
				s.tasks.Track(op)
			}
			mu.Lock()
			submitted[k] = ExportTask{TaskID: op.TaskID(), Description: name}
			accepted[k] = true
			mu.Unlock()
			return nil
		})
	}
	werr := g.Wait()

	tasks := make([]ExportTask, 0, len(submit))
	for k, ok := range accepted {
		if ok {
			tasks = append(tasks, submitted[k])
		}
	}
	if werr != nil {
		ids := make([]string, len(tasks))
		for k, t := range tasks {
			ids[k] = t.TaskID
		}
		logging.CtxWarn(ctx).Err(werr).
			Str("model", req.Model).
			Str("failed", failed).
			Strs("submitted_task_ids", ids).
			Msg("ecopath export submission failed, accepted exports keep running")
		return nil, &ExportSubmitError{Failed: failed, Submitted: tasks, Err: werr}
	}
	logging.CtxInfo(ctx).Str("model", req.Model).Int("tasks", len(tasks)).Msg("ecopath exports submitted")
	return tasks, nil
}

// TaskRequest identifies an export task by id or operation name.
type TaskRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// GetTaskStatus returns the task state in the batch API vocabulary, or
// UNKNOWN for tasks the backend does not know.
func (s *Service) GetTaskStatus(ctx context.Context, req *TaskRequest) (string, error) {
	op, err := s.backend.GetOperation(ctx, req.TaskID)
	if earthengine.IsNotFound(err) {
		return earthengine.StateUnknown, nil
	}
	if err != nil {
		return "", fmt.Errorf("get operation: %w", err)
	}
	return op.LegacyState(), nil
}

// TaskOutput lists where a finished export wrote its files.
type TaskOutput struct {
	TaskID string   `json:"task_id"`
	State  string   `json:"state"`
	URIs   []string `json:"uris"`
	Error  string   `json:"error,omitempty"`
}

// GetTaskOutput returns the state and destination URIs of an export.
func (s *Service) GetTaskOutput(ctx context.Context, req *TaskRequest) (*TaskOutput, error) {
	op, err := s.backend.GetOperation(ctx, req.TaskID)
	if earthengine.IsNotFound(err) {
		return nil, &UsageError{Message: fmt.Sprintf("unknown task %q", req.TaskID), Status: http.StatusNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("get operation: %w", err)
	}
	out := &TaskOutput{
		TaskID: op.TaskID(),
		State:  op.LegacyState(),
		URIs:   op.Metadata.DestinationURIs,
	}
	if out.URIs == nil {
		out.URIs = []string{}
	}
	if op.Error != nil {
		out.Error = op.Error.Message
	}
	return out, nil
}
