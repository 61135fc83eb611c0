// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/metrics"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultMaxTracked   = 1000

	// concurrent GetOperation calls per poll
	pollConcurrency = 4
	pollTimeout     = 15 * time.Second
)

// OperationGetter reads the state of a batch operation.
type OperationGetter interface {
	GetOperation(ctx context.Context, name string) (*earthengine.Operation, error)
}

// TaskWatcher polls submitted export operations until they finish.
type TaskWatcher struct {
	backend      OperationGetter
	pollInterval time.Duration
	maxTracked   int
	logger       zerolog.Logger
	name         string

	mu sync.Mutex
	// operation name -> last observed state
	tracked map[string]string
}

// NewTaskWatcher creates a watcher. Zero config values take defaults.
func NewTaskWatcher(backend OperationGetter, cfg config.TasksConfig) *TaskWatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = defaultMaxTracked
	}
	return &TaskWatcher{
		backend:      backend,
		pollInterval: cfg.PollInterval,
		maxTracked:   cfg.MaxTracked,
		logger:       logging.WithComponent("task-watcher"),
		name:         "task-watcher",
		tracked:      make(map[string]string),
	}
}

// Track implements hydro.TaskTracker.
func (w *TaskWatcher) Track(op *earthengine.Operation) {
	if op == nil || op.Name == "" {
		return
	}
	if op.Terminal() {
		w.finish(op)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tracked[op.Name]; ok {
		return
	}
	if len(w.tracked) >= w.maxTracked {
		w.logger.Warn().
			Str("task_id", op.TaskID()).
			Int("max_tracked", w.maxTracked).
			Msg("Task watcher full, not tracking export")
		return
	}
	w.tracked[op.Name] = op.Metadata.State
	metrics.ExportTasksTracked.Set(float64(len(w.tracked)))
}

// Tracked returns the number of operations being polled.
func (w *TaskWatcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

// Serve implements suture.Service.
func (w *TaskWatcher) Serve(ctx context.Context) error {
	w.logger.Info().
		Dur("poll_interval", w.pollInterval).
		Int("max_tracked", w.maxTracked).
		Msg("Task watcher started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Int("tracked", w.Tracked()).Msg("Task watcher stopping")
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll refreshes every tracked operation once.
func (w *TaskWatcher) poll(ctx context.Context) {
	w.mu.Lock()
	names := make([]string, 0, len(w.tracked))
	for name := range w.tracked {
		names = append(names, name)
	}
	w.mu.Unlock()

	if len(names) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pollConcurrency)
	for _, name := range names {
		g.Go(func() error {
			w.refresh(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *TaskWatcher) refresh(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	op, err := w.backend.GetOperation(ctx, name)
	if err != nil {
		if earthengine.IsNotFound(err) {
			w.logger.Warn().Str("operation", name).Msg("Export operation disappeared, no longer tracking")
			w.drop(name)
			return
		}
		// Transient; retried on the next tick.
		w.logger.Debug().Err(err).Str("operation", name).Msg("Polling export operation failed")
		return
	}
	if op.Name == "" {
		op.Name = name
	}

	w.mu.Lock()
	prev, ok := w.tracked[name]
	if ok && prev != op.Metadata.State {
		w.tracked[name] = op.Metadata.State
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	if prev != op.Metadata.State {
		w.logger.Info().
			Str("task_id", op.TaskID()).
			Str("from", prev).
			Str("to", op.Metadata.State).
			Float64("progress", op.Metadata.Progress).
			Msg("Export task state changed")
	}
	if op.Terminal() {
		w.drop(name)
		w.finish(op)
	}
}

// finish records the outcome of a terminal operation.
func (w *TaskWatcher) finish(op *earthengine.Operation) {
	state := op.Metadata.State
	if state == "" {
		state = earthengine.StateUnknown
	}
	metrics.ExportTasksFinished.WithLabelValues(state).Inc()

	ev := w.logger.Info()
	if op.Error != nil {
		ev = w.logger.Warn().Int("code", op.Error.Code).Str("error", op.Error.Message)
	}
	ev.Str("task_id", op.TaskID()).
		Str("state", state).
		Strs("destinations", op.Metadata.DestinationURIs).
		Msg("Export task finished")
}

func (w *TaskWatcher) drop(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tracked, name)
	metrics.ExportTasksTracked.Set(float64(len(w.tracked)))
}

func (w *TaskWatcher) String() string {
	return w.name
}
