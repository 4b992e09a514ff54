// Package worker contains the five enrichment stage workers, the completion
// aggregator, and the cycle orchestrator. Every worker runs as a short-lived
// invocation: select a bounded batch, process it item by item, record a job
// run, exit. Nothing loops forever; the external scheduler provides cadence.
package worker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

// Report summarizes one worker invocation.
type Report struct {
	Worker     string            `json:"worker"`
	Skipped    bool              `json:"skipped,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Counts     model.StageCounts `json:"counts"`
	Duration   time.Duration     `json:"-"`
	DurationMS int64             `json:"duration_ms"`
	JobRunID   string            `json:"job_run_id,omitempty"`
}

// Harness wraps a worker body with the per-invocation scaffolding: the
// feature-flag gate, the job run record, and timing.
type Harness struct {
	Store store.Store
}

// Run executes fn under the harness. A disabled worker returns a skipped
// report without creating a job run. The job run is finalized exactly once on
// every return path.
func (h *Harness) Run(ctx context.Context, worker string, fn func(ctx context.Context) (model.StageCounts, error)) (*Report, error) {
	enabled, err := h.Store.WorkerEnabled(ctx, worker)
	if err != nil {
		return nil, eris.Wrapf(err, "worker: check flag for %s", worker)
	}
	if !enabled {
		zap.L().Info("worker disabled, skipping", zap.String("worker", worker))
		return &Report{Worker: worker, Skipped: true, Reason: "Worker disabled via feature flag"}, nil
	}

	run, err := h.Store.CreateJobRun(ctx, worker)
	if err != nil {
		return nil, eris.Wrapf(err, "worker: create job run for %s", worker)
	}

	start := time.Now()
	zap.L().Info("worker starting",
		zap.String("worker", worker),
		zap.String("job_run_id", run.ID),
	)

	counts, runErr := fn(ctx)
	duration := time.Since(start)

	status := model.JobRunStatusComplete
	errMsg := ""
	if runErr != nil {
		status = model.JobRunStatusFailed
		errMsg = runErr.Error()
	}
	if finErr := h.Store.FinishJobRun(ctx, run.ID, status, counts, errMsg); finErr != nil {
		zap.L().Error("failed to finalize job run",
			zap.String("worker", worker),
			zap.String("job_run_id", run.ID),
			zap.Error(finErr),
		)
	}

	report := &Report{
		Worker:     worker,
		Counts:     counts,
		Duration:   duration,
		DurationMS: duration.Milliseconds(),
		JobRunID:   run.ID,
	}

	if runErr != nil {
		zap.L().Error("worker failed",
			zap.String("worker", worker),
			zap.Duration("duration", duration),
			zap.Error(runErr),
		)
		return report, runErr
	}

	zap.L().Info("worker finished",
		zap.String("worker", worker),
		zap.Int("found", counts.Found),
		zap.Int("processed", counts.Processed),
		zap.Int("failed", counts.Failed),
		zap.Duration("duration", duration),
	)
	return report, nil
}

// ProcessItems runs fn over each item with per-item failure isolation and a
// uniform inter-item delay. The stop callback is checked before each item so
// a cycle deadline can cut an invocation short; items left unvisited count as
// found but neither processed nor failed.
func ProcessItems(ctx context.Context, items []model.ContentItem, delay time.Duration, stop func() bool, fn func(ctx context.Context, item model.ContentItem) error) model.StageCounts {
	counts := model.StageCounts{Found: len(items)}

	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if stop != nil && stop() {
			zap.L().Info("stopping item loop early",
				zap.Int("remaining", counts.Found-counts.Processed-counts.Failed))
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		if err := fn(ctx, item); err != nil {
			counts.Failed++
			zap.L().Warn("item processing failed",
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
			continue
		}
		counts.Processed++
	}

	return counts
}
