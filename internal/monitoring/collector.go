// Package monitoring gathers point-in-time operational metrics from the
// store: queue depth per stage, author progress, recent run outcomes, and
// provider spend.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Queue depth per enrichment stage.
	PendingByStage map[string]int `json:"pending_by_stage"`

	// Author lifecycle.
	AuthorsByStatus map[string]int `json:"authors_by_status"`
	AuthorsPending  int            `json:"authors_pending_completion"`

	// Worker runs within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Provider usage within the lookback window.
	AICalls        int     `json:"ai_calls"`
	AICallFailures int     `json:"ai_call_failures"`
	AICostUSD      float64 `json:"ai_cost_usd"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store    store.Store
	lookback time.Duration
}

// NewCollector creates a collector. A non-positive lookback defaults to 24h.
func NewCollector(st store.Store, lookback time.Duration) *Collector {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Collector{store: st, lookback: lookback}
}

// Snapshot collects current metrics.
func (c *Collector) Snapshot(ctx context.Context) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		PendingByStage:  make(map[string]int),
		AuthorsByStatus: make(map[string]int),
		LookbackHours:   int(c.lookback.Hours()),
		CollectedAt:     now,
	}
	cutoff := now.Add(-c.lookback)

	for _, stage := range model.AllStages() {
		n, err := c.store.CountItemsNeedingStage(ctx, stage)
		if err != nil {
			return nil, eris.Wrapf(err, "monitoring: count pending %s", stage)
		}
		snap.PendingByStage[string(stage)] = n
	}

	byStatus, err := c.store.CountAuthorsByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count authors")
	}
	for status, n := range byStatus {
		snap.AuthorsByStatus[string(status)] = n
	}

	pending, err := c.store.CountAuthorsPendingCompletion(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count pending authors")
	}
	snap.AuthorsPending = pending

	runs, err := c.store.ListJobRuns(ctx, cutoff, 10000)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list job runs")
	}
	snap.RunsTotal = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.JobRunStatusComplete:
			snap.RunsComplete++
		case model.JobRunStatusFailed:
			snap.RunsFailed++
		}
	}
	if snap.RunsTotal > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(snap.RunsTotal)
	}

	usage, err := c.store.AIUsageTotals(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: ai usage totals")
	}
	snap.AICalls = usage.Calls
	snap.AICallFailures = usage.Failures
	snap.AICostUSD = usage.CostUSD

	return snap, nil
}
