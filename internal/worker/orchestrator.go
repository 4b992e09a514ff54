package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

// Orchestrator runs every phase once, in priority order, under a shared
// wall-clock budget. One orchestrator invocation is one "cycle"; the external
// scheduler calls it repeatedly.
type Orchestrator struct {
	Store store.Store

	Hooks      *HookWorker
	Embed      *EmbedWorker
	HookClass  *HookClassWorker
	Topic      *ClassifyWorker
	Audience   *ClassifyWorker
	Completion *CompletionWorker

	TimeBudget time.Duration
}

// PhaseReport is one phase's slice of a cycle report.
type PhaseReport struct {
	Phase   string            `json:"phase"`
	Skipped bool              `json:"skipped,omitempty"`
	Counts  model.StageCounts `json:"counts"`
	Error   string            `json:"error,omitempty"`
}

// CycleReport summarizes one orchestrator invocation.
type CycleReport struct {
	Phases      []PhaseReport `json:"phases"`
	DurationMS  int64         `json:"duration_ms"`
	HasMoreWork bool          `json:"has_more_work"`
}

// CycleOptions tunes a single cycle without touching worker configuration.
type CycleOptions struct {
	// BatchSizes overrides the configured batch size per phase, keyed by
	// worker name. Absent or non-positive entries keep the configured size.
	BatchSizes map[string]int
}

func (o CycleOptions) batchFor(phase string, configured int) int {
	if n := o.BatchSizes[phase]; n > 0 {
		return n
	}
	return configured
}

type phase struct {
	name string
	run  func(ctx context.Context, stop func() bool) (*Report, error)
}

// RunCycle executes one cycle. Phase errors are isolated: a failing phase is
// recorded in the report and the cycle moves on. Only the up-front pending
// query can fail the cycle as a whole.
func (o *Orchestrator) RunCycle(ctx context.Context, opts CycleOptions) (*CycleReport, error) {
	start := time.Now()
	budget := o.TimeBudget
	if budget <= 0 {
		budget = 50 * time.Second
	}

	pending, err := o.pendingWork(ctx)
	if err != nil {
		return nil, err
	}
	if !pending {
		zap.L().Info("cycle: nothing pending")
		return &CycleReport{DurationMS: time.Since(start).Milliseconds()}, nil
	}

	// Shared across phases so a long phase leaves honest leftovers for the
	// next cycle instead of overrunning the scheduler slot.
	stop := func() bool { return time.Since(start) > budget }

	report := &CycleReport{}
	for _, p := range o.phases(opts) {
		if stop() {
			zap.L().Info("cycle: budget exhausted",
				zap.String("next_phase", p.name),
				zap.Duration("elapsed", time.Since(start)),
			)
			break
		}

		pr := PhaseReport{Phase: p.name}
		wr, err := p.run(ctx, stop)
		if wr != nil {
			pr.Skipped = wr.Skipped
			pr.Counts = wr.Counts
		}
		if err != nil {
			pr.Error = err.Error()
			zap.L().Error("cycle: phase failed",
				zap.String("phase", p.name),
				zap.Error(err),
			)
		}
		report.Phases = append(report.Phases, pr)
	}

	more, err := o.pendingWork(ctx)
	if err != nil {
		zap.L().Warn("cycle: final pending query failed", zap.Error(err))
		// Claim more work rather than letting the scheduler idle on a blip.
		more = true
	}
	report.HasMoreWork = more
	report.DurationMS = time.Since(start).Milliseconds()

	zap.L().Info("cycle finished",
		zap.Int("phases_run", len(report.Phases)),
		zap.Bool("has_more_work", report.HasMoreWork),
		zap.Int64("duration_ms", report.DurationMS),
	)
	return report, nil
}

// phases builds the priority-ordered phase list for one cycle. Batch-size
// overrides apply to shallow per-cycle worker copies, never to the shared
// worker structs.
func (o *Orchestrator) phases(opts CycleOptions) []phase {
	hooks := *o.Hooks
	hooks.BatchSize = opts.batchFor(string(model.StageHookExtraction), hooks.BatchSize)
	embed := *o.Embed
	embed.BatchSize = opts.batchFor(string(model.StageEmbedding), embed.BatchSize)
	hookClass := *o.HookClass
	hookClass.BatchSize = opts.batchFor(string(model.StageHookClassification), hookClass.BatchSize)
	topic := *o.Topic
	topic.BatchSize = opts.batchFor(string(model.StageTopicClassification), topic.BatchSize)
	audience := *o.Audience
	audience.BatchSize = opts.batchFor(string(model.StageAudienceClassification), audience.BatchSize)
	completion := *o.Completion
	completion.BatchSize = opts.batchFor(WorkerCompletion, completion.BatchSize)

	return []phase{
		{string(model.StageHookExtraction), hooks.Run},
		{string(model.StageEmbedding), embed.Run},
		{string(model.StageHookClassification), hookClass.Run},
		{string(model.StageTopicClassification), topic.Run},
		{string(model.StageAudienceClassification), audience.Run},
		{WorkerCompletion, completion.Run},
	}
}

// pendingWork reports whether any stage or the aggregator has candidates.
func (o *Orchestrator) pendingWork(ctx context.Context) (bool, error) {
	for _, stage := range model.AllStages() {
		n, err := o.Store.CountItemsNeedingStage(ctx, stage)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	n, err := o.Store.CountAuthorsPendingCompletion(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
