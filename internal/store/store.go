// Package store persists content items, authors, labels, and the worker run
// log behind a single interface with postgres and sqlite backends.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/draftline/content-cli/internal/model"
)

// ErrAuthorNotEligible is returned by CompleteAuthor when the guarded update
// matches no row: the author is missing, already completed, or already has a
// style profile. The guard keeps the expensive synthesis result from being
// written twice.
var ErrAuthorNotEligible = eris.New("author not eligible for completion")

// UsageTotals aggregates the AI usage log over a window.
type UsageTotals struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Store defines the persistence interface for the enrichment pipeline.
//
// Concurrency contract: each stage worker writes only its own flag/result
// columns, so concurrent workers touching the same row are safe. The
// embedding claim is the one place two invocations of the same stage can
// contend for the same column; ClaimEmbeddingBatch must therefore select and
// mark rows atomically.
type Store interface {
	// Items
	SelectItemsNeedingStage(ctx context.Context, stage model.Stage, limit int) ([]model.ContentItem, error)
	GetItem(ctx context.Context, id string) (*model.ContentItem, error)
	CountItemsNeedingStage(ctx context.Context, stage model.Stage) (int, error)

	// Per-stage result writes. Each clears the stage's flag in the same
	// update; a nil result still clears the flag (processed ≠ matched).
	SetItemHook(ctx context.Context, id string, hook *string) error
	SetItemEmbedding(ctx context.Context, id string, vec []float32) error
	SetItemHookCategory(ctx context.Context, id string, labelID *string) error
	SetItemTopic(ctx context.Context, id string, labelID *string) error
	SetItemAudience(ctx context.Context, id string, labelID *string) error

	// Embedding lock. Claim atomically selects up to limit eligible items
	// and stamps embedding_locked_at; rows locked more recently than ttl
	// are skipped. Release clears the stamp and must run on every exit
	// path of the embedding worker.
	ClaimEmbeddingBatch(ctx context.Context, limit int, ttl time.Duration) ([]model.ContentItem, error)
	ReleaseEmbeddingLocks(ctx context.Context, ids []string) error

	// Authors
	ListAuthorsPendingCompletion(ctx context.Context, limit int) ([]model.Author, error)
	CountAuthorsPendingCompletion(ctx context.Context) (int, error)
	CountAuthorItems(ctx context.Context, authorID string) (int, error)
	CountAuthorUnfinishedItems(ctx context.Context, authorID string) (int, error)
	TopItemsByEngagement(ctx context.Context, authorID string, limit int) ([]model.ContentItem, error)
	CompleteAuthor(ctx context.Context, authorID string, profile model.StyleProfile) error
	CountAuthorsByStatus(ctx context.Context) (map[model.SyncStatus]int, error)

	// Labels (operator-editable data, re-fetched per invocation)
	ListLabels(ctx context.Context, kind model.LabelKind) ([]model.Label, error)
	CreateLabel(ctx context.Context, kind model.LabelKind, name string) (*model.Label, error)

	// Job run log (append-only)
	CreateJobRun(ctx context.Context, worker string) (*model.JobRun, error)
	FinishJobRun(ctx context.Context, id string, status model.JobRunStatus, counts model.StageCounts, errMsg string) error
	ListJobRuns(ctx context.Context, since time.Time, limit int) ([]model.JobRun, error)

	// AI usage side channel
	RecordAIUsage(ctx context.Context, usage model.AIUsage) error
	AIUsageTotals(ctx context.Context, since time.Time) (*UsageTotals, error)

	// Worker feature flags (mutable toggle data; absent rows mean enabled)
	WorkerEnabled(ctx context.Context, worker string) (bool, error)
	SetWorkerEnabled(ctx context.Context, worker string, enabled bool) error

	// Ingestion / admin
	CreateAuthor(ctx context.Context, author model.Author) (*model.Author, error)
	UpdateAuthorStatus(ctx context.Context, authorID string, status model.SyncStatus) error
	ResetAuthor(ctx context.Context, authorID string) error
	CreateItem(ctx context.Context, item model.ContentItem) (*model.ContentItem, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// stageColumns maps a stage to its flag and result columns. Shared by both
// backends; the column names are identical across drivers.
type stageColumns struct {
	flag   string
	result string
}

var stageCols = map[model.Stage]stageColumns{
	model.StageHookExtraction:         {flag: "needs_hook_extraction", result: "hook"},
	model.StageEmbedding:              {flag: "needs_embedding", result: "embedding"},
	model.StageHookClassification:     {flag: "needs_hook_classification", result: "hook_category_id"},
	model.StageTopicClassification:    {flag: "needs_topic_classification", result: "topic_id"},
	model.StageAudienceClassification: {flag: "needs_audience_classification", result: "audience_id"},
}

func columnsFor(stage model.Stage) (stageColumns, error) {
	cols, ok := stageCols[stage]
	if !ok {
		return stageColumns{}, eris.Errorf("store: unknown stage %q", stage)
	}
	return cols, nil
}

// itemColumns is the select list shared by all item queries.
const itemColumns = `id, author_id, content, hook, embedding, hook_category_id, topic_id, audience_id,
	needs_hook_extraction, needs_embedding, needs_hook_classification,
	needs_topic_classification, needs_audience_classification,
	embedding_locked_at, engagement, created_at`
