package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftline/content-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedAuthor(t *testing.T, st *SQLiteStore, status model.SyncStatus) *model.Author {
	t.Helper()
	author, err := st.CreateAuthor(context.Background(), model.Author{Name: "Dana", Status: status})
	require.NoError(t, err)
	return author
}

func seedItem(t *testing.T, st *SQLiteStore, authorID, content string, engagement int) *model.ContentItem {
	t.Helper()
	item, err := st.CreateItem(context.Background(), model.ContentItem{
		AuthorID:   authorID,
		Content:    content,
		Engagement: engagement,
	})
	require.NoError(t, err)
	return item
}

// --- Items ---

func TestSQLite_CreateItem_AllFlagsRaised(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)

	created := seedItem(t, st, author.ID, "I quit my job. Here is why.", 40)

	item, err := st.GetItem(ctx, created.ID)
	require.NoError(t, err)
	for _, stage := range model.AllStages() {
		assert.True(t, item.NeedsStage(stage), "stage %s should start pending", stage)
	}
	assert.Nil(t, item.Hook)
	assert.Nil(t, item.Embedding)
	assert.False(t, item.FullyEnriched())
}

func TestSQLite_SelectItemsNeedingStage_OldestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		item, err := st.CreateItem(ctx, model.ContentItem{
			AuthorID:  author.ID,
			Content:   "post",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	items, err := st.SelectItemsNeedingStage(ctx, model.StageHookExtraction, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ids[0], items[0].ID)
	assert.Equal(t, ids[1], items[1].ID)
}

func TestSQLite_SetItemHook_ClearsFlag(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	created := seedItem(t, st, author.ID, "Most founders get hiring wrong. The rest of the post.", 10)

	hook := "Most founders get hiring wrong."
	require.NoError(t, st.SetItemHook(ctx, created.ID, &hook))

	item, err := st.GetItem(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, item.Hook)
	assert.Equal(t, hook, *item.Hook)
	assert.False(t, item.NeedsHookExtraction)

	items, err := st.SelectItemsNeedingStage(ctx, model.StageHookExtraction, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLite_SetItemHook_NilStillClearsFlag(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	created := seedItem(t, st, author.ID, "ok", 0)

	// No usable hook found still counts as processed.
	require.NoError(t, st.SetItemHook(ctx, created.ID, nil))

	item, err := st.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, item.Hook)
	assert.False(t, item.NeedsHookExtraction)
}

func TestSQLite_SetItemLabels_NilClearsFlags(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	created := seedItem(t, st, author.ID, "post", 0)

	require.NoError(t, st.SetItemHookCategory(ctx, created.ID, nil))
	require.NoError(t, st.SetItemTopic(ctx, created.ID, nil))
	require.NoError(t, st.SetItemAudience(ctx, created.ID, nil))

	item, err := st.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, item.HookCategoryID)
	assert.False(t, item.NeedsHookClassification)
	assert.False(t, item.NeedsTopicClassification)
	assert.False(t, item.NeedsAudienceClassification)
}

func TestSQLite_SetItemEmbedding_RoundTripAndUnlock(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	created := seedItem(t, st, author.ID, "post", 0)

	claimed, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, st.SetItemEmbedding(ctx, created.ID, []float32{0.1, -0.5, 2}))

	item, err := st.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, -0.5, 2}, item.Embedding)
	assert.False(t, item.NeedsEmbedding)
	assert.Nil(t, item.EmbeddingLockedAt)
}

func TestSQLite_SetItem_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.SetItemHook(ctx, "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_CountItemsNeedingStage(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	a := seedItem(t, st, author.ID, "a", 0)
	seedItem(t, st, author.ID, "b", 0)

	require.NoError(t, st.SetItemHook(ctx, a.ID, nil))

	count, err := st.CountItemsNeedingStage(ctx, model.StageHookExtraction)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// --- Embedding lock ---

func TestSQLite_ClaimEmbeddingBatch_MutualExclusion(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	seedItem(t, st, author.ID, "a", 0)
	seedItem(t, st, author.ID, "b", 0)

	first, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// A second overlapping claim must see nothing.
	second, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestSQLite_ClaimEmbeddingBatch_ReleaseRestoresEligibility(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	created := seedItem(t, st, author.ID, "a", 0)

	claimed, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, st.ReleaseEmbeddingLocks(ctx, []string{created.ID}))

	again, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestSQLite_ClaimEmbeddingBatch_StaleLockReclaimed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	seedItem(t, st, author.ID, "a", 0)

	_, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)

	// Zero TTL treats every existing lock as stale.
	reclaimed, err := st.ClaimEmbeddingBatch(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, reclaimed, 1)
}

// --- Authors / completion ---

func TestSQLite_ListAuthorsPendingCompletion(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	scraped := seedAuthor(t, st, model.SyncStatusScraped)
	seedAuthor(t, st, model.SyncStatusUnsynced)
	seedAuthor(t, st, model.SyncStatusCompleted)

	authors, err := st.ListAuthorsPendingCompletion(ctx, 10)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, scraped.ID, authors[0].ID)

	count, err := st.CountAuthorsPendingCompletion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_CountAuthorUnfinishedItems(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	done := seedItem(t, st, author.ID, "a", 0)
	seedItem(t, st, author.ID, "b", 0)

	require.NoError(t, st.SetItemHook(ctx, done.ID, nil))
	require.NoError(t, st.SetItemEmbedding(ctx, done.ID, []float32{1}))
	require.NoError(t, st.SetItemHookCategory(ctx, done.ID, nil))
	require.NoError(t, st.SetItemTopic(ctx, done.ID, nil))
	require.NoError(t, st.SetItemAudience(ctx, done.ID, nil))

	unfinished, err := st.CountAuthorUnfinishedItems(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unfinished)
}

func TestSQLite_TopItemsByEngagement(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	seedItem(t, st, author.ID, "low", 5)
	top := seedItem(t, st, author.ID, "high", 90)
	seedItem(t, st, author.ID, "mid", 30)

	items, err := st.TopItemsByEngagement(ctx, author.ID, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, top.ID, items[0].ID)
	assert.Equal(t, "mid", items[1].Content)
}

func TestSQLite_CompleteAuthor_WritesProfileOnce(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)

	profile := model.StyleProfile{
		Prompt:  "Write like Dana: short declaratives, no emoji.",
		Metrics: model.StyleMetrics{Tone: "direct", Formality: "casual", AvgPostLength: 420, EmojiUsage: "none"},
	}
	require.NoError(t, st.CompleteAuthor(ctx, author.ID, profile))

	authors, err := st.ListAuthorsPendingCompletion(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, authors)

	counts, err := st.CountAuthorsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.SyncStatusCompleted])

	// A second completion attempt must hit the guard.
	err = st.CompleteAuthor(ctx, author.ID, profile)
	require.ErrorIs(t, err, ErrAuthorNotEligible)
}

func TestSQLite_CompleteAuthor_WrongStatusNotEligible(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraping)

	err := st.CompleteAuthor(ctx, author.ID, model.StyleProfile{Prompt: "p"})
	require.ErrorIs(t, err, ErrAuthorNotEligible)
}

func TestSQLite_ResetAuthor_ReopensPipeline(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st, model.SyncStatusScraped)
	created := seedItem(t, st, author.ID, "post", 0)

	hook := "hook"
	require.NoError(t, st.SetItemHook(ctx, created.ID, &hook))
	require.NoError(t, st.CompleteAuthor(ctx, author.ID, model.StyleProfile{Prompt: "p"}))

	require.NoError(t, st.ResetAuthor(ctx, author.ID))

	item, err := st.GetItem(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, item.Hook)
	assert.True(t, item.NeedsHookExtraction)

	counts, err := st.CountAuthorsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.SyncStatusScraping])
}

// --- Labels ---

func TestSQLite_Labels_CreateAndListByKind(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.CreateLabel(ctx, model.LabelKindTopic, "Leadership")
	require.NoError(t, err)
	_, err = st.CreateLabel(ctx, model.LabelKindTopic, "Hiring")
	require.NoError(t, err)
	_, err = st.CreateLabel(ctx, model.LabelKindAudience, "Founders")
	require.NoError(t, err)

	topics, err := st.ListLabels(ctx, model.LabelKindTopic)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Hiring", topics[0].Name)

	audiences, err := st.ListLabels(ctx, model.LabelKindAudience)
	require.NoError(t, err)
	assert.Len(t, audiences, 1)
}

// --- Job runs ---

func TestSQLite_JobRun_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateJobRun(ctx, "hook_extraction")
	require.NoError(t, err)
	assert.Equal(t, model.JobRunStatusRunning, run.Status)

	counts := model.StageCounts{Found: 5, Processed: 4, Failed: 1}
	require.NoError(t, st.FinishJobRun(ctx, run.ID, model.JobRunStatusComplete, counts, ""))

	runs, err := st.ListJobRuns(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.JobRunStatusComplete, runs[0].Status)
	assert.Equal(t, 5, runs[0].ItemsFound)
	assert.Equal(t, 4, runs[0].ItemsProcessed)
	assert.Equal(t, 1, runs[0].ItemsFailed)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestSQLite_FinishJobRun_ExactlyOnce(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateJobRun(ctx, "embedding")
	require.NoError(t, err)

	require.NoError(t, st.FinishJobRun(ctx, run.ID, model.JobRunStatusFailed, model.StageCounts{}, "boom"))

	err = st.FinishJobRun(ctx, run.ID, model.JobRunStatusComplete, model.StageCounts{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

// --- Worker flags ---

func TestSQLite_WorkerFlags_DefaultEnabled(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	enabled, err := st.WorkerEnabled(ctx, "hook_extraction")
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, st.SetWorkerEnabled(ctx, "hook_extraction", false))

	enabled, err = st.WorkerEnabled(ctx, "hook_extraction")
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, st.SetWorkerEnabled(ctx, "hook_extraction", true))

	enabled, err = st.WorkerEnabled(ctx, "hook_extraction")
	require.NoError(t, err)
	assert.True(t, enabled)
}

// --- AI usage ---

func TestSQLite_AIUsageTotals(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordAIUsage(ctx, model.AIUsage{
		Provider: "anthropic", Model: "m", Operation: "hook_extraction",
		InputTokens: 100, OutputTokens: 20, Success: true, CostUSD: 0.002,
	}))
	require.NoError(t, st.RecordAIUsage(ctx, model.AIUsage{
		Provider: "openai", Model: "m", Operation: "embedding",
		InputTokens: 50, Success: false,
	}))

	totals, err := st.AIUsageTotals(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Calls)
	assert.Equal(t, 1, totals.Failures)
	assert.Equal(t, int64(150), totals.InputTokens)
	assert.Equal(t, int64(20), totals.OutputTokens)
	assert.InDelta(t, 0.002, totals.CostUSD, 1e-9)
}
