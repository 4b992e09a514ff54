package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

func finishItem(t *testing.T, st store.Store, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SetItemHook(ctx, id, nil))
	require.NoError(t, st.SetItemEmbedding(ctx, id, []float32{1}))
	require.NoError(t, st.SetItemHookCategory(ctx, id, nil))
	require.NoError(t, st.SetItemTopic(ctx, id, nil))
	require.NoError(t, st.SetItemAudience(ctx, id, nil))
}

const styleJSON = `{"prompt": "Write like Dana: short declaratives.", "metrics": {"tone": "direct", "formality": "casual", "avg_post_length": 300, "emoji_usage": "none"}}`

func TestCompletionWorker_CompletesFullyEnrichedAuthor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	for i := 0; i < 3; i++ {
		item := seedItem(t, st, author.ID, fmt.Sprintf("post %d", i))
		finishItem(t, st, item.ID)
	}

	w := &CompletionWorker{
		Store: st,
		LLM: extractorFunc(func(ctx context.Context, system, user string) (json.RawMessage, error) {
			return json.RawMessage(styleJSON), nil
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Processed)

	counts, err := st.CountAuthorsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.SyncStatusCompleted])

	pending, err := st.CountAuthorsPendingCompletion(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCompletionWorker_UnfinishedItemsGateCompletion(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)

	// Four of five items enriched; the fifth still needs work.
	for i := 0; i < 4; i++ {
		item := seedItem(t, st, author.ID, fmt.Sprintf("post %d", i))
		finishItem(t, st, item.ID)
	}
	seedItem(t, st, author.ID, "straggler")

	w := &CompletionWorker{
		Store: st,
		LLM: extractorFunc(func(ctx context.Context, system, user string) (json.RawMessage, error) {
			t.Fatal("synthesis must not run while items are unfinished")
			return nil, nil
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Found)
	assert.Zero(t, report.Counts.Processed)
	assert.Zero(t, report.Counts.Failed, "not-ready is a skip, not a failure")

	// The author stays pending for the next cycle.
	pending, err := st.CountAuthorsPendingCompletion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestCompletionWorker_SmallCorpusSkipped(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	for i := 0; i < 2; i++ {
		item := seedItem(t, st, author.ID, fmt.Sprintf("post %d", i))
		finishItem(t, st, item.ID)
	}

	w := &CompletionWorker{
		Store:    st,
		MinItems: 3,
		LLM: extractorFunc(func(ctx context.Context, system, user string) (json.RawMessage, error) {
			t.Fatal("synthesis must not run below the corpus minimum")
			return nil, nil
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Counts.Processed)
	assert.Zero(t, report.Counts.Failed)
}

func TestCompletionWorker_TopItemsFeedSynthesis(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)

	for i := 0; i < 4; i++ {
		item, err := st.CreateItem(ctx, model.ContentItem{
			AuthorID:   author.ID,
			Content:    fmt.Sprintf("post-%d", i),
			Engagement: i * 10,
		})
		require.NoError(t, err)
		finishItem(t, st, item.ID)
	}

	var prompt string
	w := &CompletionWorker{
		Store:    st,
		TopItems: 2,
		LLM: extractorFunc(func(ctx context.Context, system, user string) (json.RawMessage, error) {
			prompt = user
			return json.RawMessage(styleJSON), nil
		}),
	}

	_, err := w.Run(ctx, nil)
	require.NoError(t, err)

	assert.Contains(t, prompt, "post-3")
	assert.Contains(t, prompt, "post-2")
	assert.NotContains(t, prompt, "post-0", "only the top items by engagement are sent")
}

func TestCompletionWorker_SynthesisFailureRetriedNextCycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	for i := 0; i < 3; i++ {
		item := seedItem(t, st, author.ID, fmt.Sprintf("post %d", i))
		finishItem(t, st, item.ID)
	}

	w := &CompletionWorker{
		Store: st,
		LLM: extractorFunc(func(ctx context.Context, system, user string) (json.RawMessage, error) {
			return nil, eris.New("synthesis failed")
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Failed)

	pending, err := st.CountAuthorsPendingCompletion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "failed synthesis keeps the author pending")
}

func TestCompletionWorker_EmptyPromptRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	for i := 0; i < 3; i++ {
		item := seedItem(t, st, author.ID, fmt.Sprintf("post %d", i))
		finishItem(t, st, item.ID)
	}

	w := &CompletionWorker{
		Store: st,
		LLM: extractorFunc(func(ctx context.Context, system, user string) (json.RawMessage, error) {
			return json.RawMessage(`{"prompt": "   ", "metrics": {}}`), nil
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Failed)

	counts, err := st.CountAuthorsByStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[model.SyncStatusCompleted])
}
