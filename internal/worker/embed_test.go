package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedWorker_EmbedsAndClearsLock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	item := seedItem(t, st, author.ID, "A post about hiring.")

	w := &EmbedWorker{
		Store: st,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			return []float32{0.5, 0.25}, nil
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Processed)

	got, err := st.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, got.Embedding)
	assert.False(t, got.NeedsEmbedding)
	assert.Nil(t, got.EmbeddingLockedAt)
}

func TestEmbedWorker_HookPrefixedInput(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	item := seedItem(t, st, author.ID, "Body of the post.")
	hook := "The hook line."
	require.NoError(t, st.SetItemHook(ctx, item.ID, &hook))

	var seen string
	w := &EmbedWorker{
		Store: st,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			seen = text
			return []float32{1}, nil
		}),
	}

	_, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(seen, "The hook line.\n\n"))
	assert.Contains(t, seen, "Body of the post.")
}

func TestEmbedWorker_TruncatesLongInput(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	seedItem(t, st, author.ID, strings.Repeat("x", 20000))

	var seen string
	w := &EmbedWorker{
		Store:         st,
		MaxInputChars: 8000,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			seen = text
			return []float32{1}, nil
		}),
	}

	_, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, seen, 8000)
}

func TestEmbedWorker_FailureReleasesLock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	item := seedItem(t, st, author.ID, "post")

	w := &EmbedWorker{
		Store: st,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			return nil, eris.New("embedding api down")
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Failed)

	got, err := st.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.NeedsEmbedding)
	assert.Nil(t, got.EmbeddingLockedAt, "lock must be released on failure")

	// The item is immediately claimable again.
	claimed, err := st.ClaimEmbeddingBatch(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestEmbedWorker_StopReleasesUnprocessedLocks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	seedItem(t, st, author.ID, "a")
	seedItem(t, st, author.ID, "b")
	seedItem(t, st, author.ID, "c")

	processed := 0
	w := &EmbedWorker{
		Store: st,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			processed++
			return []float32{1}, nil
		}),
	}

	report, err := w.Run(ctx, func() bool { return processed >= 1 })
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Processed)

	// The two unvisited items must not be stranded behind live locks.
	claimed, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
}

func TestEmbedWorker_OverlappingRunsShareNothing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	seedItem(t, st, author.ID, "a")
	seedItem(t, st, author.ID, "b")

	// First invocation claims everything, then a second invocation starts
	// before the first finishes: it must find nothing to claim.
	_, err := st.ClaimEmbeddingBatch(ctx, 10, 10*time.Minute)
	require.NoError(t, err)

	calls := 0
	w := &EmbedWorker{
		Store: st,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			calls++
			return []float32{1}, nil
		}),
	}

	report, err := w.Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Counts.Found)
	assert.Zero(t, calls)
}

func TestEmbedWorker_TriggerMode(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	author := seedAuthor(t, st)
	item := seedItem(t, st, author.ID, "post")
	require.NoError(t, st.SetItemEmbedding(ctx, item.ID, []float32{9}))

	w := &EmbedWorker{
		Store: st,
		Embedder: embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
			return []float32{1, 2, 3}, nil
		}),
	}

	report, err := w.RunItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts.Processed)

	got, err := st.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got.Embedding)
}
