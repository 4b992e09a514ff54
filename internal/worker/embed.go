package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/capability"
	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

// EmbedWorker produces embedding vectors. It is the only stage where two
// overlapping invocations could double-spend on the same rows, so selection
// goes through the store's atomic claim instead of a plain select.
type EmbedWorker struct {
	Store         store.Store
	Embedder      capability.Embedder
	BatchSize     int
	Delay         time.Duration
	LockTTL       time.Duration
	MaxInputChars int
}

// Run claims and embeds one batch.
func (w *EmbedWorker) Run(ctx context.Context, stop func() bool) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(model.StageEmbedding), func(ctx context.Context) (model.StageCounts, error) {
		ttl := w.LockTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		items, err := w.Store.ClaimEmbeddingBatch(ctx, batchSize(w.BatchSize, 50), ttl)
		if err != nil {
			return model.StageCounts{}, err
		}

		// Track which claims are still held; everything not embedded by the
		// time we leave gets released, whatever the exit path.
		held := make(map[string]bool, len(items))
		for _, item := range items {
			held[item.ID] = true
		}
		defer func() {
			remaining := make([]string, 0, len(held))
			for id := range held {
				remaining = append(remaining, id)
			}
			if len(remaining) == 0 {
				return
			}
			if err := w.Store.ReleaseEmbeddingLocks(context.WithoutCancel(ctx), remaining); err != nil {
				zap.L().Error("failed to release embedding locks",
					zap.Int("count", len(remaining)),
					zap.Error(err),
				)
			}
		}()

		counts := ProcessItems(ctx, items, w.Delay, stop, func(ctx context.Context, item model.ContentItem) error {
			if err := w.embedItem(ctx, item); err != nil {
				return err
			}
			// SetItemEmbedding cleared the lock in the same update.
			delete(held, item.ID)
			return nil
		})
		return counts, nil
	})
}

// RunItem embeds a single item by id, bypassing the claim.
func (w *EmbedWorker) RunItem(ctx context.Context, id string) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(model.StageEmbedding), func(ctx context.Context) (model.StageCounts, error) {
		item, err := w.Store.GetItem(ctx, id)
		if err != nil {
			return model.StageCounts{}, err
		}
		return ProcessItems(ctx, []model.ContentItem{*item}, 0, nil, w.embedItem), nil
	})
}

func (w *EmbedWorker) embedItem(ctx context.Context, item model.ContentItem) error {
	input := item.Content
	if item.Hook != nil && *item.Hook != "" {
		input = *item.Hook + "\n\n" + item.Content
	}
	input = truncate(input, defaultInt(w.MaxInputChars, 8000))

	vec, err := w.Embedder.Embed(ctx, input)
	if err != nil {
		return err
	}
	return w.Store.SetItemEmbedding(ctx, item.ID, vec)
}
