package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/capability"
	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

// WorkerCompletion is the completion aggregator's name in job runs and
// feature flags.
const WorkerCompletion = "completion"

const styleSystemPrompt = `You analyze a LinkedIn author's best posts and synthesize a reusable writing-style profile.

Respond with JSON only:
{
  "prompt": "<2-4 sentence instruction for ghostwriting in this author's voice>",
  "metrics": {
    "tone": "<one or two words>",
    "formality": "<casual|neutral|formal>",
    "avg_post_length": <average characters per post, integer>,
    "emoji_usage": "<none|light|heavy>",
    "common_phrases": ["<recurring phrase>", ...],
    "sentence_rhythm": "<short description>"
  }
}`

// CompletionWorker flips authors to completed once their corpus is fully
// enriched, synthesizing the style profile from their strongest posts.
type CompletionWorker struct {
	Store     store.Store
	LLM       capability.Extractor
	BatchSize int
	MinItems  int
	TopItems  int
	Delay     time.Duration
}

// Run examines one batch of candidate authors.
func (w *CompletionWorker) Run(ctx context.Context, stop func() bool) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, WorkerCompletion, func(ctx context.Context) (model.StageCounts, error) {
		authors, err := w.Store.ListAuthorsPendingCompletion(ctx, batchSize(w.BatchSize, 5))
		if err != nil {
			return model.StageCounts{}, err
		}

		counts := model.StageCounts{Found: len(authors)}
		for _, author := range authors {
			if ctx.Err() != nil {
				break
			}
			if stop != nil && stop() {
				break
			}

			done, err := w.completeAuthor(ctx, author)
			if err != nil {
				counts.Failed++
				zap.L().Warn("author completion failed",
					zap.String("author_id", author.ID),
					zap.Error(err),
				)
			} else if done {
				counts.Processed++
			}

			if w.Delay > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(w.Delay):
				}
			}
		}
		return counts, nil
	})
}

// completeAuthor returns (false, nil) when the author is simply not ready yet:
// unfinished items remain or the corpus is too small. Not-ready is not failure;
// the author stays pending and is re-examined next cycle.
func (w *CompletionWorker) completeAuthor(ctx context.Context, author model.Author) (bool, error) {
	// Candidate listing can be stale; the unfinished count is authoritative.
	unfinished, err := w.Store.CountAuthorUnfinishedItems(ctx, author.ID)
	if err != nil {
		return false, eris.Wrap(err, "count unfinished items")
	}
	if unfinished > 0 {
		zap.L().Debug("author not ready for completion",
			zap.String("author_id", author.ID),
			zap.Int("unfinished", unfinished),
		)
		return false, nil
	}

	total, err := w.Store.CountAuthorItems(ctx, author.ID)
	if err != nil {
		return false, eris.Wrap(err, "count author items")
	}
	minItems := defaultInt(w.MinItems, 3)
	if total < minItems {
		zap.L().Info("author corpus too small for style synthesis",
			zap.String("author_id", author.ID),
			zap.Int("items", total),
			zap.Int("min_items", minItems),
		)
		return false, nil
	}

	items, err := w.Store.TopItemsByEngagement(ctx, author.ID, defaultInt(w.TopItems, 15))
	if err != nil {
		return false, eris.Wrap(err, "top items by engagement")
	}

	profile, err := w.synthesizeStyle(ctx, author, items)
	if err != nil {
		return false, err
	}

	err = w.Store.CompleteAuthor(ctx, author.ID, *profile)
	if eris.Is(err, store.ErrAuthorNotEligible) {
		// Lost a race with another invocation; their write stands.
		zap.L().Info("author completed elsewhere", zap.String("author_id", author.ID))
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "complete author")
	}

	zap.L().Info("author completed",
		zap.String("author_id", author.ID),
		zap.Int("items", total),
	)
	return true, nil
}

func (w *CompletionWorker) synthesizeStyle(ctx context.Context, author model.Author, items []model.ContentItem) (*model.StyleProfile, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Author: %s\n\n", author.Name)
	for i, item := range items {
		fmt.Fprintf(&sb, "Post %d (engagement %d):\n%s\n\n", i+1, item.Engagement, truncate(item.Content, 2000))
	}

	raw, err := w.LLM.ExtractJSON(ctx, styleSystemPrompt, sb.String())
	if err != nil {
		return nil, eris.Wrap(err, "synthesize style")
	}

	var profile model.StyleProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, eris.Wrap(err, "parse style profile")
	}
	if strings.TrimSpace(profile.Prompt) == "" {
		return nil, eris.New("style synthesis returned an empty prompt")
	}
	return &profile, nil
}
