package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/capability"
	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

const hookMaxChars = 300

const hookSystemPrompt = `You extract the hook from a LinkedIn post. The hook is the attention-grabbing opening line or lines, at most 300 characters. Copy it verbatim from the post text. Do not paraphrase, trim words, or fix typos.

Respond with JSON only: {"hook": "<verbatim hook>"} or {"hook": null} if the post has no usable hook.`

// HookWorker extracts the verbatim hook from each post.
type HookWorker struct {
	Store         store.Store
	LLM           capability.Extractor
	BatchSize     int
	Delay         time.Duration
	MaxInputChars int
}

// Run processes one batch of items still needing hook extraction.
func (w *HookWorker) Run(ctx context.Context, stop func() bool) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(model.StageHookExtraction), func(ctx context.Context) (model.StageCounts, error) {
		items, err := w.Store.SelectItemsNeedingStage(ctx, model.StageHookExtraction, batchSize(w.BatchSize, 30))
		if err != nil {
			return model.StageCounts{}, err
		}
		return ProcessItems(ctx, items, w.Delay, stop, w.processItem), nil
	})
}

// RunItem processes a single item by id, ignoring its flag state.
func (w *HookWorker) RunItem(ctx context.Context, id string) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(model.StageHookExtraction), func(ctx context.Context) (model.StageCounts, error) {
		item, err := w.Store.GetItem(ctx, id)
		if err != nil {
			return model.StageCounts{}, err
		}
		return ProcessItems(ctx, []model.ContentItem{*item}, 0, nil, w.processItem), nil
	})
}

func (w *HookWorker) processItem(ctx context.Context, item model.ContentItem) error {
	input := truncate(item.Content, defaultInt(w.MaxInputChars, 6000))

	raw, err := w.LLM.ExtractJSON(ctx, hookSystemPrompt, fmt.Sprintf("Post:\n\n%s", input))
	if err != nil {
		return eris.Wrapf(err, "extract hook for item %s", item.ID)
	}

	var parsed struct {
		Hook *string `json:"hook"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return eris.Wrapf(err, "parse hook response for item %s", item.ID)
	}

	hook := validateHook(parsed.Hook, input, item.ID)
	return w.Store.SetItemHook(ctx, item.ID, hook)
}

// validateHook enforces the verbatim contract: the hook must appear in the
// input and fit the length cap. A bad answer degrades to no hook, which still
// clears the flag.
func validateHook(hook *string, input, itemID string) *string {
	if hook == nil {
		return nil
	}
	h := strings.TrimSpace(*hook)
	if h == "" {
		return nil
	}
	if len(h) > hookMaxChars {
		zap.L().Warn("extracted hook exceeds length cap, discarding",
			zap.String("item_id", itemID),
			zap.Int("length", len(h)),
		)
		return nil
	}
	if !strings.Contains(input, h) {
		zap.L().Warn("extracted hook is not verbatim, discarding",
			zap.String("item_id", itemID),
		)
		return nil
	}
	return &h
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func batchSize(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
