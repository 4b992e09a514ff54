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

// HookClassWorker assigns a hook category to each item. Items are sent to the
// model in sub-batches to amortize prompt overhead; one bad sub-batch fails
// only its own items.
type HookClassWorker struct {
	Store        store.Store
	LLM          capability.Extractor
	BatchSize    int
	SubBatchSize int
	Delay        time.Duration
}

const hookClassSystemPrompt = `You categorize LinkedIn post hooks. For every item, pick the single best-fitting category from the list, or "none" if nothing fits.

Categories:
%s

Respond with JSON only: a list of {"id": "<item id>", "label": "<category or none>"} covering every item.`

// Run processes one batch of items still needing hook classification.
func (w *HookClassWorker) Run(ctx context.Context, stop func() bool) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(model.StageHookClassification), func(ctx context.Context) (model.StageCounts, error) {
		idx, err := loadLabelIndex(ctx, w.Store, model.LabelKindHookCategory)
		if err != nil {
			return model.StageCounts{}, err
		}

		items, err := w.Store.SelectItemsNeedingStage(ctx, model.StageHookClassification, batchSize(w.BatchSize, 40))
		if err != nil {
			return model.StageCounts{}, err
		}

		counts := model.StageCounts{Found: len(items)}
		sub := defaultInt(w.SubBatchSize, 10)
		for start := 0; start < len(items); start += sub {
			if ctx.Err() != nil {
				break
			}
			if stop != nil && stop() {
				break
			}
			end := start + sub
			if end > len(items) {
				end = len(items)
			}
			batchCounts := w.classifySubBatch(ctx, idx, items[start:end])
			counts.Processed += batchCounts.Processed
			counts.Failed += batchCounts.Failed

			if w.Delay > 0 && end < len(items) {
				select {
				case <-ctx.Done():
				case <-time.After(w.Delay):
				}
			}
		}
		return counts, nil
	})
}

// RunItem classifies a single item by id as its own sub-batch.
func (w *HookClassWorker) RunItem(ctx context.Context, id string) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(model.StageHookClassification), func(ctx context.Context) (model.StageCounts, error) {
		idx, err := loadLabelIndex(ctx, w.Store, model.LabelKindHookCategory)
		if err != nil {
			return model.StageCounts{}, err
		}
		item, err := w.Store.GetItem(ctx, id)
		if err != nil {
			return model.StageCounts{}, err
		}
		counts := w.classifySubBatch(ctx, idx, []model.ContentItem{*item})
		counts.Found = 1
		return counts, nil
	})
}

// classifySubBatch sends one sub-batch through the model and writes results.
// A call or parse failure marks every item failed without touching flags.
func (w *HookClassWorker) classifySubBatch(ctx context.Context, idx *LabelIndex, items []model.ContentItem) model.StageCounts {
	var counts model.StageCounts

	answers, err := w.requestSubBatch(ctx, idx, items)
	if err != nil {
		zap.L().Warn("hook classification sub-batch failed",
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		counts.Failed = len(items)
		return counts
	}

	for _, item := range items {
		answer, ok := answers[item.ID]
		if !ok {
			zap.L().Warn("sub-batch response missing item", zap.String("item_id", item.ID))
			counts.Failed++
			continue
		}
		if err := applyLabelAnswer(ctx, idx, answer, item.ID, w.Store.SetItemHookCategory); err != nil {
			zap.L().Warn("hook classification failed",
				zap.String("item_id", item.ID),
				zap.Error(err),
			)
			counts.Failed++
			continue
		}
		counts.Processed++
	}
	return counts
}

func (w *HookClassWorker) requestSubBatch(ctx context.Context, idx *LabelIndex, items []model.ContentItem) (map[string]string, error) {
	var sb strings.Builder
	for _, item := range items {
		text := item.Content
		if item.Hook != nil && *item.Hook != "" {
			text = *item.Hook
		}
		fmt.Fprintf(&sb, "id: %s\nhook: %s\n\n", item.ID, truncate(text, 400))
	}

	system := fmt.Sprintf(hookClassSystemPrompt, "- "+strings.Join(idx.Names(), "\n- "))
	raw, err := w.LLM.ExtractJSON(ctx, system, sb.String())
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, eris.Wrap(err, "parse sub-batch response")
	}

	answers := make(map[string]string, len(parsed))
	for _, p := range parsed {
		answers[p.ID] = p.Label
	}
	return answers, nil
}

// ClassifyWorker is the per-item single-label classifier shared by the topic
// and audience stages.
type ClassifyWorker struct {
	Store     store.Store
	LLM       capability.Classifier
	Stage     model.Stage
	Kind      model.LabelKind
	Subject   string
	BatchSize int
	Delay     time.Duration
}

// NewTopicWorker builds the topic classification worker.
func NewTopicWorker(st store.Store, llm capability.Classifier, batch int, delay time.Duration) *ClassifyWorker {
	return &ClassifyWorker{
		Store: st, LLM: llm,
		Stage: model.StageTopicClassification, Kind: model.LabelKindTopic,
		Subject:   "the topic the post is about",
		BatchSize: batch, Delay: delay,
	}
}

// NewAudienceWorker builds the audience classification worker.
func NewAudienceWorker(st store.Store, llm capability.Classifier, batch int, delay time.Duration) *ClassifyWorker {
	return &ClassifyWorker{
		Store: st, LLM: llm,
		Stage: model.StageAudienceClassification, Kind: model.LabelKindAudience,
		Subject:   "the audience the post is written for",
		BatchSize: batch, Delay: delay,
	}
}

// Run processes one batch of items still needing this classification.
func (w *ClassifyWorker) Run(ctx context.Context, stop func() bool) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(w.Stage), func(ctx context.Context) (model.StageCounts, error) {
		idx, err := loadLabelIndex(ctx, w.Store, w.Kind)
		if err != nil {
			return model.StageCounts{}, err
		}

		items, err := w.Store.SelectItemsNeedingStage(ctx, w.Stage, batchSize(w.BatchSize, 25))
		if err != nil {
			return model.StageCounts{}, err
		}

		return ProcessItems(ctx, items, w.Delay, stop, func(ctx context.Context, item model.ContentItem) error {
			return w.classifyItem(ctx, idx, item)
		}), nil
	})
}

// RunItem classifies a single item by id.
func (w *ClassifyWorker) RunItem(ctx context.Context, id string) (*Report, error) {
	h := &Harness{Store: w.Store}
	return h.Run(ctx, string(w.Stage), func(ctx context.Context) (model.StageCounts, error) {
		idx, err := loadLabelIndex(ctx, w.Store, w.Kind)
		if err != nil {
			return model.StageCounts{}, err
		}
		item, err := w.Store.GetItem(ctx, id)
		if err != nil {
			return model.StageCounts{}, err
		}
		return ProcessItems(ctx, []model.ContentItem{*item}, 0, nil, func(ctx context.Context, item model.ContentItem) error {
			return w.classifyItem(ctx, idx, item)
		}), nil
	})
}

func (w *ClassifyWorker) classifyItem(ctx context.Context, idx *LabelIndex, item model.ContentItem) error {
	system := fmt.Sprintf(
		`You classify LinkedIn posts by %s. Answer with exactly one name from the list, or "none" if nothing fits. Answer with the name only.

Options:
- %s`,
		w.Subject, strings.Join(idx.Names(), "\n- "),
	)

	answer, err := w.LLM.Classify(ctx, system, truncate(item.Content, 4000))
	if err != nil {
		return eris.Wrapf(err, "classify %s for item %s", w.Kind, item.ID)
	}

	setter := w.Store.SetItemTopic
	if w.Kind == model.LabelKindAudience {
		setter = w.Store.SetItemAudience
	}
	return applyLabelAnswer(ctx, idx, answer, item.ID, setter)
}

// applyLabelAnswer resolves an answer against the index and writes the result.
// Both a matched label and a sanctioned "none" clear the flag. An unmappable
// answer also clears the flag, so a drifting prompt cannot starve an item
// forever, but it still returns an error so the invocation counts it failed.
func applyLabelAnswer(ctx context.Context, idx *LabelIndex, answer, itemID string, set func(context.Context, string, *string) error) error {
	label, ok := idx.Match(answer)

	var labelID *string
	if label != nil {
		labelID = &label.ID
	}

	if err := set(ctx, itemID, labelID); err != nil {
		return eris.Wrapf(err, "write classification for item %s", itemID)
	}
	if !ok {
		return eris.Errorf("answer %q matched no label", answer)
	}
	return nil
}

// loadLabelIndex fetches the label set fresh and fails the invocation when it
// is empty; classifying against zero options would clear every flag with no
// result.
func loadLabelIndex(ctx context.Context, st store.Store, kind model.LabelKind) (*LabelIndex, error) {
	labels, err := st.ListLabels(ctx, kind)
	if err != nil {
		return nil, eris.Wrapf(err, "list %s labels", kind)
	}
	idx := NewLabelIndex(labels)
	if idx.Empty() {
		return nil, eris.Errorf("no %s labels configured", kind)
	}
	return idx, nil
}
