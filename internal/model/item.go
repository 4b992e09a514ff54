package model

import "time"

// ContentItem is one scraped social post. Items are created by ingestion with
// every needs-flag raised; each stage worker clears exactly one flag after
// durably writing its result (or deciding no result applies). The pipeline
// never deletes items.
type ContentItem struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`

	// Hook is the attention-grabbing opener extracted verbatim from the
	// content. Nil until hook extraction runs; may stay nil if the
	// extractor finds nothing usable.
	Hook *string `json:"hook,omitempty"`

	Embedding      []float32 `json:"embedding,omitempty"`
	HookCategoryID *string   `json:"hook_category_id,omitempty"`
	TopicID        *string   `json:"topic_id,omitempty"`
	AudienceID     *string   `json:"audience_id,omitempty"`

	NeedsHookExtraction         bool `json:"needs_hook_extraction"`
	NeedsEmbedding              bool `json:"needs_embedding"`
	NeedsHookClassification     bool `json:"needs_hook_classification"`
	NeedsTopicClassification    bool `json:"needs_topic_classification"`
	NeedsAudienceClassification bool `json:"needs_audience_classification"`

	// EmbeddingLockedAt marks the item as claimed by a running embedding
	// invocation. Set atomically at selection, cleared on every exit path.
	EmbeddingLockedAt *time.Time `json:"embedding_locked_at,omitempty"`

	Engagement int       `json:"engagement"`
	CreatedAt  time.Time `json:"created_at"`
}

// NeedsStage reports whether the stage still owes work on the item.
func (i ContentItem) NeedsStage(s Stage) bool {
	switch s {
	case StageHookExtraction:
		return i.NeedsHookExtraction
	case StageEmbedding:
		return i.NeedsEmbedding
	case StageHookClassification:
		return i.NeedsHookClassification
	case StageTopicClassification:
		return i.NeedsTopicClassification
	case StageAudienceClassification:
		return i.NeedsAudienceClassification
	}
	return false
}

// FullyEnriched reports whether every stage flag has been cleared.
func (i ContentItem) FullyEnriched() bool {
	return !i.NeedsHookExtraction &&
		!i.NeedsEmbedding &&
		!i.NeedsHookClassification &&
		!i.NeedsTopicClassification &&
		!i.NeedsAudienceClassification
}
