package model

// Stage identifies one enrichment operation applied to a content item. Each
// stage owns exactly one needs-flag and one result field on the item; stages
// run independently and in any order.
type Stage string

const (
	StageHookExtraction         Stage = "hook_extraction"
	StageEmbedding              Stage = "embedding"
	StageHookClassification     Stage = "hook_classification"
	StageTopicClassification    Stage = "topic_classification"
	StageAudienceClassification Stage = "audience_classification"
)

// AllStages returns the stages in orchestrator priority order. Later stages
// produce better results when earlier ones are mostly done (classifying an
// item with no hook is pointless), but nothing in the data model enforces
// this ordering.
func AllStages() []Stage {
	return []Stage{
		StageHookExtraction,
		StageEmbedding,
		StageHookClassification,
		StageTopicClassification,
		StageAudienceClassification,
	}
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageHookExtraction, StageEmbedding, StageHookClassification,
		StageTopicClassification, StageAudienceClassification:
		return true
	}
	return false
}

// StageCounts summarizes one worker invocation.
type StageCounts struct {
	Found     int `json:"items_found"`
	Processed int `json:"items_processed"`
	Failed    int `json:"items_failed"`
}

// Add accumulates other into c.
func (c *StageCounts) Add(other StageCounts) {
	c.Found += other.Found
	c.Processed += other.Processed
	c.Failed += other.Failed
}
