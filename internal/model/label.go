package model

// LabelKind distinguishes the three operator-editable label sets.
type LabelKind string

const (
	LabelKindHookCategory LabelKind = "hook_category"
	LabelKindTopic        LabelKind = "topic"
	LabelKindAudience     LabelKind = "audience"
)

// Label is one allowed classification answer. Labels are data, not enums:
// operators add and rename them between invocations, so classification
// workers re-fetch the set at the top of every run.
type Label struct {
	ID   string    `json:"id"`
	Kind LabelKind `json:"kind"`
	Name string    `json:"name"`
}
