package model

import "time"

// SyncStatus is the lifecycle of an author's corpus.
type SyncStatus string

const (
	SyncStatusUnsynced   SyncStatus = "unsynced"
	SyncStatusScraping   SyncStatus = "scraping"
	SyncStatusScraped    SyncStatus = "scraped"
	SyncStatusProcessing SyncStatus = "processing"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusError      SyncStatus = "error"
)

// Author aggregates many content items. The completion aggregator flips an
// author to completed only once every item has cleared every stage flag and
// the style profile has been synthesized; a new scrape re-opens it.
type Author struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	LinkedInURN string     `json:"linkedin_urn,omitempty"`
	Status      SyncStatus `json:"status"`

	// StylePrompt and StyleMetrics are written exactly once per completion;
	// the null-check guard in the store keeps the expensive synthesis call
	// from running twice.
	StylePrompt  *string       `json:"style_prompt,omitempty"`
	StyleMetrics *StyleMetrics `json:"style_metrics,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// StyleMetrics is the structured half of a synthesized style profile.
type StyleMetrics struct {
	Tone           string   `json:"tone"`
	Formality      string   `json:"formality"`
	AvgPostLength  int      `json:"avg_post_length"`
	EmojiUsage     string   `json:"emoji_usage"`
	CommonPhrases  []string `json:"common_phrases,omitempty"`
	SentenceRhythm string   `json:"sentence_rhythm,omitempty"`
}

// StyleProfile is the aggregate result written by the completion worker.
type StyleProfile struct {
	Prompt  string       `json:"prompt"`
	Metrics StyleMetrics `json:"metrics"`
}
