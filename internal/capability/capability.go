// Package capability adapts the LLM and embedding providers into the three
// narrow operations the stage workers consume. Provider choice, retries, and
// primary/fallback switching all live here so workers stay provider-agnostic.
package capability

import (
	"context"
	"encoding/json"
	"strings"
)

// Classifier answers a prompt with a short free-text response, typically one
// label name.
type Classifier interface {
	Classify(ctx context.Context, system, user string) (string, error)
}

// Extractor answers a prompt with a JSON document.
type Extractor interface {
	ExtractJSON(ctx context.Context, system, user string) (json.RawMessage, error)
}

// Embedder produces one embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LLM combines the two text capabilities one chat provider offers.
type LLM interface {
	Classifier
	Extractor
}

// cleanJSON strips markdown fences and extracts the outermost JSON value.
// Models occasionally wrap output in ```json fences despite instructions.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	objStart := strings.IndexAny(text, "{[")
	if objStart >= 0 {
		closer := "}"
		if text[objStart] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(text, closer); end > objStart {
			text = text[objStart : end+1]
		}
	}

	return strings.TrimSpace(text)
}
