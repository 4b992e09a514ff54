package capability

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/cost"
	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/resilience"
	"github.com/draftline/content-cli/pkg/openai"
)

// UsageRecorder is the slice of the store the embedder needs.
type UsageRecorder interface {
	RecordAIUsage(ctx context.Context, usage model.AIUsage) error
}

// LoggedEmbedder implements Embedder on the OpenAI embeddings API and records
// an ai_usage row for every call, success or not. Recording failures are
// logged and swallowed; the usage log must never break the pipeline.
type LoggedEmbedder struct {
	client   openai.Client
	recorder UsageRecorder
	model    string
}

// NewLoggedEmbedder creates the usage-logged embedder.
func NewLoggedEmbedder(client openai.Client, recorder UsageRecorder, embedModel string) *LoggedEmbedder {
	return &LoggedEmbedder{client: client, recorder: recorder, model: embedModel}
}

func (e *LoggedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	res, err := resilience.Do(ctx, resilience.DefaultRetryConfig("openai embed"),
		func(ctx context.Context) (*openai.EmbedResult, error) {
			return e.client.Embed(ctx, text)
		})
	latency := time.Since(start).Milliseconds()

	usage := model.AIUsage{
		Provider:  "openai",
		Model:     e.model,
		Operation: string(model.StageEmbedding),
		LatencyMS: latency,
		Success:   err == nil,
	}
	if err == nil {
		usage.InputTokens = res.InputTokens
		usage.CostUSD = cost.Estimate(e.model, res.InputTokens, 0)
	}
	if recErr := e.recorder.RecordAIUsage(ctx, usage); recErr != nil {
		zap.L().Warn("failed to record embedding usage", zap.Error(recErr))
	}

	if err != nil {
		return nil, eris.Wrap(err, "capability: embed")
	}
	return res.Vector, nil
}
