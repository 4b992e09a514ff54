package capability

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/resilience"
	"github.com/draftline/content-cli/pkg/anthropic"
	"github.com/draftline/content-cli/pkg/openai"
)

// AnthropicLLM is the primary chat provider.
type AnthropicLLM struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicLLM creates the primary LLM adapter.
func NewAnthropicLLM(client anthropic.Client, model string, maxTokens int64) *AnthropicLLM {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicLLM{client: client, model: model, maxTokens: maxTokens}
}

func (l *AnthropicLLM) Classify(ctx context.Context, system, user string) (string, error) {
	resp, err := resilience.Do(ctx, resilience.DefaultRetryConfig("anthropic classify"),
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return l.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:      l.model,
				MaxTokens:  l.maxTokens,
				System:     system,
				UserPrompt: user,
			})
		})
	if err != nil {
		return "", eris.Wrap(err, "capability: anthropic classify")
	}
	return strings.TrimSpace(resp.Text), nil
}

func (l *AnthropicLLM) ExtractJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := resilience.Do(ctx, resilience.DefaultRetryConfig("anthropic extract"),
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return l.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:      l.model,
				MaxTokens:  l.maxTokens,
				System:     system,
				UserPrompt: user,
			})
		})
	if err != nil {
		return nil, eris.Wrap(err, "capability: anthropic extract")
	}
	return parseJSONResponse(resp.Text)
}

// OpenAIChat is the fallback chat provider.
type OpenAIChat struct {
	client    openai.Client
	maxTokens int64
}

// NewOpenAIChat creates the fallback LLM adapter.
func NewOpenAIChat(client openai.Client, maxTokens int64) *OpenAIChat {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &OpenAIChat{client: client, maxTokens: maxTokens}
}

func (l *OpenAIChat) Classify(ctx context.Context, system, user string) (string, error) {
	resp, err := resilience.Do(ctx, resilience.DefaultRetryConfig("openai classify"),
		func(ctx context.Context) (*openai.ChatResponse, error) {
			return l.client.ChatText(ctx, openai.ChatRequest{System: system, User: user, MaxTokens: l.maxTokens})
		})
	if err != nil {
		return "", eris.Wrap(err, "capability: openai classify")
	}
	return strings.TrimSpace(resp.Text), nil
}

func (l *OpenAIChat) ExtractJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	resp, err := resilience.Do(ctx, resilience.DefaultRetryConfig("openai extract"),
		func(ctx context.Context) (*openai.ChatResponse, error) {
			return l.client.ChatText(ctx, openai.ChatRequest{System: system, User: user, MaxTokens: l.maxTokens})
		})
	if err != nil {
		return nil, eris.Wrap(err, "capability: openai extract")
	}
	return parseJSONResponse(resp.Text)
}

// Fallback chains two LLMs: the secondary runs only when the primary failed
// with a transient error (outage, rate limit). Hard failures such as prompt
// rejections surface immediately.
type Fallback struct {
	Primary   LLM
	Secondary LLM
}

// NewFallback wraps a primary LLM with a secondary. A nil secondary returns
// the primary unchanged.
func NewFallback(primary, secondary LLM) LLM {
	if secondary == nil {
		return primary
	}
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (f *Fallback) Classify(ctx context.Context, system, user string) (string, error) {
	out, err := f.Primary.Classify(ctx, system, user)
	if err == nil {
		return out, nil
	}
	if !resilience.IsTransient(err) || ctx.Err() != nil {
		return "", err
	}
	zap.L().Warn("primary classify failed, trying fallback provider", zap.Error(err))
	return f.Secondary.Classify(ctx, system, user)
}

func (f *Fallback) ExtractJSON(ctx context.Context, system, user string) (json.RawMessage, error) {
	out, err := f.Primary.ExtractJSON(ctx, system, user)
	if err == nil {
		return out, nil
	}
	if !resilience.IsTransient(err) || ctx.Err() != nil {
		return nil, err
	}
	zap.L().Warn("primary extract failed, trying fallback provider", zap.Error(err))
	return f.Secondary.ExtractJSON(ctx, system, user)
}

func parseJSONResponse(text string) (json.RawMessage, error) {
	cleaned := cleanJSON(text)
	if !json.Valid([]byte(cleaned)) {
		return nil, eris.Errorf("capability: response is not valid JSON: %.120s", cleaned)
	}
	return json.RawMessage(cleaned), nil
}
