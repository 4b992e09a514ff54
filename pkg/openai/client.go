// Package openai wraps the official openai-go SDK. It serves two roles in
// the pipeline: the embedding provider, and the chat fallback when the
// primary LLM provider is unavailable.
package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rotisserie/eris"

	"github.com/draftline/content-cli/internal/resilience"
)

// Client defines the OpenAI operations used by the pipeline.
type Client interface {
	ChatText(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, text string) (*EmbedResult, error)
}

// ChatRequest is a single system+user chat completion request.
type ChatRequest struct {
	System    string
	User      string
	MaxTokens int64
}

// ChatResponse carries the completion text and token usage.
type ChatResponse struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// EmbedResult carries one embedding vector and its token cost.
type EmbedResult struct {
	Vector      []float32
	InputTokens int64
}

type sdkClient struct {
	client     sdk.Client
	chatModel  string
	embedModel string
}

// Option configures the client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
}

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// NewClient creates an OpenAI client for the given chat and embedding models.
func NewClient(apiKey, chatModel, embedModel string, opts ...Option) Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	} else {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}))
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}

	return &sdkClient{
		client:     sdk.NewClient(reqOpts...),
		chatModel:  chatModel,
		embedModel: embedModel,
	}
}

func (c *sdkClient) ChatText(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.chatModel),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(req.System),
			sdk.UserMessage(req.User),
		},
		MaxCompletionTokens: sdk.Int(maxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(classifyError(err), "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: chat completion returned no choices")
	}

	return &ChatResponse{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *sdkClient) Embed(ctx context.Context, text string) (*EmbedResult, error) {
	resp, err := c.client.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(c.embedModel),
		Input: sdk.EmbeddingNewParamsInputUnion{
			OfString: sdk.String(text),
		},
	})
	if err != nil {
		return nil, eris.Wrap(classifyError(err), "openai: create embedding")
	}
	if len(resp.Data) == 0 {
		return nil, eris.New("openai: embedding response contained no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}

	return &EmbedResult{
		Vector:      vec,
		InputTokens: resp.Usage.PromptTokens,
	}, nil
}

// classifyError marks retryable API failures as transient.
func classifyError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
