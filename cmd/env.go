package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/capability"
	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/monitoring"
	"github.com/draftline/content-cli/internal/server"
	"github.com/draftline/content-cli/internal/store"
	"github.com/draftline/content-cli/internal/worker"
	"github.com/draftline/content-cli/pkg/anthropic"
	"github.com/draftline/content-cli/pkg/openai"
)

// pipelineEnv bundles everything a command needs to run workers.
type pipelineEnv struct {
	store      store.Store
	hooks      *worker.HookWorker
	embed      *worker.EmbedWorker
	hookClass  *worker.HookClassWorker
	topic      *worker.ClassifyWorker
	audience   *worker.ClassifyWorker
	completion *worker.CompletionWorker
	collector  *monitoring.Collector
}

// initStore opens the configured backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initPipeline builds the store, provider clients, and workers.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("workers"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	primary := capability.NewAnthropicLLM(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
	)
	oaClient := openai.NewClient(cfg.OpenAI.Key, cfg.OpenAI.ChatModel, cfg.OpenAI.EmbedModel)
	llm := capability.NewFallback(primary, capability.NewOpenAIChat(oaClient, cfg.Anthropic.MaxTokens))
	embedder := capability.NewLoggedEmbedder(oaClient, st, cfg.OpenAI.EmbedModel)

	w := cfg.Workers
	return &pipelineEnv{
		store: st,
		hooks: &worker.HookWorker{
			Store:     st,
			LLM:       llm,
			BatchSize: w.HookExtraction.BatchSize,
			Delay:     w.HookExtraction.Delay(),
		},
		embed: &worker.EmbedWorker{
			Store:         st,
			Embedder:      embedder,
			BatchSize:     w.Embedding.BatchSize,
			Delay:         w.Embedding.Delay(),
			LockTTL:       w.Embedding.LockTTL(),
			MaxInputChars: w.Embedding.MaxInputChars,
		},
		hookClass: &worker.HookClassWorker{
			Store:        st,
			LLM:          llm,
			BatchSize:    w.HookClassification.BatchSize,
			SubBatchSize: w.HookClassification.SubBatchSize,
			Delay:        w.HookClassification.Delay(),
		},
		topic:    worker.NewTopicWorker(st, llm, w.TopicClassification.BatchSize, w.TopicClassification.Delay()),
		audience: worker.NewAudienceWorker(st, llm, w.AudienceClassification.BatchSize, w.AudienceClassification.Delay()),
		completion: &worker.CompletionWorker{
			Store:     st,
			LLM:       llm,
			BatchSize: w.Completion.BatchSize,
			MinItems:  w.Completion.MinItems,
			TopItems:  w.Completion.TopItems,
			Delay:     w.Completion.Delay(),
		},
		collector: monitoring.NewCollector(st, 0),
	}, nil
}

func (e *pipelineEnv) Close() {
	if err := e.store.Close(); err != nil {
		zap.L().Warn("closing store", zap.Error(err))
	}
}

func (e *pipelineEnv) orchestrator() *worker.Orchestrator {
	return &worker.Orchestrator{
		Store:      e.store,
		Hooks:      e.hooks,
		Embed:      e.embed,
		HookClass:  e.hookClass,
		Topic:      e.topic,
		Audience:   e.audience,
		Completion: e.completion,
		TimeBudget: cfg.Cycle.TimeBudget(),
	}
}

// runners maps worker names to their server-facing interfaces.
func (e *pipelineEnv) runners() (map[string]server.WorkerRunner, map[string]server.BatchRunner) {
	workers := map[string]server.WorkerRunner{
		string(model.StageHookExtraction):         e.hooks,
		string(model.StageEmbedding):              e.embed,
		string(model.StageHookClassification):     e.hookClass,
		string(model.StageTopicClassification):    e.topic,
		string(model.StageAudienceClassification): e.audience,
	}
	batchOnly := map[string]server.BatchRunner{
		worker.WorkerCompletion: e.completion,
	}
	return workers, batchOnly
}
