package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Workers   WorkersConfig   `yaml:"workers" mapstructure:"workers"`
	Cycle     CycleConfig     `yaml:"cycle" mapstructure:"cycle"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the worker HTTP server. Requests must carry either
// the scheduler secret header or the service bearer token.
type ServerConfig struct {
	Port            int    `yaml:"port" mapstructure:"port"`
	SchedulerSecret string `yaml:"scheduler_secret" mapstructure:"scheduler_secret"`
	ServiceToken    string `yaml:"service_token" mapstructure:"service_token"`
}

// AnthropicConfig holds the primary LLM provider settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds the fallback LLM provider and the embedding provider.
type OpenAIConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	ChatModel  string `yaml:"chat_model" mapstructure:"chat_model"`
	EmbedModel string `yaml:"embed_model" mapstructure:"embed_model"`
}

// StageConfig is the shared per-stage worker tuning.
type StageConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	DelayMS   int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// Delay returns the configured inter-item delay.
func (c StageConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// WorkersConfig holds the per-stage worker settings.
type WorkersConfig struct {
	HookExtraction         StageConfig      `yaml:"hook_extraction" mapstructure:"hook_extraction"`
	Embedding              EmbeddingConfig  `yaml:"embedding" mapstructure:"embedding"`
	HookClassification     BatchClassConfig `yaml:"hook_classification" mapstructure:"hook_classification"`
	TopicClassification    StageConfig      `yaml:"topic_classification" mapstructure:"topic_classification"`
	AudienceClassification StageConfig      `yaml:"audience_classification" mapstructure:"audience_classification"`
	Completion             CompletionConfig `yaml:"completion" mapstructure:"completion"`
}

// EmbeddingConfig configures the embedding stage, including the pessimistic
// selection lock.
type EmbeddingConfig struct {
	StageConfig   `yaml:",inline" mapstructure:",squash"`
	LockTTLMins   int `yaml:"lock_ttl_mins" mapstructure:"lock_ttl_mins"`
	MaxInputChars int `yaml:"max_input_chars" mapstructure:"max_input_chars"`
}

// LockTTL returns how long an embedding lock is honored before being treated
// as stale (a crashed invocation must not strand items).
func (c EmbeddingConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMins) * time.Minute
}

// BatchClassConfig configures the batched hook-classification stage.
type BatchClassConfig struct {
	StageConfig  `yaml:",inline" mapstructure:",squash"`
	SubBatchSize int `yaml:"sub_batch_size" mapstructure:"sub_batch_size"`
}

// CompletionConfig configures the completion aggregator.
type CompletionConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	DelayMS   int `yaml:"delay_ms" mapstructure:"delay_ms"`
	MinItems  int `yaml:"min_items" mapstructure:"min_items"`
	TopItems  int `yaml:"top_items" mapstructure:"top_items"`
}

// Delay returns the configured inter-author delay.
func (c CompletionConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// CycleConfig configures the orchestrator.
type CycleConfig struct {
	TimeBudgetMS int `yaml:"time_budget_ms" mapstructure:"time_budget_ms"`
}

// TimeBudget returns the wall-clock budget for one cycle.
func (c CycleConfig) TimeBudget() time.Duration {
	return time.Duration(c.TimeBudgetMS) * time.Millisecond
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "content.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.embed_model", "text-embedding-3-small")
	v.SetDefault("workers.hook_extraction.batch_size", 30)
	v.SetDefault("workers.hook_extraction.delay_ms", 250)
	v.SetDefault("workers.embedding.batch_size", 50)
	v.SetDefault("workers.embedding.delay_ms", 100)
	v.SetDefault("workers.embedding.lock_ttl_mins", 10)
	v.SetDefault("workers.embedding.max_input_chars", 8000)
	v.SetDefault("workers.hook_classification.batch_size", 40)
	v.SetDefault("workers.hook_classification.delay_ms", 500)
	v.SetDefault("workers.hook_classification.sub_batch_size", 10)
	v.SetDefault("workers.topic_classification.batch_size", 25)
	v.SetDefault("workers.topic_classification.delay_ms", 400)
	v.SetDefault("workers.audience_classification.batch_size", 25)
	v.SetDefault("workers.audience_classification.delay_ms", 400)
	v.SetDefault("workers.completion.batch_size", 5)
	v.SetDefault("workers.completion.delay_ms", 1500)
	v.SetDefault("workers.completion.min_items", 3)
	v.SetDefault("workers.completion.top_items", 15)
	v.SetDefault("cycle.time_budget_ms", 50000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "workers":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required (CONTENT_ANTHROPIC_KEY)")
		}
		if c.OpenAI.Key == "" {
			return eris.New("config: openai.key is required (CONTENT_OPENAI_KEY)")
		}
	case "serve":
		if c.Server.SchedulerSecret == "" && c.Server.ServiceToken == "" {
			return eris.New("config: server.scheduler_secret or server.service_token is required")
		}
	}
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for the postgres driver")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
