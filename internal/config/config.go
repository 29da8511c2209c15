package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Inference InferenceConfig `yaml:"inference" mapstructure:"inference"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Alerts    AlertsConfig    `yaml:"alerts" mapstructure:"alerts"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// SearchConfig configures the search evidence provider.
type SearchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // "serper" or "jina"
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Country     string `yaml:"country" mapstructure:"country"`
	Language    string `yaml:"language" mapstructure:"language"`
	ResultCount int    `yaml:"result_count" mapstructure:"result_count"`
	DelayMs     int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	MaxItems    int    `yaml:"max_items" mapstructure:"max_items"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina AI Search settings (alternate search provider).
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// InferenceConfig configures the language-model calls shared by every step.
type InferenceConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "openai" or "anthropic"
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OpenAIConfig holds OpenAI-compatible chat completion settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PipelineConfig configures generation behavior.
type PipelineConfig struct {
	ForbiddenPhrases []string `yaml:"forbidden_phrases" mapstructure:"forbidden_phrases"`
	// TokenBudgetScale multiplies every step's declared token budget.
	TokenBudgetScale float64 `yaml:"token_budget_scale" mapstructure:"token_budget_scale"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Models         map[string]ModelPricing `yaml:"models" mapstructure:"models"`
	SearchPerQuery float64                 `yaml:"search_per_query" mapstructure:"search_per_query"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// MetricsConfig configures batch metrics export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" mapstructure:"pushgateway_url"`
	Job            string `yaml:"job" mapstructure:"job"`
}

// AlertsConfig configures end-of-batch alerting. Zero thresholds disable
// the corresponding alert.
type AlertsConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
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
	v.SetEnvPrefix("LOCALPAGES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.base_url", "https://google.serper.dev")
	v.SetDefault("search.country", "es")
	v.SetDefault("search.language", "es")
	v.SetDefault("search.result_count", 10)
	v.SetDefault("search.delay_ms", 1100)
	v.SetDefault("search.max_items", 30)
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("inference.provider", "openai")
	v.SetDefault("inference.temperature", 0.4)
	v.SetDefault("inference.timeout_secs", 120)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("pipeline.token_budget_scale", 1.0)
	v.SetDefault("pipeline.forbidden_phrases", []string{
		"lorem ipsum",
		"como modelo de lenguaje",
		"[insertar",
		"garantizamos el éxito",
		"100% de éxito",
	})
	v.SetDefault("pricing.search_per_query", 0.001)
	v.SetDefault("metrics.job", "localpages_generate")
	v.SetDefault("alerts.failure_rate_threshold", 0.25)

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

// Validate checks that the settings required by the given command mode are
// present. Every missing key is reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "generate":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateSearch()...)
		switch c.Inference.Provider {
		case "openai":
			if c.OpenAI.Key == "" {
				errs = append(errs, "openai.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		default:
			errs = append(errs, "inference.provider must be openai or anthropic")
		}
		if c.Pipeline.TokenBudgetScale <= 0 {
			errs = append(errs, "pipeline.token_budget_scale must be positive")
		}
	case "evidence":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateSearch()...)
	case "migrate", "seed":
		errs = append(errs, c.validateStore()...)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
	case "sqlite":
	default:
		return []string{"store.driver must be postgres or sqlite"}
	}
	return nil
}

func (c *Config) validateSearch() []string {
	var errs []string
	switch c.Search.Provider {
	case "serper":
		if c.Search.Key == "" {
			errs = append(errs, "search.key is required")
		}
	case "jina":
		if c.Jina.Key == "" {
			errs = append(errs, "jina.key is required")
		}
	default:
		errs = append(errs, "search.provider must be serper or jina")
	}
	if c.Search.MaxItems <= 0 {
		errs = append(errs, "search.max_items must be positive")
	}
	return errs
}

// NewLogger builds a zap logger from cfg. verbose forces debug level.
func NewLogger(cfg LogConfig, verbose bool) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}

// InitLogger initializes the global zap logger and returns it.
func InitLogger(cfg LogConfig, verbose bool) (*zap.Logger, error) {
	logger, err := NewLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
