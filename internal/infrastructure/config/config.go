package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig              `yaml:"server"`
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Router      RouterConfig              `yaml:"router"`
	Budget      BudgetConfig              `yaml:"budget"`
	Retrieval   RetrievalConfig           `yaml:"retrieval"`
	Features    FeaturesConfig            `yaml:"features"`
	Experiments ExperimentsConfig         `yaml:"experiments"`
	Domains     DomainsConfig             `yaml:"domains"`
	Memory      MemoryConfig              `yaml:"memory"`
	Performance PerformanceConfig         `yaml:"performance"`
	Logging     LoggingConfig             `yaml:"logging"`
	Security    SecurityConfig            `yaml:"security"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProviderConfig contains LLM provider settings.
type ProviderConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Enabled    bool          `yaml:"enabled"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// RouterConfig contains model-routing settings (§6.1, PHASE3_MODEL_ROUTER_MODE).
type RouterConfig struct {
	PrimaryModel    string   `yaml:"primary_model"`
	FallbackModels  []string `yaml:"fallback_models"`
	RouterMode      string   `yaml:"router_mode"` // "static" | "experiment"
	MaxConcurrent   int      `yaml:"max_concurrent_requests"`
}

// BudgetConfig contains the per-request resource ceilings (§4.1).
type BudgetConfig struct {
	MaxTokens     int     `yaml:"max_tokens"`
	MaxCents      float64 `yaml:"max_cents"`
	MaxSeconds    float64 `yaml:"max_seconds"`
}

// RetrievalConfig contains retrieval-layer settings (§4.2).
type RetrievalConfig struct {
	DefaultKFinal  int  `yaml:"default_k_final"`
	EnableRerank   bool `yaml:"enable_rerank"`
	DefaultWindow  int  `yaml:"default_window_days"`
}

// FeaturesConfig toggles optional command surfaces (§4.8.1).
type FeaturesConfig struct {
	EnableAnalyzeEvents      bool `yaml:"enable_analyze_events"`
	EnableAnalyzeGraph       bool `yaml:"enable_analyze_graph"`
	EnableAnalyzeForecast    bool `yaml:"enable_analyze_forecast"`
	EnableAnalyzeCompetitors bool `yaml:"enable_analyze_competitors"`
	EnableSynthesize         bool `yaml:"enable_synthesize"`
	EnableMemory             bool `yaml:"enable_memory"`
	EnableDashboard          bool `yaml:"enable_dashboard"`
	EnableReports            bool `yaml:"enable_reports"`
}

// ExperimentsConfig controls the experiment registry (§4.7).
type ExperimentsConfig struct {
	RegistryPath string `yaml:"registry_path"`
	Enabled      bool   `yaml:"enabled"`
}

// DomainsConfig holds the evidence-trust domain lists (§4.6.2).
type DomainsConfig struct {
	Whitelist []string `yaml:"whitelist"`
	Blacklist []string `yaml:"blacklist"`
}

// MemoryConfig configures the long-term memory store (§4.4 memory command).
type MemoryConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// PerformanceConfig contains performance tuning settings.
type PerformanceConfig struct {
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	MaxIdleConns     int           `yaml:"max_idle_conns"`
	MaxConnsPerHost  int           `yaml:"max_conns_per_host"`
	IdleConnTimeout  time.Duration `yaml:"idle_conn_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	RequireAuth       bool     `yaml:"require_auth"`
	APIKeys           []string `yaml:"api_keys"`
	CORSEnabled       bool     `yaml:"cors_enabled"`
	CORSOrigins       []string `yaml:"cors_origins"`
	RateLimitEnabled  bool     `yaml:"rate_limit_enabled"`
	RateLimitRequests int      `yaml:"rate_limit_requests"`
	RateLimitWindow   string   `yaml:"rate_limit_window"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Router.PrimaryModel == "" {
		return fmt.Errorf("router.primary_model must be specified")
	}

	hasEnabledProvider := false
	for _, provider := range c.Providers {
		if provider.Enabled {
			hasEnabledProvider = true
			break
		}
	}
	if !hasEnabledProvider {
		return fmt.Errorf("at least one provider must be enabled")
	}

	if c.Budget.MaxTokens <= 0 {
		return fmt.Errorf("budget.max_tokens must be positive")
	}

	return nil
}

// setDefaults sets default values for optional fields.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8001
	}

	for name, provider := range c.Providers {
		if provider.Timeout == 0 {
			provider.Timeout = 30 * time.Second
		}
		if provider.MaxRetries == 0 {
			provider.MaxRetries = 3
		}
		c.Providers[name] = provider
	}

	if c.Router.PrimaryModel == "" {
		c.Router.PrimaryModel = "gpt-5"
	}
	if len(c.Router.FallbackModels) == 0 {
		c.Router.FallbackModels = []string{"claude-4.5"}
	}
	if c.Router.RouterMode == "" {
		c.Router.RouterMode = "static"
	}
	if c.Router.MaxConcurrent == 0 {
		c.Router.MaxConcurrent = 16
	}

	if c.Budget.MaxTokens == 0 {
		c.Budget.MaxTokens = 20000
	}
	if c.Budget.MaxCents == 0 {
		c.Budget.MaxCents = 50
	}
	if c.Budget.MaxSeconds == 0 {
		c.Budget.MaxSeconds = 30
	}

	if c.Retrieval.DefaultKFinal == 0 {
		c.Retrieval.DefaultKFinal = 10
	}
	if c.Retrieval.DefaultWindow == 0 {
		c.Retrieval.DefaultWindow = 7
	}

	if c.Memory.RedisAddr == "" {
		c.Memory.RedisAddr = "localhost:6379"
	}

	if c.Performance.ReadTimeout == 0 {
		c.Performance.ReadTimeout = 30 * time.Second
	}
	if c.Performance.WriteTimeout == 0 {
		c.Performance.WriteTimeout = 30 * time.Second
	}
	if c.Performance.IdleTimeout == 0 {
		c.Performance.IdleTimeout = 60 * time.Second
	}
	if c.Performance.MaxIdleConns == 0 {
		c.Performance.MaxIdleConns = 100
	}
	if c.Performance.MaxConnsPerHost == 0 {
		c.Performance.MaxConnsPerHost = 10
	}
	if c.Performance.IdleConnTimeout == 0 {
		c.Performance.IdleConnTimeout = 90 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if len(c.Domains.Whitelist) == 0 {
		c.Domains.Whitelist = []string{
			"reuters.com", "apnews.com", "bbc.com", "bloomberg.com", "nytimes.com",
			"wsj.com", "ft.com", "theguardian.com", "npr.org", "economist.com",
			"washingtonpost.com", "techcrunch.com", "wired.com", "arstechnica.com",
		}
	}
	if len(c.Domains.Blacklist) == 0 {
		c.Domains.Blacklist = []string{
			"example-fake-news.com", "clickbait-daily.com", "unverified-leaks.net", "rumor-mill.info",
		}
	}
}

// expandEnvVars replaces ${VAR} and $VAR with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

// GetProviderByModel maps a model name to its provider family.
func (c *Config) GetProviderByModel(model string) string {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "o1-"), strings.HasPrefix(model, "o3-"):
		return "openai"
	case strings.HasPrefix(model, "claude-"):
		return "anthropic"
	case strings.HasPrefix(model, "gemini-"):
		return "gemini"
	case strings.HasPrefix(model, "deepseek-"):
		return "deepseek"
	default:
		return "ollama"
	}
}
