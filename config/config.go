package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the FactLens service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Social    SocialConfig    `mapstructure:"social"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen               string        `mapstructure:"listen"`
	Debug                bool          `mapstructure:"debug"`
	JWTSecret            string        `mapstructure:"jwt_secret"`
	MaxInvestigationTime time.Duration `mapstructure:"max_investigation_time"`
	ExtractionTimeout    time.Duration `mapstructure:"extraction_timeout"`
	MaxAnalyzedChars     int           `mapstructure:"max_analyzed_chars"`
}

// LLMConfig contains the completion provider configuration.
type LLMConfig struct {
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Timeout time.Duration       `mapstructure:"timeout"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Routing LLMRoutingConfig    `mapstructure:"routing"`
}

// LLMModel represents a specific model configuration.
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model handles each stage of the pipeline.
type LLMRoutingConfig struct {
	Classify     string `mapstructure:"classify"`     // investigation type classification
	Agent        string `mapstructure:"agent"`        // tool-calling investigation loop
	Spans        string `mapstructure:"spans"`        // fact/bias/sentiment span extraction
	Verification string `mapstructure:"verification"` // claim verification
	Fallback     string `mapstructure:"fallback"`
}

// SearchConfig contains web search provider settings.
type SearchConfig struct {
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SocialConfig contains social media scraping settings.
type SocialConfig struct {
	TwitterEndpoint   string  `mapstructure:"twitter_endpoint"`
	TikTokEndpoint    string  `mapstructure:"tiktok_endpoint"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// FetchConfig contains generic URL fetch/extraction settings.
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
	Headless bool          `mapstructure:"headless"` // chromedp fallback for dynamic pages
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Postgres       PostgresConfig `mapstructure:"postgres"`
	Redis          RedisConfig    `mapstructure:"redis"`
	VerifyCacheTTL time.Duration  `mapstructure:"verify_cache_ttl"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RetentionConfig controls periodic purging of old history records.
type RetentionConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Cron    string        `mapstructure:"cron"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// TelemetryConfig contains monitoring settings.
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// DSN builds a Postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, host, port, p.DBName, ssl)
}

// Configured reports whether any Postgres target has been provided.
func (p PostgresConfig) Configured() bool {
	return p.URL != "" || p.Host != "" || p.DBName != ""
}

// Configured reports whether a Redis target has been provided.
func (r RedisConfig) Configured() bool { return r.Host != "" }

// Addr returns the Redis host:port address.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("factlens")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	}
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("FACTLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("general.listen", ":8787")
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.max_investigation_time", "90s")
	viper.SetDefault("general.extraction_timeout", "25s")
	viper.SetDefault("general.max_analyzed_chars", 12000)

	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.routing.classify", "gpt-4o-mini")
	viper.SetDefault("llm.routing.agent", "gpt-4o")
	viper.SetDefault("llm.routing.spans", "gpt-4o-mini")
	viper.SetDefault("llm.routing.verification", "gpt-4o")
	viper.SetDefault("llm.routing.fallback", "gpt-4o-mini")

	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", "15s")

	viper.SetDefault("social.twitter_endpoint", "https://cdn.syndication.twimg.com/tweet-result")
	viper.SetDefault("social.tiktok_endpoint", "https://www.tikwm.com/api/")
	viper.SetDefault("social.requests_per_second", 2.0)

	viper.SetDefault("fetch.timeout", "15s")
	viper.SetDefault("fetch.max_chars", 20000)
	viper.SetDefault("fetch.headless", false)

	viper.SetDefault("storage.postgres.sslmode", "disable")
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.verify_cache_ttl", "1h")

	viper.SetDefault("retention.enabled", false)
	viper.SetDefault("retention.cron", "0 3 * * *")
	viper.SetDefault("retention.max_age", "720h")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)
}

// overrideFromEnv overrides sensitive configuration with well-known environment variables.
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("BRAVE_SEARCH_KEY"); apiKey != "" {
		viper.Set("search.brave_api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		viper.Set("search.serper_api_key", apiKey)
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		viper.Set("storage.postgres.url", url)
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
	if secret := os.Getenv("FACTLENS_JWT_SECRET"); secret != "" {
		viper.Set("general.jwt_secret", secret)
	}
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	routing := []string{
		config.LLM.Routing.Classify,
		config.LLM.Routing.Agent,
		config.LLM.Routing.Spans,
		config.LLM.Routing.Verification,
	}
	for _, model := range routing {
		if model == "" && config.LLM.Routing.Fallback == "" {
			return fmt.Errorf("llm routing incomplete and no fallback model configured")
		}
	}
	if config.General.MaxInvestigationTime <= 0 {
		return fmt.Errorf("general.max_investigation_time must be positive")
	}
	if config.General.ExtractionTimeout <= 0 {
		return fmt.Errorf("general.extraction_timeout must be positive")
	}
	if config.Retention.Enabled && config.Retention.Cron == "" {
		return fmt.Errorf("retention.cron required when retention is enabled")
	}
	return nil
}
