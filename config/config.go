package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research system
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Research   ResearchConfig   `mapstructure:"research"`
	Collectors CollectorsConfig `mapstructure:"collectors"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LLMConfig contains the language model backend configuration. The backend is
// chosen once here; nothing downstream switches on model names.
type LLMConfig struct {
	Backend     string        `mapstructure:"backend"` // gemini, openai
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ResearchConfig contains pipeline-level settings
type ResearchConfig struct {
	DefaultMaxSources int           `mapstructure:"default_max_sources"`
	MaxSubQuestions   int           `mapstructure:"max_sub_questions"`
	CollectorTimeout  time.Duration `mapstructure:"collector_timeout"`
	TranscriptLimit   int           `mapstructure:"transcript_limit"`
}

// CollectorsConfig contains per-collector settings
type CollectorsConfig struct {
	Arxiv   ArxivConfig   `mapstructure:"arxiv"`
	YouTube YouTubeConfig `mapstructure:"youtube"`
	Webpage WebpageConfig `mapstructure:"webpage"`
}

// ArxivConfig contains arXiv search settings
type ArxivConfig struct {
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// YouTubeConfig contains YouTube Data API settings
type YouTubeConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// WebpageConfig contains webpage fetch settings
type WebpageConfig struct {
	Fetcher string        `mapstructure:"fetcher"` // http, chromedp
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig contains the collector result cache settings
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // memory, redis
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PeriodicLogs bool `mapstructure:"periodic_logs"`
}

// LoadConfig loads configuration from file and environment variables. An
// empty path searches the usual locations; a missing file is fine, defaults
// and environment cover everything.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("DEEPSCOUT")
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

// setDefaults sets default configuration values
func setDefaults() {
	// General defaults
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")

	// Server defaults
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "5m")

	// LLM defaults
	viper.SetDefault("llm.backend", "gemini")
	viper.SetDefault("llm.model", "gemini-2.5-flash")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.timeout", "2m")

	// Research defaults
	viper.SetDefault("research.default_max_sources", 5)
	viper.SetDefault("research.max_sub_questions", 5)
	viper.SetDefault("research.collector_timeout", "60s")
	viper.SetDefault("research.transcript_limit", 3000)

	// Collector defaults
	viper.SetDefault("collectors.arxiv.max_results", 10)
	viper.SetDefault("collectors.arxiv.timeout", "30s")
	viper.SetDefault("collectors.youtube.max_results", 10)
	viper.SetDefault("collectors.youtube.timeout", "30s")
	viper.SetDefault("collectors.webpage.fetcher", "http")
	viper.SetDefault("collectors.webpage.timeout", "45s")

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", "15m")
	viper.SetDefault("cache.redis.host", "localhost")
	viper.SetDefault("cache.redis.port", 6379)
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.timeout", "5s")

	// Telemetry defaults
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.periodic_logs", false)
}

// overrideFromEnv overrides configuration with environment variables for
// sensitive data
func overrideFromEnv() {
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" && viper.GetString("llm.backend") == "gemini" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && viper.GetString("llm.backend") == "openai" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("YOUTUBE_API_KEY"); apiKey != "" {
		viper.Set("collectors.youtube.api_key", apiKey)
	}

	// Redis configuration
	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("cache.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("cache.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("cache.redis.password", password)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	switch config.LLM.Backend {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.backend must be one of gemini, openai; got %q", config.LLM.Backend)
	}
	if config.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}

	if config.Research.DefaultMaxSources < 1 || config.Research.DefaultMaxSources > 10 {
		return fmt.Errorf("research.default_max_sources must be within [1,10]")
	}
	if config.Research.MaxSubQuestions < 1 {
		return fmt.Errorf("research.max_sub_questions must be >= 1")
	}
	if config.Research.TranscriptLimit < 0 {
		return fmt.Errorf("research.transcript_limit cannot be negative")
	}

	switch config.Collectors.Webpage.Fetcher {
	case "http", "chromedp":
	default:
		return fmt.Errorf("collectors.webpage.fetcher must be one of http, chromedp; got %q", config.Collectors.Webpage.Fetcher)
	}

	switch config.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be one of memory, redis; got %q", config.Cache.Backend)
	}

	return nil
}
