package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration for the content service and CLI.
type Config struct {
	ListenAddr          string        `validate:"required"`
	LogLevel            string        `validate:"oneof=debug info warn error"`
	CatalogPath         string        // empty selects the embedded catalog
	TrendSnapshotPath   string        // JSON snapshot served by the static provider
	SQLitePath          string        // empty disables the persistent store
	RedisURL            string        // empty disables the cache
	CacheTTL            time.Duration `validate:"gte=0"`
	TrendTimeout        time.Duration `validate:"gt=0"`
	MaxTrendSuggestions int           `validate:"min=1,max=20"`
	LLMAPIKey           string
	LLMBaseURL          string
	LLMModel            string
	LLMTemperature      float64 `validate:"gte=0,lte=2"`
	LLMMaxTokens        int     `validate:"gte=0"`
	LLMMaxKeywords      int     `validate:"gte=0"`
	LLMRatePerSecond    float64 `validate:"gt=0"`
	LLMBurst            int     `validate:"min=1"`
}

// LLMEnabled reports whether trend ratings should be requested from a model.
func (c Config) LLMEnabled() bool {
	return c.LLMAPIKey != "" && c.LLMModel != ""
}

type configFile struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
		LogLevel   string `yaml:"log_level"`
	} `yaml:"server"`
	Engine struct {
		CatalogPath         string `yaml:"catalog_path"`
		TrendTimeout        string `yaml:"trend_timeout"`
		MaxTrendSuggestions int    `yaml:"max_trend_suggestions"`
	} `yaml:"engine"`
	Trends struct {
		SnapshotPath string `yaml:"snapshot_path"`
		SQLitePath   string `yaml:"sqlite_path"`
		RedisURL     string `yaml:"redis_url"`
		CacheTTL     string `yaml:"cache_ttl"`
	} `yaml:"trends"`
	LLM struct {
		BaseURL       string   `yaml:"base_url"`
		Model         string   `yaml:"model"`
		Temperature   *float64 `yaml:"temperature"`
		MaxTokens     int      `yaml:"max_tokens"`
		MaxKeywords   int      `yaml:"max_keywords"`
		RatePerSecond float64  `yaml:"rate_per_second"`
		Burst         int      `yaml:"burst"`
	} `yaml:"llm"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		ListenAddr:          ":8080",
		LogLevel:            "info",
		TrendSnapshotPath:   "data/trends_sample.json",
		CacheTTL:            10 * time.Minute,
		TrendTimeout:        2 * time.Second,
		MaxTrendSuggestions: 3,
		LLMModel:            "gpt-4o-mini",
		LLMTemperature:      0.2,
		LLMMaxTokens:        512,
		LLMMaxKeywords:      20,
		LLMRatePerSecond:    2,
		LLMBurst:            4,
	}
}

// FromEnv loads .env, then the YAML file named by CONTENT_CONFIG_FILE (if any),
// then applies CONTENT_* environment overrides.
func FromEnv() (Config, error) {
	_ = godotenv.Load()
	return Load(os.Getenv("CONTENT_CONFIG_FILE"))
}

// Load builds a configuration from defaults, an optional YAML file and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.ListenAddr, f.Server.ListenAddr)
	setString(&c.LogLevel, f.Server.LogLevel)
	setString(&c.CatalogPath, f.Engine.CatalogPath)
	setString(&c.TrendSnapshotPath, f.Trends.SnapshotPath)
	setString(&c.SQLitePath, f.Trends.SQLitePath)
	setString(&c.RedisURL, f.Trends.RedisURL)
	setString(&c.LLMBaseURL, f.LLM.BaseURL)
	setString(&c.LLMModel, f.LLM.Model)

	if f.Engine.MaxTrendSuggestions > 0 {
		c.MaxTrendSuggestions = f.Engine.MaxTrendSuggestions
	}
	if f.LLM.Temperature != nil {
		c.LLMTemperature = *f.LLM.Temperature
	}
	if f.LLM.MaxTokens > 0 {
		c.LLMMaxTokens = f.LLM.MaxTokens
	}
	if f.LLM.MaxKeywords > 0 {
		c.LLMMaxKeywords = f.LLM.MaxKeywords
	}
	if f.LLM.RatePerSecond > 0 {
		c.LLMRatePerSecond = f.LLM.RatePerSecond
	}
	if f.LLM.Burst > 0 {
		c.LLMBurst = f.LLM.Burst
	}

	var errs []error
	if f.Engine.TrendTimeout != "" {
		errs = append(errs, parseDuration("engine.trend_timeout", f.Engine.TrendTimeout, &c.TrendTimeout))
	}
	if f.Trends.CacheTTL != "" {
		errs = append(errs, parseDuration("trends.cache_ttl", f.Trends.CacheTTL, &c.CacheTTL))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnv() error {
	c.ListenAddr = getEnv("CONTENT_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnv("CONTENT_LOG_LEVEL", c.LogLevel)
	c.CatalogPath = getEnv("CONTENT_CATALOG_PATH", c.CatalogPath)
	c.TrendSnapshotPath = getEnv("CONTENT_TREND_SNAPSHOT", c.TrendSnapshotPath)
	c.SQLitePath = getEnv("CONTENT_SQLITE_PATH", c.SQLitePath)
	c.RedisURL = getEnv("CONTENT_REDIS_URL", c.RedisURL)
	c.LLMAPIKey = getEnv("CONTENT_LLM_API_KEY", c.LLMAPIKey)
	c.LLMBaseURL = getEnv("CONTENT_LLM_BASE_URL", c.LLMBaseURL)
	c.LLMModel = getEnv("CONTENT_LLM_MODEL", c.LLMModel)

	if v := os.Getenv("CONTENT_TREND_TIMEOUT"); v != "" {
		if err := parseDuration("CONTENT_TREND_TIMEOUT", v, &c.TrendTimeout); err != nil {
			return err
		}
	}
	if v := os.Getenv("CONTENT_CACHE_TTL"); v != "" {
		if err := parseDuration("CONTENT_CACHE_TTL", v, &c.CacheTTL); err != nil {
			return err
		}
	}

	if v := os.Getenv("CONTENT_MAX_TREND_SUGGESTIONS"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &c.MaxTrendSuggestions); err != nil {
			return fmt.Errorf("parse CONTENT_MAX_TREND_SUGGESTIONS: %w", err)
		}
	}
	if v := os.Getenv("CONTENT_LLM_TEMPERATURE"); v != "" {
		if _, err := fmt.Sscanf(v, "%f", &c.LLMTemperature); err != nil {
			return fmt.Errorf("parse CONTENT_LLM_TEMPERATURE: %w", err)
		}
	}
	if v := os.Getenv("CONTENT_LLM_MAX_TOKENS"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &c.LLMMaxTokens); err != nil {
			return fmt.Errorf("parse CONTENT_LLM_MAX_TOKENS: %w", err)
		}
	}
	if v := os.Getenv("CONTENT_LLM_MAX_KEYWORDS"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &c.LLMMaxKeywords); err != nil {
			return fmt.Errorf("parse CONTENT_LLM_MAX_KEYWORDS: %w", err)
		}
	}
	if v := os.Getenv("CONTENT_LLM_RATE"); v != "" {
		if _, err := fmt.Sscanf(v, "%f", &c.LLMRatePerSecond); err != nil {
			return fmt.Errorf("parse CONTENT_LLM_RATE: %w", err)
		}
	}
	if v := os.Getenv("CONTENT_LLM_BURST"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &c.LLMBurst); err != nil {
			return fmt.Errorf("parse CONTENT_LLM_BURST: %w", err)
		}
	}
	return nil
}

func parseDuration(name, value string, dst *time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = d
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
