// Package config provides configuration management for the DOAB scraper.
//
// Settings come from built-in defaults, an optional YAML file and finally
// environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/doab-scraper/pkg/client"
	"github.com/Sternrassler/doab-scraper/pkg/doab"
	"github.com/Sternrassler/doab-scraper/pkg/logging"
	"github.com/Sternrassler/doab-scraper/pkg/pagination"
	"github.com/Sternrassler/doab-scraper/pkg/ratelimit"
	"github.com/Sternrassler/doab-scraper/pkg/scraper"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// EnvFile is the optional dotenv file loaded by Load.
const EnvFile = ".env.local"

// DefaultUserAgent identifies the scraper to the upstream.
const DefaultUserAgent = "doab-scraper/0.1.0"

// DefaultMaxYearSpan is the default number of years one request may cover.
const DefaultMaxYearSpan = 100

// Configuration validation errors.
var (
	ErrInvalidPort         = errors.New("server.port must be between 1 and 65535")
	ErrMissingBaseURL      = errors.New("upstream.base_url is required")
	ErrMissingUserAgent    = errors.New("upstream.user_agent is required")
	ErrInvalidTimeout      = errors.New("upstream.timeout must be positive")
	ErrInvalidMaxAttempts  = errors.New("upstream.max_attempts must be at least 1")
	ErrInvalidRetryDelay   = errors.New("upstream.retry_delay must be non-negative")
	ErrInvalidBatchSize    = errors.New("upstream.batch_size must be at least 1")
	ErrInvalidRate         = errors.New("upstream.requests_per_second must be non-negative")
	ErrInvalidDefaultLimit = errors.New("scrape.default_limit must be at least 1")
	ErrInvalidMaxYearSpan  = errors.New("scrape.max_year_span must be at least 1")
	ErrInvalidThreshold    = errors.New("redis.failure_threshold must be at least 1")
	ErrInvalidCooldown     = errors.New("redis.cooldown must be positive")
	ErrInvalidStaleAfter   = errors.New("redis.stale_after must be positive")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete scraper configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig describes how the DOAB search endpoint is called.
type UpstreamConfig struct {
	BaseURL           string        `yaml:"base_url"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	BatchSize         int           `yaml:"batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// RedisConfig enables the shared upstream failure tracker. Empty URL disables it.
type RedisConfig struct {
	URL              string        `yaml:"url"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
	StaleAfter       time.Duration `yaml:"stale_after"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ScrapeConfig holds request defaults and bounds.
type ScrapeConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	// MaxYearSpan caps the number of years one request may cover.
	MaxYearSpan int `yaml:"max_year_span"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			CORSOrigins:     []string{"*"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL:     doab.DefaultSearchURL,
			UserAgent:   DefaultUserAgent,
			Timeout:     60 * time.Second,
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
			BatchSize:   doab.DefaultBatchSize,
		},
		Redis: RedisConfig{
			FailureThreshold: ratelimit.DefaultFailureThreshold,
			Cooldown:         ratelimit.DefaultCooldown,
			StaleAfter:       ratelimit.DefaultStaleAfter,
		},
		Logging: LoggingConfig{
			Level: string(logging.LevelInfo),
		},
		Scrape: ScrapeConfig{
			DefaultLimit: scraper.DefaultLimit,
			MaxYearSpan:  DefaultMaxYearSpan,
		},
	}
}

// Load reads EnvFile if present, then the YAML file named by CONFIG_FILE
// (if set), then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load(EnvFile)
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile loads defaults, the YAML file at path (skipped when empty) and
// environment overrides, then validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.Logging.Pretty = pretty
	}
	if v := os.Getenv("DOAB_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		c.Upstream.UserAgent = v
	}
	if v := os.Getenv("MAX_YEAR_SPAN"); v != "" {
		span, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_YEAR_SPAN: %w", err)
		}
		c.Scrape.MaxYearSpan = span
	}
	if v := os.Getenv("REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("REQUESTS_PER_SECOND: %w", err)
		}
		c.Upstream.RequestsPerSecond = rps
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}

	if c.Upstream.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if c.Upstream.UserAgent == "" {
		return ErrMissingUserAgent
	}
	if c.Upstream.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Upstream.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Upstream.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.Upstream.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}

	if c.Scrape.DefaultLimit < 1 {
		return ErrInvalidDefaultLimit
	}
	if c.Scrape.MaxYearSpan < 1 {
		return ErrInvalidMaxYearSpan
	}

	if c.Redis.FailureThreshold < 1 {
		return ErrInvalidThreshold
	}
	if c.Redis.Cooldown <= 0 {
		return ErrInvalidCooldown
	}
	if c.Redis.StaleAfter <= 0 {
		return ErrInvalidStaleAfter
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(strings.TrimSpace(c.Logging.Level))] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// ClientConfig builds the fetcher configuration. Pacer and Gate are left to
// the caller.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.Upstream.UserAgent)
	cfg.Timeout = c.Upstream.Timeout
	cfg.Retry.MaxAttempts = c.Upstream.MaxAttempts
	cfg.Retry.Delay = c.Upstream.RetryDelay
	return cfg
}

// PaginationConfig builds the paginator configuration.
func (c *Config) PaginationConfig() pagination.Config {
	return pagination.Config{BatchSize: c.Upstream.BatchSize}
}

// LoggingSetup builds the logger configuration.
func (c *Config) LoggingSetup() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	return cfg
}

// TrackerConfig builds the failure budget configuration.
func (c *Config) TrackerConfig() ratelimit.TrackerConfig {
	return ratelimit.TrackerConfig{
		FailureThreshold: c.Redis.FailureThreshold,
		Cooldown:         c.Redis.Cooldown,
		StaleAfter:       c.Redis.StaleAfter,
	}
}

// RedisOptions parses Redis.URL. Both "redis://" URLs and bare host:port
// addresses are accepted. It returns nil when Redis is disabled.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	if strings.Contains(c.Redis.URL, "://") {
		opts, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.Redis.URL}, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
