package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Session   SessionConfig   `yaml:"session"`
	History   HistoryConfig   `yaml:"history"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	PageTitle    string          `yaml:"pageTitle"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// BackendConfig points at the answer backend.
type BackendConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	Timeout           time.Duration `yaml:"timeout"`
	AskTimeout        time.Duration `yaml:"askTimeout"`
	ResponseTypesPath string        `yaml:"responseTypesPath"`
	AskPath           string        `yaml:"askPath"`
	ReloadConfigPath  string        `yaml:"reloadConfigPath"`
	ReloadDataPath    string        `yaml:"reloadDataPath"`
}

// AnalyticsConfig selects where interaction events go.
type AnalyticsConfig struct {
	Provider      string        `yaml:"provider"`
	QueueSize     int           `yaml:"queueSize"`
	Timeout       time.Duration `yaml:"timeout"`
	MeasurementID string        `yaml:"measurementId"`
	APISecret     string        `yaml:"apiSecret"`
	Endpoint      string        `yaml:"endpoint"`
}

// SessionConfig controls session cookies, CSRF and snapshot storage.
type SessionConfig struct {
	Secret        string        `yaml:"secret"`
	CookieName    string        `yaml:"cookieName"`
	TTL           time.Duration `yaml:"ttl"`
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig contains connection information for session storage.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// HistoryConfig controls the query log.
type HistoryConfig struct {
	MemoryLimit int            `yaml:"memoryLimit"`
	Postgres    PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

const (
	AnalyticsProviderLog  = "log"
	AnalyticsProviderGA4  = "ga4"
	AnalyticsProviderNone = "none"
)

// Load reads configuration from a YAML file, an optional .env file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("PAGE_TITLE"); v != "" {
		cfg.HTTP.PageTitle = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = parsed
		}
	}
	if v := os.Getenv("BACKEND_ASK_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Backend.AskTimeout = parsed
		}
	}
	if v := os.Getenv("ANALYTICS_PROVIDER"); v != "" {
		cfg.Analytics.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ANALYTICS_QUEUE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Analytics.QueueSize = parsed
		}
	}
	if v := os.Getenv("GA4_MEASUREMENT_ID"); v != "" {
		cfg.Analytics.MeasurementID = v
	}
	if v := os.Getenv("GA4_API_SECRET"); v != "" {
		cfg.Analytics.APISecret = v
	}
	if v := os.Getenv("GA4_ENDPOINT"); v != "" {
		cfg.Analytics.Endpoint = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = parsed
		}
	}
	if v := os.Getenv("SESSION_IDLE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTimeout = parsed
		}
	}
	if v := os.Getenv("SESSION_REDIS_ENABLED"); v != "" {
		cfg.Session.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("SESSION_REDIS_ADDR"); v != "" {
		cfg.Session.Redis.Addr = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MinConns = int32(parsed)
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":5024",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			PageTitle:    "Ask",
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Backend: BackendConfig{
			BaseURL:    "http://localhost:5000",
			Timeout:    15 * time.Second,
			AskTimeout: 75 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Provider:  AnalyticsProviderLog,
			QueueSize: 256,
			Timeout:   5 * time.Second,
		},
		Session: SessionConfig{
			CookieName:    "ask_session",
			TTL:           24 * time.Hour,
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
			Redis: RedisConfig{
				Prefix: "ask-console:session",
			},
		},
		History: HistoryConfig{
			MemoryLimit: 1000,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.baseUrl cannot be empty")
	}
	if c.Backend.Timeout < 0 || c.Backend.AskTimeout < 0 {
		return errors.New("backend timeouts cannot be negative")
	}
	switch c.Analytics.Provider {
	case AnalyticsProviderLog, AnalyticsProviderNone:
	case AnalyticsProviderGA4:
		if c.Analytics.MeasurementID == "" || c.Analytics.APISecret == "" {
			return errors.New("analytics.measurementId and analytics.apiSecret are required for ga4")
		}
	default:
		return fmt.Errorf("analytics.provider %q is not supported", c.Analytics.Provider)
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("session.secret must be at least 16 bytes")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("session.cookieName cannot be empty")
	}
	if c.Session.TTL < 0 || c.Session.IdleTimeout < 0 {
		return errors.New("session durations cannot be negative")
	}
	if c.Session.Redis.Enabled && strings.TrimSpace(c.Session.Redis.Addr) == "" {
		return errors.New("session.redis.addr cannot be empty when redis is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}
