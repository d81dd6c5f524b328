// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Engine     EngineConfig     `mapstructure:"engine"`
	DB         DBConfig         `mapstructure:"db"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Crawl      CrawlConfig      `mapstructure:"crawl"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// EngineConfig selects and configures the Crawling Engine client.
// Provider "api" talks to the hosted engine and requires an API key;
// "embedded" crawls directly and needs no credential.
type EngineConfig struct {
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	UserAgent      string `mapstructure:"user_agent"`
}

// DBConfig controls access to the persistence store. The privileged DSN is
// preferred; the restricted DSN is the fallback when no privileged
// credential is provisioned.
type DBConfig struct {
	Provider      string `mapstructure:"provider"`
	PrivilegedDSN string `mapstructure:"privileged_dsn"`
	RestrictedDSN string `mapstructure:"restricted_dsn"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MinConns      int32  `mapstructure:"min_conns"`
}

// DSN returns the credential to connect with, preferring the privileged one.
func (c DBConfig) DSN() string {
	if c.PrivilegedDSN != "" {
		return c.PrivilegedDSN
	}
	return c.RestrictedDSN
}

// ClassifierConfig holds the Pub/Sub coordinates for classifier hand-off.
type ClassifierConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig selects the raw-HTML blob archive backend.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	LocalDir string `mapstructure:"local_dir"`
}

// CrawlConfig governs crawl pipeline defaults.
type CrawlConfig struct {
	PageLimitDefault     int `mapstructure:"page_limit_default"`
	ScrapeTimeoutSeconds int `mapstructure:"scrape_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGEMILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("engine.provider", "api")
	v.SetDefault("engine.base_url", "https://api.firecrawl.dev")
	v.SetDefault("engine.timeout_seconds", 30)
	v.SetDefault("engine.max_retries", 2)
	v.SetDefault("engine.user_agent", "pagemill-bot/1.0")
	v.SetDefault("db.provider", "postgres")
	v.SetDefault("classifier.provider", "noop")
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("crawl.page_limit_default", 100)
	v.SetDefault("crawl.scrape_timeout_seconds", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values before any client is constructed.
// A violation here is a configuration error raised ahead of all network
// activity.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.Engine.Provider {
	case "api":
		if c.Engine.APIKey == "" {
			return fmt.Errorf("engine.api_key is required when engine.provider is 'api'")
		}
		if c.Engine.BaseURL == "" {
			return fmt.Errorf("engine.base_url is required when engine.provider is 'api'")
		}
	case "embedded":
	default:
		return fmt.Errorf("unknown engine provider: %s", c.Engine.Provider)
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN() == "" {
			return fmt.Errorf("db.privileged_dsn or db.restricted_dsn is required when db.provider is 'postgres'")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db provider: %s", c.DB.Provider)
	}
	switch c.Classifier.Provider {
	case "pubsub":
		if c.Classifier.ProjectID == "" || c.Classifier.Topic == "" {
			return fmt.Errorf("classifier.project_id and classifier.topic are required when classifier.provider is 'pubsub'")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown classifier provider: %s", c.Classifier.Provider)
	}
	switch c.Archive.Provider {
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when archive.provider is 'gcs'")
		}
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required when archive.provider is 'local'")
		}
	case "memory", "noop":
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	if c.Crawl.PageLimitDefault <= 0 {
		return fmt.Errorf("crawl.page_limit_default must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// EngineTimeout converts the engine timeout config into a duration.
func (c Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// ScrapeTimeout is the default single-page scrape timeout.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Crawl.ScrapeTimeoutSeconds) * time.Second
}
