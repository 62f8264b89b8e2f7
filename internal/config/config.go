// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
}

// AppConfig identifies the service for telemetry resources. The GCP fields
// are optional; tracing exports to Cloud Trace only when project_id is set.
type AppConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	Version       string `mapstructure:"version"`
	ProjectID     string `mapstructure:"project_id"`
	ProjectNumber string `mapstructure:"project_number"`
	Region        string `mapstructure:"region"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScraperConfig governs run behavior and the scheduling loop.
type ScraperConfig struct {
	UserAgent       string `mapstructure:"user_agent"`
	RespectRobots   bool   `mapstructure:"respect_robots"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
	IntervalHours   int    `mapstructure:"interval_hours"`
	ScheduleOnStart bool   `mapstructure:"schedule_on_start"`
}

// HTTPConfig configures the plain HTTP client used by API sources.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the browser rendering subsystem.
type HeadlessConfig struct {
	MaxParallel   int     `mapstructure:"max_parallel"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	MaxRPS        float64 `mapstructure:"max_rps"`
	Burst         int     `mapstructure:"burst"`
}

// SourcesConfig selects which built-in sources run and carries their wire
// codes.
type SourcesConfig struct {
	Enabled        []string `mapstructure:"enabled"`
	ChototRegion   string   `mapstructure:"chotot_region"`
	ChototCategory string   `mapstructure:"chotot_category"`
}

// DatabaseConfig controls listing persistence.
type DatabaseConfig struct {
	Provider           string `mapstructure:"provider"`
	DSN                string `mapstructure:"dsn"`
	ListingsTable      string `mapstructure:"listings_table"`
	RunsTable          string `mapstructure:"runs_table"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	ConnLifetimeMinute int    `mapstructure:"conn_lifetime_minutes"`
}

// PublisherConfig controls where newly stored listings are announced.
type PublisherConfig struct {
	Provider   string `mapstructure:"provider"`
	ProjectID  string `mapstructure:"project_id"`
	TopicName  string `mapstructure:"topic_name"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
}

// ArchiveConfig controls raw page snapshot storage.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("app.service_name", "estate-harvester")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("scraper.max_pages_default", 10)
	v.SetDefault("scraper.interval_hours", 6)
	v.SetDefault("scraper.schedule_on_start", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.max_rps", 0)
	v.SetDefault("headless.burst", 1)
	v.SetDefault("sources.enabled", []string{"batdongsan", "chotot"})
	v.SetDefault("database.provider", "memory")
	v.SetDefault("database.listings_table", "listings")
	v.SetDefault("database.runs_table", "scrape_runs")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.conn_lifetime_minutes", 30)
	v.SetDefault("publisher.provider", "none")
	v.SetDefault("publisher.exchange", "listings")
	v.SetDefault("publisher.routing_key", "listing.new")
	v.SetDefault("archive.provider", "none")
	v.SetDefault("archive.base_dir", "snapshots")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.MaxPagesDefault <= 0 {
		return fmt.Errorf("scraper.max_pages_default must be > 0")
	}
	if c.Scraper.ScheduleOnStart && c.Scraper.IntervalHours <= 0 {
		return fmt.Errorf("scraper.interval_hours must be > 0 when schedule_on_start is set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.MaxParallel < 0 {
		return fmt.Errorf("headless.max_parallel must be >= 0")
	}
	if len(c.Sources.Enabled) == 0 {
		return fmt.Errorf("sources.enabled must name at least one source")
	}

	switch c.Database.Provider {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.provider is postgres")
		}
	default:
		return fmt.Errorf("database.provider must be one of memory|postgres, got %q", c.Database.Provider)
	}

	switch c.Publisher.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicName == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_name must be set when publisher.provider is pubsub")
		}
	case "rabbit":
		if c.Publisher.URL == "" {
			return fmt.Errorf("publisher.url must be set when publisher.provider is rabbit")
		}
	default:
		return fmt.Errorf("publisher.provider must be one of none|memory|pubsub|rabbit, got %q", c.Publisher.Provider)
	}

	switch c.Archive.Provider {
	case "none", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set when archive.provider is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("archive.provider must be one of none|memory|local|gcs, got %q", c.Archive.Provider)
	}

	return nil
}

// HTTPTimeout converts the API-source client timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// ScrapeInterval converts the scheduler interval into a duration.
func (c Config) ScrapeInterval() time.Duration {
	return time.Duration(c.Scraper.IntervalHours) * time.Hour
}

// ConnLifetime converts the pool connection lifetime into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.Database.ConnLifetimeMinute) * time.Minute
}
