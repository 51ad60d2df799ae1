// Package config loads runtime settings from config.yaml, a .env file and
// DRE_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/dre-engine/internal/fields"
	"github.com/dvloznov/dre-engine/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DRE_STORE_DRIVER.
const EnvPrefix = "DRE"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

type IngestConfig struct {
	Timezone string   `mapstructure:"timezone"`
	Denylist []string `mapstructure:"denylist"`
	// HeaderAliases adds header names per field, e.g.
	// valorEfetivo: ["Valor Pago"].
	HeaderAliases map[string][]string `mapstructure:"header_aliases"`
}

type ClassificationConfig struct {
	RulesFile string `mapstructure:"rules_file"`
}

type AggregationConfig struct {
	// Statuses restricts aggregation to these statuses. Empty keeps all.
	Statuses []string `mapstructure:"statuses"`
}

type BigQueryConfig struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
	Table   string `mapstructure:"table"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SQLiteConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type StoreConfig struct {
	Driver   string             `mapstructure:"driver"` // memory, bigquery, postgres or sqlite
	Owner    string             `mapstructure:"owner"`
	Batch    store.BatchOptions `mapstructure:"batch"`
	BigQuery BigQueryConfig     `mapstructure:"bigquery"`
	Postgres PostgresConfig     `mapstructure:"postgres"`
	SQLite   SQLiteConfig       `mapstructure:"sqlite"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Workers        int      `mapstructure:"workers"`
	QueueSize      int      `mapstructure:"queue_size"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type DriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Ingest         IngestConfig         `mapstructure:"ingest"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Aggregation    AggregationConfig    `mapstructure:"aggregation"`
	Store          StoreConfig          `mapstructure:"store"`
	Server         ServerConfig         `mapstructure:"server"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Drive          DriveConfig          `mapstructure:"drive"`
	Notion         NotionConfig         `mapstructure:"notion"`
}

func setDefaults(v *viper.Viper) {
	batch := store.DefaultBatchOptions()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("ingest.timezone", "America/Sao_Paulo")
	v.SetDefault("ingest.denylist", []string{})
	v.SetDefault("ingest.header_aliases", map[string][]string{})

	v.SetDefault("classification.rules_file", "")
	v.SetDefault("aggregation.statuses", []string{})

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.owner", "")
	v.SetDefault("store.batch.size", batch.Size)
	v.SetDefault("store.batch.delay", batch.Delay)
	v.SetDefault("store.batch.max_retries", batch.MaxRetries)
	v.SetDefault("store.batch.backoff", batch.Backoff)
	v.SetDefault("store.bigquery.project", "")
	v.SetDefault("store.bigquery.dataset", "finance")
	v.SetDefault("store.bigquery.table", "financial_records")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.sqlite.path", "data/records.db")
	v.SetDefault("store.sqlite.log_mode", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.workers", 5)
	v.SetDefault("server.queue_size", 100)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "uploads")
	v.SetDefault("drive.credentials_file", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
}

// Load reads configuration. An empty path looks for an optional
// config.yaml in the working directory; an explicit path must exist.
// A .env file in the working directory, when present, is loaded into the
// environment first without overriding variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Load: read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return &c, nil
}

// Aliases resolves the configured header aliases to fields.
func (c IngestConfig) Aliases() (map[fields.Field][]string, error) {
	out := make(map[fields.Field][]string, len(c.HeaderAliases))
	for name, headers := range c.HeaderAliases {
		f, err := fields.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("ingest.header_aliases: %w", err)
		}
		out[f] = append(out[f], headers...)
	}
	return out, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "bigquery", "postgres", "sqlite":
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format)
	}
	if _, err := time.LoadLocation(c.Ingest.Timezone); err != nil {
		return fmt.Errorf("ingest.timezone: %w", err)
	}
	if _, err := c.Ingest.Aliases(); err != nil {
		return err
	}
	if c.Store.Batch.Size <= 0 {
		return fmt.Errorf("store.batch.size: must be positive, got %d", c.Store.Batch.Size)
	}
	return nil
}

// Location returns the ingestion time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ingest.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var (
	appConfig *Config
	once      sync.Once
	loadErr   error
)

// Init loads the global configuration once. Later calls return the first
// result.
func Init(path string) (*Config, error) {
	once.Do(func() {
		appConfig, loadErr = Load(path)
	})
	return appConfig, loadErr
}

// Get returns the global configuration loaded by Init, or nil.
func Get() *Config {
	return appConfig
}
