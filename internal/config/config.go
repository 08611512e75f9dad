// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler     CrawlerConfig     `mapstructure:"crawler"`
	Tenant      TenantConfig      `mapstructure:"tenant"`
	Chunker     ChunkerConfig     `mapstructure:"chunker"`
	Classifier  ClassifierConfig  `mapstructure:"classifier"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore"`
	Snapshots   SnapshotConfig    `mapstructure:"snapshots"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CrawlerConfig governs URL discovery and the fetch stage.
type CrawlerConfig struct {
	StartURLs         []string       `mapstructure:"start_urls"`
	MaxDepth          int            `mapstructure:"max_depth"`
	BatchSize         int            `mapstructure:"batch_size"`
	FollowExternal    bool           `mapstructure:"follow_external"`
	AllowedExtensions []string       `mapstructure:"allowed_extensions"`
	BlockedDomains    []string       `mapstructure:"blocked_domains"`
	ExcludedTags      []string       `mapstructure:"excluded_tags"`
	PreserveFileLinks bool           `mapstructure:"preserve_file_links"`
	UserAgent         string         `mapstructure:"user_agent"`
	TimeoutSeconds    int            `mapstructure:"timeout_seconds"`
	DomainRPS         float64        `mapstructure:"domain_rps"`
	Headless          HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// TenantConfig identifies whose corpus this run ingests.
type TenantConfig struct {
	ID       string `mapstructure:"id"`
	IDPrefix string `mapstructure:"chunk_id_prefix"`
}

// ChunkerConfig controls chunk sizing and overlap.
type ChunkerConfig struct {
	MaxSize      int     `mapstructure:"max_size"`
	OverlapRatio float64 `mapstructure:"overlap_ratio"`
	Unit         string  `mapstructure:"unit"` // "characters" or "tokens"
}

// ClassifierConfig controls the LLM relevance pass.
type ClassifierConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Temperature float64 `mapstructure:"temperature"`
	Workers     int     `mapstructure:"workers"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Policy      string  `mapstructure:"policy"` // "keywords" or "summary"
}

// VectorStoreConfig controls upsert, validation gating, and retention.
type VectorStoreConfig struct {
	Provider         string `mapstructure:"provider"` // "postgres" or "file"
	DSN              string `mapstructure:"dsn"`
	Table            string `mapstructure:"table"`
	UpsertBatchSize  int    `mapstructure:"upsert_batch_size"`
	ExpectedChunks   int    `mapstructure:"expected_chunks"`
	TolerancePct     int    `mapstructure:"tolerance_pct"`
	RetentionHours   int    `mapstructure:"retention_hours"`
	DeleteOldRecords bool   `mapstructure:"delete_old_records"`
	DryRun           bool   `mapstructure:"dry_run"`
	OutputDir        string `mapstructure:"output_dir"`
}

// SnapshotConfig controls raw page snapshot persistence.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"` // "none", "local" or "gcs"
	GCSBucket string `mapstructure:"gcs_bucket"`
	BaseDir   string `mapstructure:"base_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for run-completion notifications.
type NotifyConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RAGCRAWL")
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
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.batch_size", 20)
	v.SetDefault("crawler.follow_external", false)
	v.SetDefault("crawler.allowed_extensions", []string{"pdf"})
	v.SetDefault("crawler.excluded_tags", []string{"script", "style", "noscript"})
	v.SetDefault("crawler.preserve_file_links", true)
	v.SetDefault("crawler.user_agent", "ragcrawl-bot/0.1")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.domain_rps", 2)
	v.SetDefault("crawler.headless.enabled", true)
	v.SetDefault("crawler.headless.max_parallel", 2)
	v.SetDefault("crawler.headless.nav_timeout_seconds", 25)
	v.SetDefault("tenant.chunk_id_prefix", "web_crawl")
	v.SetDefault("chunker.max_size", 500)
	v.SetDefault("chunker.overlap_ratio", 0.2)
	v.SetDefault("chunker.unit", "tokens")
	v.SetDefault("classifier.enabled", true)
	v.SetDefault("classifier.model", "gpt-4o-mini")
	v.SetDefault("classifier.temperature", 0.3)
	v.SetDefault("classifier.workers", 10)
	v.SetDefault("classifier.max_tokens", 800)
	v.SetDefault("classifier.policy", "keywords")
	v.SetDefault("vectorstore.provider", "postgres")
	v.SetDefault("vectorstore.table", "chunks")
	v.SetDefault("vectorstore.upsert_batch_size", 50)
	v.SetDefault("vectorstore.tolerance_pct", 20)
	v.SetDefault("vectorstore.retention_hours", 24)
	v.SetDefault("vectorstore.delete_old_records", true)
	v.SetDefault("vectorstore.output_dir", "cleaned_output")
	v.SetDefault("snapshots.provider", "none")
	v.SetDefault("snapshots.prefix", "pages")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Crawler.StartURLs) == 0 {
		return fmt.Errorf("crawler.start_urls is required")
	}
	if c.Crawler.BatchSize <= 0 {
		return fmt.Errorf("crawler.batch_size must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Tenant.ID == "" {
		return fmt.Errorf("tenant.id is required")
	}
	if c.Chunker.MaxSize <= 0 {
		return fmt.Errorf("chunker.max_size must be > 0")
	}
	if c.Chunker.OverlapRatio < 0 || c.Chunker.OverlapRatio >= 1 {
		return fmt.Errorf("chunker.overlap_ratio must be in [0, 1)")
	}
	switch c.Chunker.Unit {
	case "characters", "tokens":
	default:
		return fmt.Errorf("chunker.unit must be \"characters\" or \"tokens\"")
	}
	if c.Classifier.Enabled {
		if c.Classifier.Workers <= 0 {
			return fmt.Errorf("classifier.workers must be > 0")
		}
		switch c.Classifier.Policy {
		case "keywords", "summary":
		default:
			return fmt.Errorf("classifier.policy must be \"keywords\" or \"summary\"")
		}
	}
	switch c.VectorStore.Provider {
	case "postgres":
		if !c.VectorStore.DryRun && c.VectorStore.DSN == "" {
			return fmt.Errorf("vectorstore.dsn is required for the postgres provider")
		}
	case "file", "memory":
	default:
		return fmt.Errorf("unknown vectorstore provider: %s", c.VectorStore.Provider)
	}
	if c.VectorStore.UpsertBatchSize <= 0 {
		return fmt.Errorf("vectorstore.upsert_batch_size must be > 0")
	}
	if c.VectorStore.TolerancePct < 0 || c.VectorStore.TolerancePct > 100 {
		return fmt.Errorf("vectorstore.tolerance_pct must be in [0, 100]")
	}
	switch c.Snapshots.Provider {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("unknown snapshots provider: %s", c.Snapshots.Provider)
	}
	if c.Snapshots.Provider == "gcs" && c.Snapshots.GCSBucket == "" {
		return fmt.Errorf("snapshots.gcs_bucket is required for the gcs provider")
	}
	if c.Snapshots.Provider == "local" && c.Snapshots.BaseDir == "" {
		return fmt.Errorf("snapshots.base_dir is required for the local provider")
	}
	if c.Notify.Enabled && (c.Notify.ProjectID == "" || c.Notify.TopicName == "") {
		return fmt.Errorf("notify.project_id and notify.topic_name are required when notify is enabled")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// FetchTimeout converts the crawler timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// RetentionWindow converts the retention hours into a duration.
func (c Config) RetentionWindow() time.Duration {
	return time.Duration(c.VectorStore.RetentionHours) * time.Hour
}
