package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawler:
  start_urls: ["https://www.example.com"]
  max_depth: 2
  batch_size: 10
  user_agent: test-agent
  timeout_seconds: 30
  headless:
    enabled: true
    max_parallel: 1
    nav_timeout_seconds: 20
tenant:
  id: acme
chunker:
  max_size: 700
  overlap_ratio: 0.3
  unit: characters
classifier:
  enabled: true
  model: gpt-4o-mini
  workers: 4
  policy: summary
vectorstore:
  provider: file
  upsert_batch_size: 25
  expected_chunks: 100
  tolerance_pct: 10
  retention_hours: 48
  dry_run: true
  output_dir: out
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.Crawler.StartURLs[0]; got != "https://www.example.com" {
		t.Fatalf("start url = %q", got)
	}
	if cfg.Crawler.BatchSize != 10 {
		t.Fatalf("batch size = %d, want 10", cfg.Crawler.BatchSize)
	}
	if cfg.Tenant.ID != "acme" {
		t.Fatalf("tenant id = %q", cfg.Tenant.ID)
	}
	if cfg.Tenant.IDPrefix != "web_crawl" {
		t.Fatalf("default chunk id prefix = %q", cfg.Tenant.IDPrefix)
	}
	if cfg.Chunker.MaxSize != 700 || cfg.Chunker.Unit != "characters" {
		t.Fatalf("chunker config = %+v", cfg.Chunker)
	}
	if cfg.Classifier.Policy != "summary" || cfg.Classifier.Workers != 4 {
		t.Fatalf("classifier config = %+v", cfg.Classifier)
	}
	if !cfg.VectorStore.DryRun || cfg.VectorStore.ExpectedChunks != 100 {
		t.Fatalf("vectorstore config = %+v", cfg.VectorStore)
	}
	if got := cfg.FetchTimeout(); got != 30*time.Second {
		t.Fatalf("fetch timeout = %v", got)
	}
	if got := cfg.RetentionWindow(); got != 48*time.Hour {
		t.Fatalf("retention window = %v", got)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Crawler: CrawlerConfig{
				StartURLs: []string{"https://example.com"},
				BatchSize: 10,
			},
			Tenant:  TenantConfig{ID: "acme", IDPrefix: "web_crawl"},
			Chunker: ChunkerConfig{MaxSize: 500, OverlapRatio: 0.2, Unit: "tokens"},
			Classifier: ClassifierConfig{
				Enabled: true,
				Workers: 10,
				Policy:  "keywords",
			},
			VectorStore: VectorStoreConfig{
				Provider:        "file",
				UpsertBatchSize: 50,
				TolerancePct:    20,
			},
			Snapshots: SnapshotConfig{Provider: "none"},
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no start urls", func(c *Config) { c.Crawler.StartURLs = nil }, "start_urls"},
		{"no tenant", func(c *Config) { c.Tenant.ID = "" }, "tenant.id"},
		{"overlap too large", func(c *Config) { c.Chunker.OverlapRatio = 1.0 }, "overlap_ratio"},
		{"bad unit", func(c *Config) { c.Chunker.Unit = "words" }, "chunker.unit"},
		{"bad policy", func(c *Config) { c.Classifier.Policy = "haiku" }, "classifier.policy"},
		{"postgres without dsn", func(c *Config) {
			c.VectorStore.Provider = "postgres"
			c.VectorStore.DryRun = false
		}, "vectorstore.dsn"},
		{"gcs without bucket", func(c *Config) { c.Snapshots.Provider = "gcs" }, "gcs_bucket"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}

	// Every wired store provider must pass validation.
	for _, provider := range []string{"file", "memory"} {
		cfg := base()
		cfg.VectorStore.Provider = provider
		if err := cfg.Validate(); err != nil {
			t.Fatalf("provider %q rejected: %v", provider, err)
		}
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	minimal := `
crawler:
  start_urls: ["https://example.com"]
tenant:
  id: acme
vectorstore:
  provider: file
`
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.BatchSize != 20 {
		t.Fatalf("default batch size = %d", cfg.Crawler.BatchSize)
	}
	if cfg.Classifier.Workers != 10 {
		t.Fatalf("default workers = %d", cfg.Classifier.Workers)
	}
	if cfg.VectorStore.UpsertBatchSize != 50 {
		t.Fatalf("default upsert batch = %d", cfg.VectorStore.UpsertBatchSize)
	}
}
