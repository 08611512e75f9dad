package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/config"
	"github.com/oenoai/ragcrawl/internal/ingest"
	"github.com/oenoai/ragcrawl/internal/vectorstore"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Crawler: config.CrawlerConfig{
			StartURLs: []string{"https://example.com"},
			MaxDepth:  1,
			BatchSize: 4,
		},
		Tenant: config.TenantConfig{ID: "acme", IDPrefix: "web_crawl"},
		Chunker: config.ChunkerConfig{
			MaxSize:      400,
			OverlapRatio: 0.2,
			Unit:         "characters",
		},
		VectorStore: config.VectorStoreConfig{
			Provider:     "memory",
			TolerancePct: 20,
		},
		Snapshots: config.SnapshotConfig{Provider: "none"},
	}
}

func TestNewBuildsPipelineWithMemoryProviders(t *testing.T) {
	cfg := baseConfig(t)

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.NotNil(t, a.Pipeline)
	require.NotNil(t, a.Registry)
	require.NotNil(t, a.Store)
}

func TestNewRejectsUnknownStoreProvider(t *testing.T) {
	cfg := baseConfig(t)
	cfg.VectorStore.Provider = "dynamo"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown vectorstore provider")
}

func TestNewRejectsUnknownSnapshotProvider(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Snapshots.Provider = "s3"

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown snapshot provider")
}

func TestNewRejectsInvalidStartURL(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Crawler.StartURLs = []string{"not a url"}

	_, err := New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid start URL")
}

func TestNewStoreKeepsExistingFileSinkRecords(t *testing.T) {
	cfg := baseConfig(t)
	cfg.VectorStore.Provider = "file"
	cfg.VectorStore.OutputDir = filepath.Join(t.TempDir(), "out")

	// A crawl writes one in-window chunk.
	ctx := context.Background()
	sink, err := vectorstore.NewFileSink(cfg.VectorStore.OutputDir, cfg.Tenant.IDPrefix)
	require.NoError(t, err)
	require.NoError(t, sink.Upsert(ctx, []ingest.Chunk{{
		ID:        "web_crawl_20990601_acme_visit_chunk_1",
		Content:   "Tasting room open daily.",
		SourceURL: "https://acme.com/visit",
		Index:     1,
		Total:     1,
		Hash:      "h",
		CrawledAt: time.Date(2099, 6, 1, 0, 0, 0, 0, time.UTC),
	}}))

	// A later retention-only sweep must see it and leave it alone.
	store, closeFn, err := NewStore(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	removed, err := store.PurgeOlderThan(ctx, cfg.Tenant.ID, time.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
	_, err = os.Stat(filepath.Join(cfg.VectorStore.OutputDir, "visit_chunk_1.md"))
	require.NoError(t, err)
}

func TestDryRunUsesFileSink(t *testing.T) {
	cfg := baseConfig(t)
	cfg.VectorStore.Provider = "postgres"
	cfg.VectorStore.DryRun = true
	cfg.VectorStore.OutputDir = t.TempDir()

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(context.Background())
	require.NotNil(t, a.Store)
}
