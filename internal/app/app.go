// Package app initializes and holds the long-lived services of the ingestion
// pipeline, acting as the composition root. It reads the configuration once
// and instantiates the matching providers, failing fast when a critical
// service cannot be built.
package app

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/chunker"
	"github.com/oenoai/ragcrawl/internal/classifier"
	"github.com/oenoai/ragcrawl/internal/clock/system"
	"github.com/oenoai/ragcrawl/internal/config"
	"github.com/oenoai/ragcrawl/internal/fetcher"
	"github.com/oenoai/ragcrawl/internal/frontier"
	"github.com/oenoai/ragcrawl/internal/hash/sha256"
	"github.com/oenoai/ragcrawl/internal/id/uuid"
	"github.com/oenoai/ragcrawl/internal/ingest"
	"github.com/oenoai/ragcrawl/internal/pipeline"
	"github.com/oenoai/ragcrawl/internal/progress"
	"github.com/oenoai/ragcrawl/internal/progress/sinks"
	pubsubpublisher "github.com/oenoai/ragcrawl/internal/publisher/pubsub"
	gcsstorage "github.com/oenoai/ragcrawl/internal/storage/gcs"
	localstorage "github.com/oenoai/ragcrawl/internal/storage/local"
	"github.com/oenoai/ragcrawl/internal/vectorstore"
	"github.com/oenoai/ragcrawl/internal/vectorstore/postgres"
)

// App holds the assembled pipeline and its closable collaborators.
type App struct {
	Pipeline *pipeline.Pipeline
	Registry *prometheus.Registry
	Store    ingest.VectorStore

	logger     *zap.Logger
	hub        *progress.Hub
	headless   *fetcher.Headless
	classifier *classifier.Pool
	pgStore    *postgres.Store
	publisher  *pubsubpublisher.Publisher
	gcsStore   *gcsstorage.BlobStore
}

// New builds every service the configuration asks for and wires the pipeline.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger, Registry: prometheus.NewRegistry()}

	promSink, err := sinks.NewPrometheusSink(a.Registry)
	if err != nil {
		return nil, fmt.Errorf("init metrics sink: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")), promSink)

	fetch, err := a.buildFetcher(cfg, logger)
	if err != nil {
		a.closePartial(ctx)
		return nil, err
	}

	store, err := a.buildStore(ctx, cfg, true)
	if err != nil {
		a.closePartial(ctx)
		return nil, err
	}
	a.Store = store

	pool, err := a.buildClassifier(cfg, logger)
	if err != nil {
		a.closePartial(ctx)
		return nil, err
	}

	snapshots, err := a.buildSnapshots(ctx, cfg)
	if err != nil {
		a.closePartial(ctx)
		return nil, err
	}

	var publisher ingest.Publisher
	if cfg.Notify.Enabled {
		p, err := pubsubpublisher.New(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicName)
		if err != nil {
			a.closePartial(ctx)
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.publisher = p
		publisher = p
	}

	counter, err := chunker.NewCounter(cfg.Chunker.Unit)
	if err != nil {
		a.closePartial(ctx)
		return nil, fmt.Errorf("init chunk counter: %w", err)
	}
	chunk, err := chunker.New(counter, cfg.Chunker.MaxSize, cfg.Chunker.OverlapRatio)
	if err != nil {
		a.closePartial(ctx)
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	gate, err := vectorstore.NewGate(cfg.VectorStore.ExpectedChunks, cfg.VectorStore.TolerancePct, logger.Named("gate"))
	if err != nil {
		a.closePartial(ctx)
		return nil, fmt.Errorf("init validation gate: %w", err)
	}

	front, err := buildFrontier(cfg, logger)
	if err != nil {
		a.closePartial(ctx)
		return nil, err
	}

	notifyTopic := ""
	if cfg.Notify.Enabled {
		notifyTopic = cfg.Notify.TopicName
	}

	p, err := pipeline.New(pipeline.Config{
		StartURLs:         cfg.Crawler.StartURLs,
		MaxDepth:          cfg.Crawler.MaxDepth,
		BatchSize:         cfg.Crawler.BatchSize,
		Tenant:            cfg.Tenant.ID,
		IDPrefix:          cfg.Tenant.IDPrefix,
		ExcludedTags:      cfg.Crawler.ExcludedTags,
		PreserveFileLinks: cfg.Crawler.PreserveFileLinks,
		RetentionWindow:   time.Duration(cfg.VectorStore.RetentionHours) * time.Hour,
		DeleteOldRecords:  cfg.VectorStore.DeleteOldRecords,
		DryRun:            cfg.VectorStore.DryRun,
		SnapshotPrefix:    cfg.Snapshots.Prefix,
		NotifyTopic:       notifyTopic,
	}, pipeline.Deps{
		Fetcher:    fetch,
		Frontier:   front,
		Chunker:    chunk,
		Classifier: pool,
		Store:      store,
		Gate:       gate,
		Snapshots:  snapshots,
		Publisher:  publisher,
		Hasher:     sha256.New(),
		Clock:      system.New(),
		IDs:        uuid.New(),
		Progress:   a.hub,
		Logger:     logger.Named("pipeline"),
	})
	if err != nil {
		a.closePartial(ctx)
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	a.Pipeline = p
	return a, nil
}

// NewStore builds only the vector store, for retention-only commands that
// never crawl.
func NewStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ingest.VectorStore, func(), error) {
	a := &App{logger: logger}
	store, err := a.buildStore(ctx, cfg, false)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if a.pgStore != nil {
			a.pgStore.Close()
		}
	}
	return store, closeFn, nil
}

// Close drains progress events and releases every owned service.
func (a *App) Close(ctx context.Context) {
	a.closePartial(ctx)
}

func (a *App) closePartial(ctx context.Context) {
	if a.classifier != nil {
		a.classifier.Release()
		a.classifier = nil
	}
	if a.headless != nil {
		a.headless.Close()
		a.headless = nil
	}
	if a.pgStore != nil {
		a.pgStore.Close()
		a.pgStore = nil
	}
	if a.gcsStore != nil {
		if err := a.gcsStore.Close(); err != nil {
			a.logger.Warn("gcs close failed", zap.Error(err))
		}
		a.gcsStore = nil
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
		a.publisher = nil
	}
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
		a.hub = nil
	}
}

func (a *App) buildFetcher(cfg config.Config, logger *zap.Logger) (ingest.Fetcher, error) {
	probe, err := fetcher.NewProbe(fetcher.ProbeConfig{
		UserAgent:      cfg.Crawler.UserAgent,
		RequestTimeout: time.Duration(cfg.Crawler.TimeoutSeconds) * time.Second,
		Concurrency:    cfg.Crawler.BatchSize,
		DomainRPS:      int(cfg.Crawler.DomainRPS),
	}, logger.Named("probe"))
	if err != nil {
		return nil, fmt.Errorf("init probe fetcher: %w", err)
	}

	var headless ingest.Fetcher
	if cfg.Crawler.Headless.Enabled {
		h, err := fetcher.NewHeadless(fetcher.HeadlessConfig{
			UserAgent:      cfg.Crawler.UserAgent,
			MaxConcurrency: cfg.Crawler.Headless.MaxParallel,
			NavTimeout:     time.Duration(cfg.Crawler.Headless.NavTimeoutSec) * time.Second,
			DomainRPS:      cfg.Crawler.DomainRPS,
		}, logger.Named("headless"))
		if err != nil {
			// A missing browser degrades to probe-only fetching.
			a.logger.Warn("headless fetcher unavailable", zap.Error(err))
		} else {
			a.headless = h
			headless = h
		}
	}

	return fetcher.NewPromoting(probe, headless, fetcher.NewDefaultHeuristic(), logger.Named("fetcher")), nil
}

// buildStore constructs the configured vector store. clearSink controls the
// file-backed variants: a crawl starts from an empty output tree, while a
// retention-only command must attach to the existing one so in-window records
// survive the sweep.
func (a *App) buildStore(ctx context.Context, cfg config.Config, clearSink bool) (ingest.VectorStore, error) {
	openSink := vectorstore.OpenFileSink
	if clearSink {
		openSink = vectorstore.NewFileSink
	}
	if cfg.VectorStore.DryRun {
		sink, err := openSink(cfg.VectorStore.OutputDir, cfg.Tenant.IDPrefix)
		if err != nil {
			return nil, fmt.Errorf("init dry-run sink: %w", err)
		}
		return sink, nil
	}
	switch cfg.VectorStore.Provider {
	case "postgres":
		store, err := postgres.New(ctx, postgres.StoreConfig{
			DSN:       cfg.VectorStore.DSN,
			Table:     cfg.VectorStore.Table,
			IDPrefix:  cfg.Tenant.IDPrefix,
			BatchSize: cfg.VectorStore.UpsertBatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.pgStore = store
		return store, nil
	case "file":
		sink, err := openSink(cfg.VectorStore.OutputDir, cfg.Tenant.IDPrefix)
		if err != nil {
			return nil, fmt.Errorf("init file sink: %w", err)
		}
		return sink, nil
	case "memory":
		return vectorstore.NewMemory(cfg.Tenant.IDPrefix), nil
	default:
		return nil, fmt.Errorf("unknown vectorstore provider: %s", cfg.VectorStore.Provider)
	}
}

func (a *App) buildClassifier(cfg config.Config, logger *zap.Logger) (*classifier.Pool, error) {
	if !cfg.Classifier.Enabled {
		return nil, nil
	}
	llm, err := classifier.NewOpenAI(classifier.Options{
		Model:       cfg.Classifier.Model,
		BaseURL:     cfg.Classifier.BaseURL,
		APIKey:      cfg.Classifier.APIKey,
		Temperature: cfg.Classifier.Temperature,
		MaxTokens:   cfg.Classifier.MaxTokens,
		Policy:      classifier.Policy(cfg.Classifier.Policy),
	}, logger.Named("classifier"))
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}
	pool, err := classifier.NewPool(llm, cfg.Classifier.Workers, logger.Named("classifier"))
	if err != nil {
		return nil, fmt.Errorf("init classifier pool: %w", err)
	}
	a.classifier = pool
	return pool, nil
}

func (a *App) buildSnapshots(ctx context.Context, cfg config.Config) (ingest.BlobStore, error) {
	switch cfg.Snapshots.Provider {
	case "", "none":
		return nil, nil
	case "local":
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Snapshots.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local snapshot store: %w", err)
		}
		return store, nil
	case "gcs":
		store, err := gcsstorage.New(ctx, gcsstorage.Config{Bucket: cfg.Snapshots.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs snapshot store: %w", err)
		}
		a.gcsStore = store
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshot provider: %s", cfg.Snapshots.Provider)
	}
}

// buildFrontier scopes the crawl to the start URL hosts plus configuration.
func buildFrontier(cfg config.Config, logger *zap.Logger) (*frontier.Frontier, error) {
	hosts := make([]string, 0, len(cfg.Crawler.StartURLs))
	for _, raw := range cfg.Crawler.StartURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			return nil, fmt.Errorf("invalid start URL %q", raw)
		}
		hosts = append(hosts, u.Hostname())
	}
	scope := frontier.NewScope(frontier.ScopeConfig{
		AllowedHosts:      hosts,
		FollowExternal:    cfg.Crawler.FollowExternal,
		AllowedExtensions: cfg.Crawler.AllowedExtensions,
		BlockedDomains:    cfg.Crawler.BlockedDomains,
	})
	return frontier.New(scope, logger.Named("frontier")), nil
}
