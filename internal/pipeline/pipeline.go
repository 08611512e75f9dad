// Package pipeline orchestrates one ingestion run: discover and fetch pages,
// extract and deduplicate their text, chunk, classify, upsert, and purge
// expired records. Stages hand off synchronous lists; per-item failures are
// isolated and tallied rather than aborting siblings.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/chunker"
	"github.com/oenoai/ragcrawl/internal/classifier"
	"github.com/oenoai/ragcrawl/internal/dedup"
	"github.com/oenoai/ragcrawl/internal/frontier"
	"github.com/oenoai/ragcrawl/internal/ingest"
	"github.com/oenoai/ragcrawl/internal/progress"
	"github.com/oenoai/ragcrawl/internal/vectorstore"
)

// Config controls one run.
type Config struct {
	// StartURLs seed the frontier.
	StartURLs []string
	// MaxDepth bounds link-following; 0 fetches only the seeds.
	MaxDepth int
	// BatchSize is the number of concurrent fetches per wave.
	BatchSize int
	// Tenant is the customer identifier embedded in chunk ids.
	Tenant string
	// IDPrefix leads every chunk id.
	IDPrefix string
	// PreserveFileLinks keeps non-image file links (PDFs) in stripped text.
	PreserveFileLinks bool
	// ExcludedTags are removed from pages during fallback extraction; empty
	// keeps the extractor defaults.
	ExcludedTags []string
	// RetentionWindow is how long records live before the purge sweeps them.
	RetentionWindow time.Duration
	// DeleteOldRecords enables the retention purge after a successful upsert.
	DeleteOldRecords bool
	// DryRun marks runs writing to the file sink instead of the real store.
	DryRun bool
	// SnapshotPrefix leads blob paths for raw page snapshots.
	SnapshotPrefix string
	// NotifyTopic, when set with a publisher, receives the run summary.
	NotifyTopic string
}

// Deps collects the pipeline's collaborators. Fetcher, Store, Hasher, Clock
// and IDs are required; the rest degrade to no-ops when nil.
type Deps struct {
	Fetcher    ingest.Fetcher
	Frontier   *frontier.Frontier
	Chunker    *chunker.Chunker
	Classifier *classifier.Pool
	Store      ingest.VectorStore
	Gate       *vectorstore.Gate
	Snapshots  ingest.BlobStore
	Publisher  ingest.Publisher
	Hasher     ingest.Hasher
	Clock      ingest.Clock
	IDs        ingest.IDGenerator
	Progress   progress.Emitter
	Logger     *zap.Logger
}

// Pipeline executes ingestion runs.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

const snapshotContentType = "text/html; charset=utf-8"

// New validates the dependency set and constructs a Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if len(cfg.StartURLs) == 0 {
		return nil, fmt.Errorf("at least one start URL is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0")
	}
	if cfg.Tenant == "" {
		return nil, fmt.Errorf("tenant is required")
	}
	if deps.Fetcher == nil || deps.Frontier == nil || deps.Chunker == nil ||
		deps.Store == nil || deps.Hasher == nil || deps.Clock == nil || deps.IDs == nil {
		return nil, fmt.Errorf("fetcher, frontier, chunker, store, hasher, clock and id generator are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: logger}, nil
}

// Run executes one full ingestion pass and returns its summary. The summary
// is populated even when Run returns an error.
func (p *Pipeline) Run(ctx context.Context) (ingest.Summary, error) {
	runID, err := p.deps.IDs.NewID()
	if err != nil {
		return ingest.Summary{}, fmt.Errorf("generate run id: %w", err)
	}

	started := p.deps.Clock.Now()
	summary := ingest.Summary{
		RunID:        runID,
		StartedAt:    started,
		DryRun:       p.cfg.DryRun,
		StageElapsed: make(map[string]time.Duration),
	}
	p.emit(progress.Event{RunID: runID, Stage: progress.StageRunStart})
	p.logger.Info("run started",
		zap.String("run_id", runID),
		zap.Strings("start_urls", p.cfg.StartURLs),
		zap.Bool("dry_run", p.cfg.DryRun),
	)

	err = p.execute(ctx, runID, &summary)

	summary.FinishedAt = p.deps.Clock.Now()
	summary.Elapsed = summary.FinishedAt.Sub(started)
	if err != nil {
		p.emit(progress.Event{RunID: runID, Stage: progress.StageRunError, Note: err.Error()})
		p.logger.Error("run failed", zap.String("run_id", runID), zap.Error(err))
	} else {
		p.emit(progress.Event{RunID: runID, Stage: progress.StageRunDone, Dur: summary.Elapsed})
		p.logger.Info("run completed",
			zap.String("run_id", runID),
			zap.Int("pages_fetched", summary.PagesFetched),
			zap.Int("chunks_upserted", summary.ChunksUpserted),
			zap.Duration("elapsed", summary.Elapsed),
		)
	}

	p.publishSummary(ctx, summary)
	return summary, err
}

func (p *Pipeline) execute(ctx context.Context, runID string, summary *ingest.Summary) error {
	fetchStart := p.deps.Clock.Now()
	pages := p.crawl(ctx, runID, summary)
	summary.StageElapsed["fetch"] = p.deps.Clock.Now().Sub(fetchStart)

	extractStart := p.deps.Clock.Now()
	documents := p.extract(runID, pages, summary)
	summary.StageElapsed["extract"] = p.deps.Clock.Now().Sub(extractStart)

	chunkStart := p.deps.Clock.Now()
	chunks := p.chunk(runID, documents, summary)
	summary.StageElapsed["chunk"] = p.deps.Clock.Now().Sub(chunkStart)

	classifyStart := p.deps.Clock.Now()
	kept, err := p.classify(ctx, runID, chunks, summary)
	summary.StageElapsed["classify"] = p.deps.Clock.Now().Sub(classifyStart)
	if err != nil {
		return fmt.Errorf("classify chunks: %w", err)
	}

	upsertStart := p.deps.Clock.Now()
	err = p.upsert(ctx, runID, kept, summary)
	summary.StageElapsed["upsert"] = p.deps.Clock.Now().Sub(upsertStart)
	if err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	purgeStart := p.deps.Clock.Now()
	err = p.purge(ctx, runID, summary)
	summary.StageElapsed["purge"] = p.deps.Clock.Now().Sub(purgeStart)
	if err != nil {
		return fmt.Errorf("purge expired records: %w", err)
	}
	return nil
}

// crawl walks the frontier breadth-first up to MaxDepth, fetching each wave
// with batch-scoped goroutines. Newly discovered in-scope links feed the next
// wave; per-URL fetch failures are tallied and never abort the wave.
func (p *Pipeline) crawl(ctx context.Context, runID string, summary *ingest.Summary) []ingest.Page {
	var wave []string
	for _, raw := range p.cfg.StartURLs {
		if canonical, ok := p.deps.Frontier.Add(raw); ok {
			wave = append(wave, canonical)
		}
	}

	var pages []ingest.Page
	for depth := 0; depth <= p.cfg.MaxDepth && len(wave) > 0; depth++ {
		var next []string
		for _, batch := range batchURLs(wave, p.cfg.BatchSize) {
			results := p.fetchBatch(ctx, runID, batch)
			for _, res := range results {
				switch res.Status {
				case ingest.StatusOK:
					pages = append(pages, res.Value)
					summary.PagesFetched++
					if depth < p.cfg.MaxDepth {
						for _, link := range res.Value.Links {
							if canonical, ok := p.deps.Frontier.Add(link); ok {
								next = append(next, canonical)
							}
						}
					}
				case ingest.StatusFail:
					summary.PagesFailed++
				case ingest.StatusSkip:
					summary.PagesFailed++
				}
			}
		}
		wave = next
	}
	summary.URLsDiscovered = p.deps.Frontier.Len()
	return pages
}

func (p *Pipeline) fetchBatch(ctx context.Context, runID string, batch []string) []ingest.Result[ingest.Page] {
	results := make([]ingest.Result[ingest.Page], len(batch))
	var wg sync.WaitGroup
	for i, pageURL := range batch {
		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			results[i] = p.fetchOne(ctx, runID, pageURL)
		}(i, pageURL)
	}
	wg.Wait()
	return results
}

func (p *Pipeline) fetchOne(ctx context.Context, runID, pageURL string) ingest.Result[ingest.Page] {
	page, err := p.deps.Fetcher.Fetch(ctx, ingest.FetchRequest{URL: pageURL})
	if err != nil {
		p.logger.Warn("fetch failed", zap.String("url", pageURL), zap.Error(err))
		return ingest.Fail[ingest.Page](err)
	}
	p.emit(progress.Event{
		RunID:       runID,
		Stage:       progress.StageFetchDone,
		Site:        hostOf(pageURL),
		URL:         pageURL,
		StatusClass: progress.ClassifyStatus(page.StatusCode),
		Dur:         page.Duration,
	})
	if !page.OK() {
		p.logger.Warn("non-2xx response", zap.String("url", pageURL), zap.Int("status", page.StatusCode))
		return ingest.Skip[ingest.Page](fmt.Sprintf("status %d", page.StatusCode))
	}
	p.snapshot(ctx, page)
	return ingest.Ok(page)
}

// snapshot persists the raw page body for debugging. Failures are logged and
// never affect the run.
func (p *Pipeline) snapshot(ctx context.Context, page ingest.Page) {
	if p.deps.Snapshots == nil {
		return
	}
	u, err := url.Parse(page.URL)
	if err != nil {
		return
	}
	name := chunker.SanitizeFilename(u.Path)
	path := fmt.Sprintf("%s/%s/%s/%s.html",
		p.cfg.SnapshotPrefix, u.Hostname(), page.FetchedAt.UTC().Format("20060102"), name)
	if _, err := p.deps.Snapshots.PutObject(ctx, path, snapshotContentType, page.Body); err != nil {
		p.logger.Warn("snapshot write failed", zap.String("url", page.URL), zap.Error(err))
	}
}

// extract converts fetched pages to markdown and drops empty and duplicate
// pages before chunking.
func (p *Pipeline) extract(runID string, pages []ingest.Page, summary *ingest.Summary) []ingest.Page {
	deduper := dedup.NewPageDeduper(p.deps.Hasher, p.cfg.PreserveFileLinks)
	extractor := dedup.NewExtractor(p.cfg.ExcludedTags)

	var documents []ingest.Page
	for _, page := range pages {
		markdown := page.Markdown
		if markdown == "" {
			extracted, err := extractor.ExtractMarkdown(string(page.Body))
			if err != nil {
				p.logger.Warn("extraction failed", zap.String("url", page.URL), zap.Error(err))
				p.skipPage(runID, page.URL, "extraction failed")
				summary.PagesEmpty++
				continue
			}
			markdown = extracted
		}

		hash, admitted := deduper.Admit(markdown)
		switch {
		case hash == "":
			p.skipPage(runID, page.URL, "empty page")
			summary.PagesEmpty++
		case !admitted:
			p.skipPage(runID, page.URL, "duplicate content")
			summary.PagesDeduped++
		default:
			page.Markdown = markdown
			page.ContentHash = hash
			documents = append(documents, page)
		}
	}
	return documents
}

func (p *Pipeline) skipPage(runID, pageURL, reason string) {
	p.logger.Debug("page skipped", zap.String("url", pageURL), zap.String("reason", reason))
	p.emit(progress.Event{RunID: runID, Stage: progress.StagePageSkipped, URL: pageURL, Note: reason})
}

func (p *Pipeline) chunk(runID string, documents []ingest.Page, summary *ingest.Summary) []ingest.Chunk {
	ids := chunker.NewIDBuilder(p.cfg.IDPrefix, p.cfg.Tenant)
	crawledAt := p.deps.Clock.Now()

	var chunks []ingest.Chunk
	for _, page := range documents {
		pageChunks := p.deps.Chunker.ChunkPage(page, ids, p.deps.Hasher, crawledAt)
		if len(pageChunks) == 0 {
			p.skipPage(runID, page.URL, "no chunks produced")
			summary.PagesEmpty++
			continue
		}
		chunks = append(chunks, pageChunks...)
		p.emit(progress.Event{
			RunID: runID,
			Stage: progress.StagePageChunked,
			URL:   page.URL,
			Count: int64(len(pageChunks)),
		})
	}
	summary.ChunksCreated = len(chunks)
	return chunks
}

func (p *Pipeline) classify(ctx context.Context, runID string, chunks []ingest.Chunk, summary *ingest.Summary) ([]ingest.Chunk, error) {
	if p.deps.Classifier == nil {
		summary.ChunksKept = len(chunks)
		return chunks, nil
	}
	outcome, err := p.deps.Classifier.ClassifyAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	summary.ChunksKept = len(outcome.Kept)
	summary.ChunksDeleted = outcome.Deleted
	summary.ChunksErrored = outcome.Errored
	if len(outcome.Kept) > 0 {
		p.emit(progress.Event{RunID: runID, Stage: progress.StageClassified, Kept: true, Count: int64(len(outcome.Kept))})
	}
	if dropped := outcome.Deleted + outcome.Errored; dropped > 0 {
		p.emit(progress.Event{RunID: runID, Stage: progress.StageClassified, Kept: false, Count: int64(dropped)})
	}
	return outcome.Kept, nil
}

func (p *Pipeline) upsert(ctx context.Context, runID string, chunks []ingest.Chunk, summary *ingest.Summary) error {
	if p.deps.Gate != nil {
		switch p.deps.Gate.Check(len(chunks)) {
		case vectorstore.GateTooFew:
			summary.UploadSkipped = true
			p.logger.Warn("survivor count below tolerance, skipping upload",
				zap.String("run_id", runID), zap.Int("chunks", len(chunks)))
			return nil
		case vectorstore.GateTooMany:
			p.logger.Warn("survivor count above tolerance, uploading anyway",
				zap.String("run_id", runID), zap.Int("chunks", len(chunks)))
		case vectorstore.GatePass:
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := p.deps.Store.Upsert(ctx, chunks); err != nil {
		return err
	}
	summary.ChunksUpserted = len(chunks)
	p.emit(progress.Event{RunID: runID, Stage: progress.StageUpsertDone, Count: int64(len(chunks))})
	return nil
}

func (p *Pipeline) purge(ctx context.Context, runID string, summary *ingest.Summary) error {
	if !p.cfg.DeleteOldRecords || p.cfg.RetentionWindow <= 0 || summary.UploadSkipped {
		return nil
	}
	cutoff := p.deps.Clock.Now().Add(-p.cfg.RetentionWindow)
	purged, err := p.deps.Store.PurgeOlderThan(ctx, p.cfg.Tenant, cutoff)
	if err != nil {
		return err
	}
	summary.RecordsPurged = purged
	p.emit(progress.Event{RunID: runID, Stage: progress.StagePurgeDone, Count: purged})
	return nil
}

func (p *Pipeline) publishSummary(ctx context.Context, summary ingest.Summary) {
	if p.deps.Publisher == nil || p.cfg.NotifyTopic == "" {
		return
	}
	if _, err := p.deps.Publisher.Publish(ctx, p.cfg.NotifyTopic, summary); err != nil {
		p.logger.Warn("summary publish failed", zap.String("run_id", summary.RunID), zap.Error(err))
	}
}

func (p *Pipeline) emit(evt progress.Event) {
	if p.deps.Progress == nil {
		return
	}
	evt.TS = p.deps.Clock.Now().UTC()
	p.deps.Progress.Emit(evt)
}

func batchURLs(urls []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(urls); start += size {
		end := start + size
		if end > len(urls) {
			end = len(urls)
		}
		batches = append(batches, urls[start:end])
	}
	return batches
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
