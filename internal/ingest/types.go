package ingest

import (
	"net/http"
	"time"
)

// Page is one fetched unit of content. Pages live only between fetch and
// chunking; they are never persisted.
type Page struct {
	// URL is the canonical URL the page was fetched under.
	URL string
	// FinalURL is the URL after redirects, if any.
	FinalURL string
	// StatusCode is the HTTP status of the fetch.
	StatusCode int
	// Body is the raw markup (HTML, or pre-rendered markdown).
	Body []byte
	// Markdown is the extracted text; empty until extraction runs.
	Markdown string
	// Links holds internal hrefs discovered on the page.
	Links []string
	// ContentHash is the hex digest of the normalized extracted text.
	ContentHash string
	// Headers are the response headers from the fetch.
	Headers http.Header
	// FetchedAt records when the fetch completed.
	FetchedAt time.Time
	// UsedHeadless marks pages rendered by the headless browser.
	UsedHeadless bool
	// Duration is the wall time of the fetch.
	Duration time.Duration
}

// OK reports whether the page carries a 2xx status.
func (p Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// Chunk is a bounded-size fragment of extracted page text prepared for
// embedding and retrieval.
type Chunk struct {
	// ID is the deterministic day-scoped identifier used as the vector key.
	ID string
	// Content is the exact chunk text.
	Content string
	// SourceURL, SourceDomain and SourcePath locate the originating page.
	SourceURL    string
	SourceDomain string
	SourcePath   string
	// Index is the 1-based position within the page's chunk list.
	Index int
	// Total is the number of chunks produced for the page.
	Total int
	// TokenCount is the length of Content under the configured counting unit.
	TokenCount int
	// Keywords is the comma-separated annotation attached by the classifier.
	Keywords string
	// Summary is the one-sentence annotation attached by the classifier.
	Summary string
	// Hash is the hex digest of Content, used for change detection.
	Hash string
	// CrawledAt records when the source page was fetched.
	CrawledAt time.Time
	// Extra carries provider-specific metadata not covered by fixed fields.
	Extra map[string]string
}

// Document renders the text that gets embedded and stored: the classifier's
// annotation (summary sentence or source link plus keywords) ahead of the
// chunk content. Unannotated chunks embed their content as-is.
func (c Chunk) Document() string {
	switch {
	case c.Summary != "":
		return c.Summary + "\n\n" + c.Content
	case c.Keywords != "":
		return "[View Source](" + c.SourceURL + ")\n\nKeywords: " + c.Keywords + "\n\n" + c.Content
	default:
		return c.Content
	}
}

// Tenant identifies whose corpus a chunk belongs to. It is resolved once per
// run from configuration or the source domain and read-only afterwards.
type Tenant struct {
	// ID is the customer identifier embedded in chunk ids.
	ID string
	// Domain is the source domain the tenant was derived from, if any.
	Domain string
}

// Verdict is the classifier's decision for a single chunk.
type Verdict struct {
	// Keep is false when the chunk should be dropped.
	Keep bool
	// Keywords carries the comma-separated keyword annotation (keyword policy).
	Keywords string
	// Summary carries the one-sentence annotation (summary policy).
	Summary string
	// Content is the model-returned chunk text; empty means unchanged.
	Content string
}

// Summary aggregates per-stage outcomes for one pipeline run.
type Summary struct {
	RunID          string                   `json:"run_id"`
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     time.Time                `json:"finished_at"`
	URLsDiscovered int                      `json:"urls_discovered"`
	PagesFetched   int                      `json:"pages_fetched"`
	PagesFailed    int                      `json:"pages_failed"`
	PagesDeduped   int                      `json:"pages_deduped"`
	PagesEmpty     int                      `json:"pages_empty"`
	ChunksCreated  int                      `json:"chunks_created"`
	ChunksKept     int                      `json:"chunks_kept"`
	ChunksDeleted  int                      `json:"chunks_deleted"`
	ChunksErrored  int                      `json:"chunks_errored"`
	ChunksUpserted int                      `json:"chunks_upserted"`
	RecordsPurged  int64                    `json:"records_purged"`
	UploadSkipped  bool                     `json:"upload_skipped"`
	DryRun         bool                     `json:"dry_run"`
	Elapsed        time.Duration            `json:"elapsed"`
	StageElapsed   map[string]time.Duration `json:"stage_elapsed"`
}
