package ingest

import (
	"context"
	"time"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	UseHeadless bool
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (Page, error)
}

// RenderDetector decides whether a probe response warrants a headless refetch.
type RenderDetector interface {
	ShouldPromote(page Page) bool
}

// Classifier decides keep/delete for a chunk and attaches its annotation.
type Classifier interface {
	Classify(ctx context.Context, chunk Chunk) (Verdict, error)
}

// VectorStore persists classified chunks keyed by chunk id.
type VectorStore interface {
	// Upsert writes one batch of chunks; ids that already exist are overwritten.
	Upsert(ctx context.Context, chunks []Chunk) error
	// PurgeOlderThan deletes the tenant's records whose embedded date is
	// before cutoff and returns the number removed.
	PurgeOlderThan(ctx context.Context, tenant string, cutoff time.Time) (int64, error)
}

// BlobStore writes raw page snapshots and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
	HashString(s string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
