package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oenoai/ragcrawl/internal/chunker"
	"github.com/oenoai/ragcrawl/internal/ingest"
)

// FileSink writes chunks to a local directory instead of a vector store, for
// dry runs and offline inspection. Each chunk becomes one markdown file;
// index.json records the metadata of everything written.
type FileSink struct {
	mu       sync.Mutex
	dir      string
	idPrefix string
	index    []fileIndexEntry
}

type fileIndexEntry struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	SourceURL  string    `json:"source_url"`
	ChunkIndex int       `json:"chunk_index"`
	Total      int       `json:"total_chunks"`
	TokenCount int       `json:"token_count"`
	Keywords   string    `json:"keywords,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Hash       string    `json:"content_hash"`
	CrawledAt  time.Time `json:"crawled_at"`
}

// NewFileSink clears and recreates the output directory so each run starts
// from an empty tree.
func NewFileSink(dir, idPrefix string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{dir: dir, idPrefix: idPrefix}, nil
}

// OpenFileSink attaches to an existing output directory without clearing it,
// reloading index.json so retention sweeps see records written by earlier
// runs. A missing directory or index is treated as empty.
func OpenFileSink(dir, idPrefix string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	s := &FileSink{dir: dir, idPrefix: idPrefix}
	payload, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if err := json.Unmarshal(payload, &s.index); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return s, nil
}

// Upsert writes one file per chunk and refreshes index.json.
func (s *FileSink) Upsert(_ context.Context, chunks []ingest.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		name := s.fileName(chunk)
		if err := os.WriteFile(filepath.Join(s.dir, name), []byte(chunk.Document()), 0o644); err != nil {
			return fmt.Errorf("write chunk %s: %w", chunk.ID, err)
		}
		s.index = append(s.index, fileIndexEntry{
			ID:         chunk.ID,
			File:       name,
			SourceURL:  chunk.SourceURL,
			ChunkIndex: chunk.Index,
			Total:      chunk.Total,
			TokenCount: chunk.TokenCount,
			Keywords:   chunk.Keywords,
			Summary:    chunk.Summary,
			Hash:       chunk.Hash,
			CrawledAt:  chunk.CrawledAt,
		})
	}
	return s.writeIndex()
}

// PurgeOlderThan removes written files whose id-embedded crawl date precedes
// cutoff, mirroring the real store's retention semantics for dry runs.
func (s *FileSink) PurgeOlderThan(_ context.Context, tenant string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		removed int64
		kept    []fileIndexEntry
	)
	for _, entry := range s.index {
		crawlDate, owner, err := chunker.ParseChunkID(entry.ID, s.idPrefix)
		if err == nil && owner == tenant && crawlDate.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.File)); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("remove %s: %w", entry.File, err)
			}
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.index = kept
	return removed, s.writeIndex()
}

func (s *FileSink) fileName(chunk ingest.Chunk) string {
	stem := "home"
	if u, err := url.Parse(chunk.SourceURL); err == nil {
		stem = chunker.SanitizeFilename(u.Path)
	}
	return fmt.Sprintf("%s_chunk_%d.md", stem, chunk.Index)
}

func (s *FileSink) writeIndex() error {
	payload, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "index.json"), payload, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
