package vectorstore

import (
	"context"
	"sync"
	"time"

	"github.com/oenoai/ragcrawl/internal/chunker"
	"github.com/oenoai/ragcrawl/internal/ingest"
)

// Memory is an in-memory chunk store keyed by chunk id. Retention parses the
// tenant and crawl date back out of each id.
type Memory struct {
	mu       sync.Mutex
	idPrefix string
	chunks   map[string]ingest.Chunk
}

// NewMemory creates an empty in-memory store for ids with the given prefix.
func NewMemory(idPrefix string) *Memory {
	return &Memory{
		idPrefix: idPrefix,
		chunks:   make(map[string]ingest.Chunk),
	}
}

// Upsert stores chunks, overwriting existing ids.
func (m *Memory) Upsert(_ context.Context, chunks []ingest.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

// PurgeOlderThan removes the tenant's chunks whose id-embedded crawl date is
// before cutoff. Ids that do not parse are left untouched.
func (m *Memory) PurgeOlderThan(_ context.Context, tenant string, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id := range m.chunks {
		crawlDate, owner, err := chunker.ParseChunkID(id, m.idPrefix)
		if err != nil || owner != tenant {
			continue
		}
		if crawlDate.Before(cutoff) {
			delete(m.chunks, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored chunks.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// Get returns the chunk stored under id.
func (m *Memory) Get(id string) (ingest.Chunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunk, ok := m.chunks[id]
	return chunk, ok
}
