// Package chunker splits extracted page text into bounded, overlapping
// chunks along sentence boundaries and assigns their deterministic ids.
package chunker

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// Chunker accumulates whole sentences into chunks of at most maxSize units,
// seeding each new chunk with a tail of the previous one for continuity.
type Chunker struct {
	counter      Counter
	maxSize      int
	overlapRatio float64
}

// New validates the sizing parameters and creates a Chunker.
func New(counter Counter, maxSize int, overlapRatio float64) (*Chunker, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter is required")
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive, got %d", maxSize)
	}
	if overlapRatio < 0 || overlapRatio >= 1 {
		return nil, fmt.Errorf("overlap ratio must be in [0, 1), got %v", overlapRatio)
	}
	return &Chunker{counter: counter, maxSize: maxSize, overlapRatio: overlapRatio}, nil
}

// Split breaks text into chunk strings. Sentences are never split: a single
// sentence longer than maxSize still becomes its own chunk. Lengths are the
// sum of per-sentence counts; joining whitespace is not counted.
func (c *Chunker) Split(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	counts := make([]int, len(sentences))
	for i, s := range sentences {
		counts[i] = c.counter.Count(s)
	}
	overlapBudget := int(float64(c.maxSize) * c.overlapRatio)

	var chunks []string
	var current []string
	var currentLen int
	fresh := 0 // sentences in current not carried over from the previous chunk

	emit := func() {
		chunks = append(chunks, joinSentences(current))
		seed, seedLen := overlapTail(current, c.counter, overlapBudget)
		current, currentLen, fresh = seed, seedLen, 0
	}

	for i, sentence := range sentences {
		if len(current) > 0 && currentLen+counts[i] > c.maxSize {
			if fresh == 0 {
				// Only carried-over sentences so far; emitting would
				// duplicate the previous chunk's tail verbatim.
				current, currentLen = nil, 0
			} else {
				emit()
				if currentLen+counts[i] > c.maxSize {
					current, currentLen = nil, 0
				}
			}
		}
		current = append(current, sentence)
		currentLen += counts[i]
		fresh++
	}
	if fresh > 0 {
		chunks = append(chunks, joinSentences(current))
	}
	return chunks
}

func joinSentences(sentences []string) string {
	return strings.Join(sentences, " ")
}

// overlapTail returns the longest suffix of sentences whose cumulative length
// stays within budget, with its length.
func overlapTail(sentences []string, counter Counter, budget int) ([]string, int) {
	total := 0
	start := len(sentences)
	for start > 0 {
		n := counter.Count(sentences[start-1])
		if total+n > budget {
			break
		}
		total += n
		start--
	}
	if start == len(sentences) {
		return nil, 0
	}
	tail := make([]string, len(sentences)-start)
	copy(tail, sentences[start:])
	return tail, total
}

// ChunkPage splits a page and assembles full chunk records: ids, ordinals,
// hashes and source metadata.
func (c *Chunker) ChunkPage(page ingest.Page, ids *IDBuilder, hasher ingest.Hasher, crawledAt time.Time) []ingest.Chunk {
	texts := c.Split(page.Markdown)
	if len(texts) == 0 {
		return nil
	}

	var domain, path string
	if u, err := url.Parse(page.URL); err == nil {
		domain, path = u.Hostname(), u.Path
	}

	chunks := make([]ingest.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = ingest.Chunk{
			ID:           ids.ChunkID(crawledAt, page.URL, i+1),
			Content:      text,
			SourceURL:    page.URL,
			SourceDomain: domain,
			SourcePath:   path,
			Index:        i + 1,
			Total:        len(texts),
			TokenCount:   c.counter.Count(text),
			Hash:         hasher.HashString(text),
			CrawledAt:    crawledAt,
		}
	}
	return chunks
}
