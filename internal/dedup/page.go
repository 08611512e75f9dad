package dedup

import (
	"strings"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// PageDeduper drops whole pages whose extracted content has already been seen
// during the current run. It hashes the link-stripped, whitespace-normalized
// text, so pages differing only in link targets or formatting collapse to the
// same key. It is not safe for concurrent use; the pipeline calls it from the
// single goroutine that gathers fetch results.
type PageDeduper struct {
	hasher            ingest.Hasher
	preserveFileLinks bool
	seen              map[string]struct{}
}

// NewPageDeduper creates a run-scoped page deduplicator.
func NewPageDeduper(hasher ingest.Hasher, preserveFileLinks bool) *PageDeduper {
	return &PageDeduper{
		hasher:            hasher,
		preserveFileLinks: preserveFileLinks,
		seen:              make(map[string]struct{}),
	}
}

// Fingerprint returns the content hash used for page-level deduplication.
func (d *PageDeduper) Fingerprint(markdown string) string {
	stripped := StripLinks(markdown, d.preserveFileLinks)
	normalized := strings.Join(strings.Fields(stripped), " ")
	return d.hasher.HashString(normalized)
}

// Admit returns the content hash and whether this page's content is new in
// the current run. Empty or whitespace-only content is never admitted.
func (d *PageDeduper) Admit(markdown string) (string, bool) {
	if strings.TrimSpace(markdown) == "" {
		return "", false
	}
	hash := d.Fingerprint(markdown)
	if _, dup := d.seen[hash]; dup {
		return hash, false
	}
	d.seen[hash] = struct{}{}
	return hash, true
}
