package chunker

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "20060102"
	// maxPathSegment caps the sanitized path inside ids and filenames.
	maxPathSegment = 100
)

// SanitizePath converts a URL path to an identifier-safe segment: lowercase,
// non-alphanumerics collapsed to single underscores, trimmed and capped.
// The root path produces an empty segment.
func SanitizePath(path string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(path) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxPathSegment {
		out = strings.Trim(out[:maxPathSegment], "_")
	}
	return out
}

// SanitizeFilename is SanitizePath with "home" substituted for the root path,
// for use as a file name stem.
func SanitizeFilename(path string) string {
	if out := SanitizePath(path); out != "" {
		return out
	}
	return "home"
}

// IDBuilder produces deterministic, day-scoped chunk ids of the form
// {prefix}_{yyyymmdd}_{tenant}[_{path}]_chunk_{n}. The path segment is
// omitted for a site's root page. Re-ingesting an unchanged page on the same
// day reproduces the same ids, so upserts collide instead of duplicating.
type IDBuilder struct {
	prefix string
	tenant string
}

// NewIDBuilder creates an id builder for one tenant.
func NewIDBuilder(prefix, tenant string) *IDBuilder {
	return &IDBuilder{prefix: prefix, tenant: tenant}
}

// ChunkID builds the id for the index-th chunk (1-based) of the page at
// sourceURL, scoped to the crawl date.
func (b *IDBuilder) ChunkID(crawlDate time.Time, sourceURL string, index int) string {
	parts := []string{b.prefix, crawlDate.Format(dateLayout), b.tenant}
	if u, err := url.Parse(sourceURL); err == nil {
		if segment := SanitizePath(u.Path); segment != "" {
			parts = append(parts, segment)
		}
	}
	parts = append(parts, "chunk", strconv.Itoa(index))
	return strings.Join(parts, "_")
}

// ParseChunkID extracts the crawl date and tenant from a chunk id produced by
// an IDBuilder with the given prefix. Retention sweeps over id-keyed stores
// use this to find a tenant's expired records.
func ParseChunkID(id, prefix string) (crawlDate time.Time, tenant string, err error) {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return time.Time{}, "", fmt.Errorf("chunk id %q does not carry prefix %q", id, prefix)
	}
	if len(rest) < len(dateLayout)+1 || rest[len(dateLayout)] != '_' {
		return time.Time{}, "", fmt.Errorf("chunk id %q has no date segment", id)
	}
	crawlDate, err = time.Parse(dateLayout, rest[:len(dateLayout)])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("chunk id %q has invalid date: %w", id, err)
	}
	rest = rest[len(dateLayout)+1:]
	// Tenant runs to the next underscore; the remainder is path + ordinal.
	tenant, _, ok = strings.Cut(rest, "_")
	if !ok || tenant == "" {
		return time.Time{}, "", fmt.Errorf("chunk id %q has no tenant segment", id)
	}
	return crawlDate.UTC(), tenant, nil
}
