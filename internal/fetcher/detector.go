package fetcher

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// DefaultSPAMarkers are markup fragments that indicate a client-rendered app
// shell rather than server-rendered content.
var DefaultSPAMarkers = []string{
	`id="root"`,
	`id="__next"`,
	`ng-version`,
	"window.__NUXT__",
	"enable javascript",
}

// DefaultMinHTMLBytes is the probe body size below which a page is assumed to
// be an empty app shell.
const DefaultMinHTMLBytes = 2048

// Heuristic decides whether a probe response needs a headless refetch, from
// body size, app-shell markers and required selectors.
type Heuristic struct {
	minHTMLBytes int
	selectors    []string
	markers      [][]byte
}

// NewHeuristic constructs a detector with the given thresholds. Pages are
// promoted when the body is smaller than minBytes, contains one of the
// markers, or lacks any of the required selectors.
func NewHeuristic(minBytes int, selectors, markers []string) *Heuristic {
	lowerMarkers := make([][]byte, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		lowerMarkers = append(lowerMarkers, bytes.ToLower([]byte(m)))
	}
	return &Heuristic{
		minHTMLBytes: minBytes,
		selectors:    selectors,
		markers:      lowerMarkers,
	}
}

// NewDefaultHeuristic builds a detector with the stock thresholds.
func NewDefaultHeuristic() *Heuristic {
	return NewHeuristic(DefaultMinHTMLBytes, nil, DefaultSPAMarkers)
}

// ShouldPromote reports whether the page warrants a headless refetch.
func (d *Heuristic) ShouldPromote(page ingest.Page) bool {
	if d == nil || page.UsedHeadless {
		return false
	}
	switch {
	case d.bodyBelowThreshold(page.Body):
		return true
	case d.containsMarkers(page.Body):
		return true
	default:
		return d.missingSelectors(page.Body)
	}
}

func (d *Heuristic) bodyBelowThreshold(body []byte) bool {
	return d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes
}

func (d *Heuristic) containsMarkers(body []byte) bool {
	if len(body) == 0 || len(d.markers) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, m := range d.markers {
		if bytes.Contains(lowerBody, m) {
			return true
		}
	}
	return false
}

func (d *Heuristic) missingSelectors(body []byte) bool {
	if len(d.selectors) == 0 || len(body) == 0 {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	for _, sel := range d.selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return true
		}
	}
	return false
}
