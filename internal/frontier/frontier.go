// Package frontier canonicalizes discovered URLs and maintains the evolving
// set of pages to fetch, partitioned into bounded batches.
package frontier

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Normalize standardizes a URL to the canonical form used as the frontier
// membership key. It lowercases the scheme, host, and path, removes default
// ports, strips the query string and fragment, and trims the trailing slash
// (the root path is retained as "/"). Case-folding the path means variants
// like /Wines and /wines collapse to one fetch; sites serving distinct pages
// under case-differing paths are out of scope.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.ToLower(u.Path)
	u.RawPath = ""

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""

	trimmed := strings.TrimRight(u.Path, "/")
	if trimmed == "" {
		trimmed = "/"
	}
	u.Path = trimmed

	return u.String(), nil
}

// imageExtensions lists path suffixes that identify image resources.
var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".bmp": {}, ".tiff": {}, ".ico": {},
}

// IsImageURL reports whether the URL's path ends in a known image extension.
func IsImageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := imageExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

// ScopeConfig controls which discovered links are admitted.
type ScopeConfig struct {
	// AllowedHosts limits admission to these hosts (plus subdomains) when
	// FollowExternal is false. Populated from the start URLs.
	AllowedHosts []string
	// FollowExternal admits off-domain links when true.
	FollowExternal bool
	// AllowedExtensions lists non-HTML file extensions (without dot) that
	// remain in scope, e.g. "pdf".
	AllowedExtensions []string
	// BlockedDomains holds exact hosts or "*.suffix" wildcards to reject.
	BlockedDomains []string
}

// Scope decides frontier admission for canonical URLs.
type Scope struct {
	cfg       ScopeConfig
	allowed   map[string]struct{}
	allowExt  map[string]struct{}
	blocklist *domainBlocklist
}

// NewScope builds a Scope from configuration.
func NewScope(cfg ScopeConfig) *Scope {
	allowed := make(map[string]struct{}, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed[h] = struct{}{}
		}
	}
	allowExt := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowExt["."+ext] = struct{}{}
		}
	}
	return &Scope{
		cfg:       cfg,
		allowed:   allowed,
		allowExt:  allowExt,
		blocklist: newDomainBlocklist(cfg.BlockedDomains),
	}
}

// InScope reports whether a canonical URL should be admitted to the frontier.
func (s *Scope) InScope(canonicalURL string) bool {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if s.blocklist.IsBlocked(host) {
		return false
	}
	if !s.cfg.FollowExternal && !s.hostAllowed(host) {
		return false
	}
	if IsImageURL(canonicalURL) {
		return false
	}
	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && isFileExtension(ext) {
		if _, ok := s.allowExt[ext]; !ok {
			return false
		}
	}
	return true
}

func (s *Scope) hostAllowed(host string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	if _, ok := s.allowed[host]; ok {
		return true
	}
	for allowed := range s.allowed {
		if strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// isFileExtension reports whether ext looks like a real file extension: a dot
// followed by 1-5 alphanumerics. Path segments like "/v1.2" do not count.
func isFileExtension(ext string) bool {
	body := strings.TrimPrefix(ext, ".")
	if len(body) == 0 || len(body) > 5 {
		return false
	}
	hasAlpha := false
	for _, r := range body {
		switch {
		case r >= 'a' && r <= 'z':
			hasAlpha = true
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return hasAlpha
}

// Frontier is the evolving set of discovered-but-not-yet-fetched URLs. It is
// mutated only by the single goroutine driving discovery; fetch workers never
// write back into it.
type Frontier struct {
	scope  *Scope
	seen   map[string]struct{}
	order  []string
	logger *zap.Logger
}

// New creates an empty Frontier.
func New(scope *Scope, logger *zap.Logger) *Frontier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		scope:  scope,
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// Add normalizes a discovered link and admits it if new and in scope.
// It returns the canonical URL and whether the URL was newly admitted.
// Malformed URLs are dropped with a warning; this is non-fatal.
func (f *Frontier) Add(rawURL string) (string, bool) {
	canonical, err := Normalize(rawURL)
	if err != nil {
		f.logger.Warn("dropping malformed url", zap.String("url", rawURL), zap.Error(err))
		return "", false
	}
	if !f.scope.InScope(canonical) {
		return canonical, false
	}
	if _, dup := f.seen[canonical]; dup {
		return canonical, false
	}
	f.seen[canonical] = struct{}{}
	f.order = append(f.order, canonical)
	return canonical, true
}

// Len returns the number of admitted URLs.
func (f *Frontier) Len() int {
	return len(f.seen)
}

// URLs returns the admitted URLs in admission order.
func (f *Frontier) URLs() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Batches partitions the admitted URLs into fixed-size batches to bound
// fetch concurrency. The final batch may be short.
func (f *Frontier) Batches(size int) [][]string {
	if size <= 0 {
		size = 1
	}
	urls := f.URLs()
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
