// Package fetcher retrieves pages over plain HTTP first and escalates to a
// headless browser only when a page shows signs of client-side rendering.
package fetcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// ProbeConfig tunes the plain-HTTP fetcher.
type ProbeConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	Concurrency    int
	DomainRPS      int
}

// Probe fetches pages with a Colly collector, without JavaScript execution.
type Probe struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewProbe constructs a configured Colly-based fetcher.
func NewProbe(cfg ProbeConfig, logger *zap.Logger) (*Probe, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = false
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	rps := cfg.DomainRPS
	if rps < 1 {
		rps = 1
	}
	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		Delay:       time.Second / time.Duration(rps),
	}); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{baseCollector: base, logger: logger}, nil
}

// Fetch retrieves one page and collects its outgoing links.
func (f *Probe) Fetch(ctx context.Context, request ingest.FetchRequest) (ingest.Page, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan probeResult, 1)
	var once sync.Once
	send := func(res probeResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			for k, v := range *r.Headers {
				cp := make([]string, len(v))
				copy(cp, v)
				headers[k] = cp
			}
		}
		page := ingest.Page{
			URL:        request.URL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte{}, r.Body...),
			FetchedAt:  time.Now().UTC(),
		}
		page.Links = ExtractLinks(page.Body, page.FinalURL)
		send(probeResult{page: page})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(probeResult{err: err})
	})

	start := time.Now()
	if err := collector.Visit(request.URL); err != nil {
		return ingest.Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return ingest.Page{}, err
		}
		res.page.Duration = time.Since(start)
		return res.page, res.err
	default:
		return ingest.Page{}, errors.New("fetch produced no result")
	}
}

type probeResult struct {
	page ingest.Page
	err  error
}
