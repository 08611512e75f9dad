package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// ErrHeadlessDisabled indicates headless fetching is off in configuration.
var ErrHeadlessDisabled = errors.New("headless fetcher disabled")

// hiddenElementRemovalJS strips elements hidden via CSS or HTML attributes
// before the DOM snapshot, so invisible boilerplate never reaches extraction.
const hiddenElementRemovalJS = `
(async () => {
    function isElementHidden(el) {
        const style = window.getComputedStyle(el);
        if (style.display === 'none' || style.visibility === 'hidden') {
            return true;
        }
        if (el.getAttribute('hidden') !== null || el.getAttribute('aria-hidden') === 'true') {
            return true;
        }
        return false;
    }

    if (document.body) {
        const elements = document.body.querySelectorAll('*');
        for (let el of elements) {
            if (isElementHidden(el)) {
                el.remove();
            }
        }
    }
})();
`

// HeadlessConfig tunes the chromedp-backed fetcher.
type HeadlessConfig struct {
	UserAgent      string
	MaxConcurrency int
	NavTimeout     time.Duration
	DomainRPS      float64
}

// Headless fetches pages with headless Chrome so client-rendered content is
// present in the snapshot.
type Headless struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	timeout         time.Duration
	domainRPS       float64
	domainLimiters  sync.Map
	userAgent       string
}

// NewHeadless starts the shared browser process.
func NewHeadless(cfg HeadlessConfig, logger *zap.Logger) (*Headless, error) {
	if cfg.MaxConcurrency <= 0 {
		return nil, ErrHeadlessDisabled
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Headless{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, cfg.MaxConcurrency),
		timeout:         cfg.NavTimeout,
		domainRPS:       cfg.DomainRPS,
		userAgent:       cfg.UserAgent,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (f *Headless) Close() {
	if f == nil {
		return
	}
	f.browserCancel()
	f.allocatorCancel()
}

// Fetch renders the page with JavaScript enabled and returns the cleaned DOM
// snapshot.
func (f *Headless) Fetch(ctx context.Context, request ingest.FetchRequest) (ingest.Page, error) {
	if f == nil {
		return ingest.Page{}, ErrHeadlessDisabled
	}

	release, err := f.acquireSlot(ctx)
	if err != nil {
		return ingest.Page{}, err
	}
	defer release()

	if waitErr := f.waitDomainBudget(ctx, request.URL); waitErr != nil {
		return ingest.Page{}, fmt.Errorf("headless rate limit: %w", waitErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	f.recordResponse(tabCtx, meta)

	start := time.Now()
	html, err := f.runChromedp(taskCtx, request.URL)
	if err != nil {
		return ingest.Page{}, fmt.Errorf("chromedp run: %w", err)
	}

	page := ingest.Page{
		URL:          request.URL,
		FinalURL:     meta.finalURL(request.URL),
		StatusCode:   meta.statusCode,
		Headers:      meta.headers,
		Body:         []byte(html),
		FetchedAt:    time.Now().UTC(),
		UsedHeadless: true,
		Duration:     time.Since(start),
	}
	page.Links = ExtractLinks(page.Body, page.FinalURL)
	return page, nil
}

func (f *Headless) acquireSlot(ctx context.Context) (func(), error) {
	if f.sem == nil {
		return func() {}, nil
	}
	select {
	case f.sem <- struct{}{}:
		return func() { <-f.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	headers    http.Header
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{
		headers: make(http.Header),
	}
}

func (m *responseMeta) finalURL(raw string) string {
	if m.url == "" {
		return raw
	}
	return m.url
}

func (f *Headless) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			meta.url = resp.Response.URL
			for k, v := range resp.Response.Headers {
				meta.headers.Add(k, fmt.Sprint(v))
			}
		})
	})
}

func (f *Headless) runChromedp(ctx context.Context, rawURL string) (string, error) {
	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(f.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(hiddenElementRemovalJS, nil),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", err
	}
	return html, nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (f *Headless) waitDomainBudget(ctx context.Context, rawURL string) error {
	if f.domainRPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := f.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.domainRPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
