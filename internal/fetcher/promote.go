package fetcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// Promoting probes pages over plain HTTP and refetches through the headless
// browser when the detector flags a client-rendered shell. When the headless
// refetch fails the probe page is returned so the run degrades instead of
// losing the URL.
type Promoting struct {
	probe    ingest.Fetcher
	headless ingest.Fetcher
	detector ingest.RenderDetector
	logger   *zap.Logger
}

// NewPromoting wires the probe, detector and headless fetcher. headless may
// be nil to disable promotion entirely.
func NewPromoting(probe, headless ingest.Fetcher, detector ingest.RenderDetector, logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{probe: probe, headless: headless, detector: detector, logger: logger}
}

// Fetch implements ingest.Fetcher. A request with UseHeadless set skips the
// probe and goes straight to the browser.
func (f *Promoting) Fetch(ctx context.Context, request ingest.FetchRequest) (ingest.Page, error) {
	if request.UseHeadless && f.headless != nil {
		return f.headless.Fetch(ctx, request)
	}

	page, err := f.probe.Fetch(ctx, request)
	if err != nil {
		return ingest.Page{}, err
	}
	if f.headless == nil || f.detector == nil || !f.detector.ShouldPromote(page) {
		return page, nil
	}

	f.logger.Debug("promoting to headless fetch", zap.String("url", request.URL))
	rendered, renderErr := f.headless.Fetch(ctx, request)
	if renderErr != nil {
		f.logger.Warn("headless refetch failed, keeping probe result",
			zap.String("url", request.URL), zap.Error(renderErr))
		return page, nil
	}
	return rendered, nil
}
