package classifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// Outcome is the per-chunk tally of a pool run.
type Outcome struct {
	Kept    []ingest.Chunk
	Deleted int
	Errored int
}

// Pool fans chunk classifications out over a bounded worker pool. Each chunk
// is independent: one failing call is logged and dropped without touching
// other in-flight chunks.
type Pool struct {
	classifier ingest.Classifier
	workers    *ants.Pool
	logger     *zap.Logger
}

// NewPool creates a classification pool of the given size.
func NewPool(classifier ingest.Classifier, size int, logger *zap.Logger) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	workers, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{classifier: classifier, workers: workers, logger: logger}, nil
}

// ClassifyAll runs every chunk through the classifier and collects the kept,
// annotated chunks. Output order follows call completion, not input order.
func (p *Pool) ClassifyAll(ctx context.Context, chunks []ingest.Chunk) (Outcome, error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		outcome Outcome
	)

	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		err := p.workers.Submit(func() {
			defer wg.Done()
			verdict, err := p.classifier.Classify(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				outcome.Errored++
				p.logger.Warn("classification failed, dropping chunk",
					zap.String("chunk_id", chunk.ID), zap.Error(err))
			case !verdict.Keep:
				outcome.Deleted++
			default:
				outcome.Kept = append(outcome.Kept, applyVerdict(chunk, verdict))
			}
		})
		if err != nil {
			// Wait out the chunks already submitted before reading the
			// tally they are still writing.
			wg.Done()
			wg.Wait()
			mu.Lock()
			defer mu.Unlock()
			return outcome, fmt.Errorf("submit chunk %s: %w", chunk.ID, err)
		}
	}

	wg.Wait()
	return outcome, nil
}

// Release tears the worker pool down.
func (p *Pool) Release() {
	p.workers.Release()
}

// applyVerdict writes the classifier's annotation onto the chunk. Content is
// replaced only when the verdict carries a guarded, non-empty rewrite.
func applyVerdict(chunk ingest.Chunk, verdict ingest.Verdict) ingest.Chunk {
	if verdict.Content != "" {
		chunk.Content = verdict.Content
	}
	chunk.Keywords = verdict.Keywords
	chunk.Summary = verdict.Summary
	return chunk
}
