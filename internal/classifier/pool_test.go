package classifier

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// stubClassifier returns canned verdicts keyed by chunk id.
type stubClassifier struct {
	mu       sync.Mutex
	verdicts map[string]ingest.Verdict
	errs     map[string]error
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	block    chan struct{}
}

func (s *stubClassifier) Classify(_ context.Context, chunk ingest.Chunk) (ingest.Verdict, error) {
	cur := s.inFlight.Add(1)
	for {
		max := s.maxSeen.Load()
		if cur <= max || s.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if s.block != nil {
		<-s.block
	}
	s.inFlight.Add(-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[chunk.ID]; ok {
		return ingest.Verdict{}, err
	}
	return s.verdicts[chunk.ID], nil
}

func chunkFixture(id string) ingest.Chunk {
	return ingest.Chunk{ID: id, Content: "content of " + id}
}

func TestPoolClassifyAll(t *testing.T) {
	stub := &stubClassifier{
		verdicts: map[string]ingest.Verdict{
			"a": {Keep: true, Keywords: "vineyard, estate"},
			"b": {},
			"d": {Keep: true, Summary: "This chunk covers shipping."},
		},
		errs: map[string]error{"c": errors.New("rate limited")},
	}
	pool, err := NewPool(stub, 4, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	outcome, err := pool.ClassifyAll(context.Background(), []ingest.Chunk{
		chunkFixture("a"), chunkFixture("b"), chunkFixture("c"), chunkFixture("d"),
	})
	if err != nil {
		t.Fatalf("ClassifyAll: %v", err)
	}
	if len(outcome.Kept) != 2 {
		t.Fatalf("kept %d chunks, want 2", len(outcome.Kept))
	}
	if outcome.Deleted != 1 || outcome.Errored != 1 {
		t.Fatalf("deleted=%d errored=%d, want 1 and 1", outcome.Deleted, outcome.Errored)
	}
	for _, chunk := range outcome.Kept {
		switch chunk.ID {
		case "a":
			if chunk.Keywords != "vineyard, estate" {
				t.Fatalf("chunk a keywords = %q", chunk.Keywords)
			}
		case "d":
			if chunk.Summary != "This chunk covers shipping." {
				t.Fatalf("chunk d summary = %q", chunk.Summary)
			}
		default:
			t.Fatalf("unexpected kept chunk %q", chunk.ID)
		}
	}
}

func TestPoolOneFailureDoesNotAbortOthers(t *testing.T) {
	verdicts := make(map[string]ingest.Verdict)
	errs := map[string]error{"x5": errors.New("boom")}
	var chunks []ingest.Chunk
	for _, id := range []string{"x1", "x2", "x3", "x4", "x5", "x6", "x7"} {
		if id != "x5" {
			verdicts[id] = ingest.Verdict{Keep: true}
		}
		chunks = append(chunks, chunkFixture(id))
	}
	pool, err := NewPool(&stubClassifier{verdicts: verdicts, errs: errs}, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	outcome, err := pool.ClassifyAll(context.Background(), chunks)
	if err != nil {
		t.Fatalf("ClassifyAll: %v", err)
	}
	if len(outcome.Kept) != 6 || outcome.Errored != 1 {
		t.Fatalf("kept=%d errored=%d, want 6 and 1", len(outcome.Kept), outcome.Errored)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	block := make(chan struct{})
	stub := &stubClassifier{verdicts: map[string]ingest.Verdict{}, block: block}
	pool, err := NewPool(stub, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var chunks []ingest.Chunk
		for _, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
			chunks = append(chunks, chunkFixture(id))
		}
		pool.ClassifyAll(context.Background(), chunks)
	}()

	close(block)
	<-done
	if max := stub.maxSeen.Load(); max > 2 {
		t.Fatalf("observed %d concurrent classifications, want <= 2", max)
	}
}

func TestPoolSubmitErrorDrainsInFlight(t *testing.T) {
	block := make(chan struct{})
	stub := &stubClassifier{
		verdicts: map[string]ingest.Verdict{"a": {Keep: true}},
		block:    block,
	}
	pool, err := NewPool(stub, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := pool.ClassifyAll(context.Background(),
			[]ingest.Chunk{chunkFixture("a"), chunkFixture("b")})
		done <- result{outcome, err}
	}()

	// Once "a" occupies the only worker, releasing the pool makes the next
	// submission fail while "a" is still running.
	for stub.inFlight.Load() == 0 {
		runtime.Gosched()
	}
	pool.Release()
	close(block)

	got := <-done
	if got.err == nil {
		t.Fatalf("expected submit error from released pool")
	}
	if len(got.outcome.Kept) != 1 || got.outcome.Kept[0].ID != "a" {
		t.Fatalf("in-flight chunk not tallied before return: %+v", got.outcome)
	}
}

func TestPoolRejectsBadSize(t *testing.T) {
	if _, err := NewPool(&stubClassifier{}, 0, zap.NewNop()); err == nil {
		t.Fatalf("zero pool size should be rejected")
	}
}

func TestApplyVerdict(t *testing.T) {
	chunk := ingest.Chunk{ID: "a", Content: "original"}

	t.Run("annotation only", func(t *testing.T) {
		got := applyVerdict(chunk, ingest.Verdict{Keep: true, Keywords: "kw"})
		if got.Content != "original" || got.Keywords != "kw" {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("rewritten content applied", func(t *testing.T) {
		got := applyVerdict(chunk, ingest.Verdict{Keep: true, Content: "trimmed"})
		if got.Content != "trimmed" {
			t.Fatalf("content = %q", got.Content)
		}
	})
}

func TestGuardContent(t *testing.T) {
	logger := zap.NewNop()
	chunk := ingest.Chunk{ID: "g", Content: strings.Repeat("x", 100)}

	t.Run("modest rewrite accepted", func(t *testing.T) {
		echoed := strings.Repeat("y", 110)
		if got := guardContent(logger, chunk, echoed); got != echoed {
			t.Fatalf("rewrite within margin was rejected")
		}
	})

	t.Run("inflated rewrite rejected", func(t *testing.T) {
		if got := guardContent(logger, chunk, strings.Repeat("y", 121)); got != chunk.Content {
			t.Fatalf("inflated rewrite was kept")
		}
	})

	t.Run("empty echo keeps original", func(t *testing.T) {
		if got := guardContent(logger, chunk, "  "); got != chunk.Content {
			t.Fatalf("empty echo did not fall back to original")
		}
	})
}
