// Package vectorstore holds the upload validation gate and the in-memory and
// file-backed chunk store implementations; the Postgres store lives in the
// postgres subpackage.
package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// GateDecision is the outcome of the pre-upload count check.
type GateDecision int

const (
	// GatePass admits the upload.
	GatePass GateDecision = iota
	// GateTooFew blocks the upload: a degraded crawl must not overwrite a
	// good index.
	GateTooFew
	// GateTooMany admits the upload but flags likely scope creep.
	GateTooMany
)

func (d GateDecision) String() string {
	switch d {
	case GateTooFew:
		return "too_few"
	case GateTooMany:
		return "too_many"
	default:
		return "pass"
	}
}

// Gate compares a run's surviving chunk count against the expected count
// within a percentage tolerance. A zero expected count disables the check.
type Gate struct {
	expected     int
	tolerancePct int
	logger       *zap.Logger
}

// NewGate creates a validation gate. tolerancePct is a whole percentage,
// e.g. 20 admits counts within ±20% of expected.
func NewGate(expected, tolerancePct int, logger *zap.Logger) (*Gate, error) {
	if expected < 0 {
		return nil, fmt.Errorf("expected chunk count must not be negative, got %d", expected)
	}
	if tolerancePct < 0 || tolerancePct > 100 {
		return nil, fmt.Errorf("tolerance must be a percentage in [0, 100], got %d", tolerancePct)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{expected: expected, tolerancePct: tolerancePct, logger: logger}, nil
}

// Check evaluates the chunk count. Out-of-tolerance counts raise an
// operational warning; only the too-few case blocks the upload.
func (g *Gate) Check(count int) GateDecision {
	if g == nil || g.expected == 0 {
		return GatePass
	}
	slack := g.expected * g.tolerancePct / 100
	switch {
	case count < g.expected-slack:
		g.logger.Warn("chunk count below expectation, skipping upload",
			zap.Int("count", count),
			zap.Int("expected", g.expected),
			zap.Int("tolerance_pct", g.tolerancePct))
		return GateTooFew
	case count > g.expected+slack:
		g.logger.Warn("chunk count above expectation, possible scope creep",
			zap.Int("count", count),
			zap.Int("expected", g.expected),
			zap.Int("tolerance_pct", g.tolerancePct))
		return GateTooMany
	default:
		return GatePass
	}
}
