// Package progress provides the event primitives, non-blocking hub, and
// emitter interface the pipeline stages use to report how a run is going.
// Events fan out to pluggable sinks such as structured logs or Prometheus.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageRunDone     Stage = "RUN_DONE"
	StageRunError    Stage = "RUN_ERROR"
	StageFetchDone   Stage = "FETCH_DONE"
	StagePageSkipped Stage = "PAGE_SKIPPED"
	StagePageChunked Stage = "PAGE_CHUNKED"
	StageClassified  Stage = "CHUNK_CLASSIFIED"
	StageUpsertDone  Stage = "UPSERT_DONE"
	StagePurgeDone   Stage = "PURGE_DONE"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for fetch completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of a pipeline run.
type Event struct {
	// RunID identifies the pipeline run.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Site optionally scopes fetch events to a host label.
	Site string
	// URL is the optional page URL.
	URL string
	// Count carries the stage's unit tally: chunks produced, rows
	// upserted, records purged.
	Count int64
	// Kept marks classification outcomes and gate passes.
	Kept bool
	// StatusClass groups HTTP response codes for fetch completions.
	StatusClass StatusClass
	// Dur captures execution latency for fetches and whole runs.
	Dur time.Duration
	// Note lets emitters attach low-volume context (skip reason, error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError,
		StagePageSkipped, StagePageChunked, StageClassified,
		StageUpsertDone, StagePurgeDone:
	case StageFetchDone:
		if e.Site == "" {
			return errors.New("fetch done requires site")
		}
		if e.StatusClass == "" {
			return errors.New("fetch done requires status class")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes for fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
