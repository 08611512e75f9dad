package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oenoai/ragcrawl/internal/progress"
)

// PrometheusSink exports pipeline progress metrics. It owns the collectors
// for run lifecycle, fetch outcomes, classification verdicts and store writes.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	fetchRequests *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	pagesSkipped  *prometheus.CounterVec

	chunksProduced   prometheus.Counter
	chunksClassified *prometheus.CounterVec
	chunksUpserted   prometheus.Counter
	recordsPurged    prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_runs_started_total",
			Help: "Total pipeline runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_runs_completed_total",
			Help: "Total pipeline runs completed partitioned by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Wall time per completed run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_fetch_requests_total",
			Help: "Fetch completions partitioned by site and status class.",
		}, []string{"site", "status_class"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by site and status class.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"site", "status_class"}),
		pagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_pages_skipped_total",
			Help: "Pages dropped before chunking partitioned by reason.",
		}, []string{"reason"}),
		chunksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_chunks_produced_total",
			Help: "Chunks emitted by the chunker.",
		}),
		chunksClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_chunks_classified_total",
			Help: "Classification outcomes partitioned by verdict.",
		}, []string{"verdict"}),
		chunksUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_chunks_upserted_total",
			Help: "Chunks written to the vector store.",
		}),
		recordsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_records_purged_total",
			Help: "Expired records removed by retention sweeps.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.fetchRequests,
		s.fetchDuration,
		s.pagesSkipped,
		s.chunksProduced,
		s.chunksClassified,
		s.chunksUpserted,
		s.recordsPurged,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Safe for concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.WithLabelValues("success").Inc()
		s.observeRun(evt, "success")
	case progress.StageRunError:
		s.runsCompleted.WithLabelValues("error").Inc()
		s.observeRun(evt, "error")
	case progress.StageFetchDone:
		s.handleFetchEvent(evt)
	case progress.StagePageSkipped:
		reason := evt.Note
		if reason == "" {
			reason = "unknown"
		}
		s.pagesSkipped.WithLabelValues(reason).Inc()
	case progress.StagePageChunked:
		s.chunksProduced.Add(float64(evt.Count))
	case progress.StageClassified:
		verdict := "delete"
		if evt.Kept {
			verdict = "keep"
		}
		n := evt.Count
		if n <= 0 {
			n = 1
		}
		s.chunksClassified.WithLabelValues(verdict).Add(float64(n))
	case progress.StageUpsertDone:
		s.chunksUpserted.Add(float64(evt.Count))
	case progress.StagePurgeDone:
		s.recordsPurged.Add(float64(evt.Count))
	}
}

func (s *PrometheusSink) observeRun(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) handleFetchEvent(evt progress.Event) {
	site := evt.Site
	if site == "" {
		site = "unknown"
	}
	statusClass := string(evt.StatusClass)
	if statusClass == "" {
		statusClass = string(progress.StatusOther)
	}
	s.fetchRequests.WithLabelValues(site, statusClass).Inc()
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(site, statusClass).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
