package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

func newProbe(t *testing.T) *Probe {
	t.Helper()
	probe, err := NewProbe(ProbeConfig{
		UserAgent:      "ragcrawl-test",
		RequestTimeout: 5 * time.Second,
		Concurrency:    2,
		DomainRPS:      100,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProbe: %v", err)
	}
	return probe
}

func TestProbeFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><h1>Wines</h1><a href="/tours">Tours</a></body></html>`))
	}))
	defer server.Close()

	page, err := newProbe(t).Fetch(context.Background(), ingest.FetchRequest{URL: server.URL + "/wines"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !page.OK() {
		t.Fatalf("status = %d", page.StatusCode)
	}
	if len(page.Body) == 0 {
		t.Fatalf("empty body")
	}
	if len(page.Links) != 1 || page.Links[0] != server.URL+"/tours" {
		t.Fatalf("links = %v", page.Links)
	}
	if page.Headers.Get("Content-Type") != "text/html" {
		t.Fatalf("headers not captured: %v", page.Headers)
	}
	if page.FetchedAt.IsZero() {
		t.Fatalf("fetch time not recorded")
	}
}

func TestProbeFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newProbe(t).Fetch(context.Background(), ingest.FetchRequest{URL: server.URL})
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestProbeFetchUnreachable(t *testing.T) {
	if _, err := newProbe(t).Fetch(context.Background(), ingest.FetchRequest{URL: "http://127.0.0.1:1/x"}); err == nil {
		t.Fatalf("expected connection error")
	}
}
