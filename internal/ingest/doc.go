// Package ingest defines the core types and interfaces shared by the
// ingestion pipeline stages: fetched pages, retrieval chunks, per-item
// results, and the collaborator contracts (fetchers, classifier, vector
// store, blob store, publisher).
package ingest
