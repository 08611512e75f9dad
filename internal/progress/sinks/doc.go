// Package sinks contains progress.Sink implementations: structured logging
// and Prometheus metrics.
package sinks
