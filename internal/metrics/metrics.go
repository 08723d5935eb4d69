// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus counters for harvest runs. Counters
// work without a listener; commands that expect to run for hours can pass
// --metrics-addr to serve /metrics while the run is in flight.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchAttempts counts HTTP attempts by source, including retries.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_fetch_attempts_total",
		Help: "Total HTTP fetch attempts by source, including retries",
	}, []string{"source"})

	// Retries counts retry waits by source and failure kind.
	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_retries_total",
		Help: "Total retry waits by source and failure kind",
	}, []string{"source", "kind"})

	// RecordsSaved counts records persisted to the output tree.
	RecordsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_records_saved_total",
		Help: "Total records written to the output store",
	}, []string{"source"})

	// Failures counts per-record failures by source and failure kind.
	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_failures_total",
		Help: "Total per-record failures by source and failure kind",
	}, []string{"source", "kind"})
)

// Serve starts an HTTP listener exposing /metrics on addr. It returns the
// server so the caller can shut it down; errors after startup are ignored
// because metrics are best-effort.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
