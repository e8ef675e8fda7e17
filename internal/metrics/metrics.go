// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package metrics exposes a small, purely additive Prometheus surface:
// published-line counts, rotation counts, checkpoint save outcomes, and the
// current acknowledged offset. Nothing in the tail/rotate/checkpoint control
// flow reads these back; they exist for operators, not for correctness.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LinesPublished counts lines successfully forwarded to the sink.
	LinesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "log_bouncer_lines_published_total",
		Help: "Total number of lines successfully forwarded to the sink.",
	})

	// Rotations counts completed file rotations.
	Rotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "log_bouncer_rotations_total",
		Help: "Total number of times the target file was rotated.",
	})

	// CheckpointSaves counts successful checkpoint sidecar writes.
	CheckpointSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "log_bouncer_checkpoint_saves_total",
		Help: "Total number of successful checkpoint sidecar writes.",
	})

	// CheckpointSaveErrors counts failed checkpoint sidecar writes.
	CheckpointSaveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "log_bouncer_checkpoint_save_errors_total",
		Help: "Total number of failed checkpoint sidecar writes.",
	})

	// CurrentOffset is the most recently acknowledged byte offset in the
	// current target file.
	CurrentOffset = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "log_bouncer_current_offset",
		Help: "Most recently acknowledged byte offset in the current target file.",
	})
)

// Serve starts a /metrics HTTP listener on addr and blocks until ctx is
// cancelled or the server fails. A nil/empty addr disables metrics entirely;
// callers should not invoke Serve in that case.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
