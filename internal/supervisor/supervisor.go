// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package supervisor wires the tailedfile/follower/publisher/rotator/sink
// components together and owns the fail-fast multiway wait: any one of them
// exiting, with or without an error, tears the whole process down, because
// each owns state (the read cursor, the checkpoint sidecar, the sink
// connection) that no other component can safely take over.
package supervisor

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dizda/log-bouncer/internal/config"
	"github.com/dizda/log-bouncer/internal/follower"
	"github.com/dizda/log-bouncer/internal/metrics"
	"github.com/dizda/log-bouncer/internal/publisher"
	"github.com/dizda/log-bouncer/internal/rotator"
	"github.com/dizda/log-bouncer/internal/sink"
	"github.com/dizda/log-bouncer/internal/tailedfile"
	"github.com/dizda/log-bouncer/internal/watch"
)

// Run builds every component from cfg and blocks until one of them exits or
// ctx is cancelled (by the caller wiring signal.NotifyContext, typically).
func Run(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) error {
	// Canonicalise the target path: absolute, with symlinks resolved when the
	// file already exists.
	file, err := filepath.Abs(cfg.File)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(file); err == nil {
		file = resolved
	}
	cfg.File = file

	watermark := watch.NewValue[uint64](0)
	rot, err := rotator.New(rotator.Config{
		Path:             cfg.File,
		MaxBytes:         cfg.MaxFilesize,
		RotationPeriod:   cfg.RotateFileInterval,
		CheckpointPeriod: cfg.SaveStateInterval,
		DateFormat:       cfg.DateFormat,
	}, watermark, log.Named("rotator"))
	if err != nil {
		return err
	}

	startingOffset, err := rot.StartingOffset()
	if err != nil {
		return err
	}
	watermark.Set(startingOffset)

	tail, err := tailedfile.Open(cfg.File)
	if err != nil {
		return err
	}
	tail.SetOffset(startingOffset)

	adapter, err := buildSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer adapter.Close()

	queue := make(chan follower.LineRecord, cfg.BufferPublish)

	fw := follower.New(tail, queue, log.Named("follower"))
	pub := publisher.New(adapter, queue, watermark, log.Named("publisher"))

	g, gctx := errgroup.WithContext(ctx)

	stop := make(chan struct{})
	g.Go(func() error {
		err := fw.Run(stop)
		close(queue)
		return err
	})
	g.Go(func() error {
		return pub.Run(gctx)
	})
	g.Go(func() error {
		return rot.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		close(stop)
		return nil
	})

	return g.Wait()
}

func buildSink(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (sink.OutputAdapter, error) {
	switch cfg.Sink {
	case config.SinkAMQP:
		return sink.NewAMQPAdapter(ctx, sink.AMQPConfig{
			URI:        cfg.AMQPURI,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
		}, log.Named("sink.amqp"))
	default:
		return sink.NewStdoutAdapter(os.Stdout), nil
	}
}
