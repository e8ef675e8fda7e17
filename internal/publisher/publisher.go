// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package publisher drains the follower's line queue, forwards each line to
// a sink.OutputAdapter in strict order, and publishes the acknowledged
// watermark for the rotator to observe.
package publisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/dizda/log-bouncer/internal/follower"
	"github.com/dizda/log-bouncer/internal/metrics"
	"github.com/dizda/log-bouncer/internal/sink"
	"github.com/dizda/log-bouncer/internal/watch"
)

// Publisher is the single consumer of the follower's line queue.
type Publisher struct {
	adapter   sink.OutputAdapter
	in        <-chan follower.LineRecord
	watermark *watch.Value[uint64]
	log       *zap.SugaredLogger
}

// New constructs a Publisher. watermark is written after every successfully
// acknowledged send and is otherwise owned by the rotator.
func New(adapter sink.OutputAdapter, in <-chan follower.LineRecord, watermark *watch.Value[uint64], log *zap.SugaredLogger) *Publisher {
	return &Publisher{adapter: adapter, in: in, watermark: watermark, log: log}
}

// Run forwards lines to the adapter until ctx is cancelled, the input channel
// is closed, or the adapter returns an error (which is fatal: the caller
// should treat a non-nil return as reason to shut the whole process down).
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-p.in:
			if !ok {
				return nil
			}
			if err := p.adapter.Send(ctx, rec.Offset, rec.Line); err != nil {
				p.log.Errorw("publisher: fatal send error, stopping", "error", err)
				return err
			}
			metrics.LinesPublished.Inc()
			metrics.CurrentOffset.Set(float64(rec.Offset))
			p.watermark.Set(rec.Offset)
		}
	}
}
