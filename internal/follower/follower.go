// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package follower drives a tailedfile.TailedFile at a fixed poll cadence and
// hands complete lines off to the publisher under backpressure.
package follower

import (
	"time"

	"go.uber.org/zap"

	"github.com/dizda/log-bouncer/internal/tailedfile"
)

// pollInterval mirrors the original implementation's TAIL_WAIT_DURATION: how
// long to sleep between polls that found nothing new.
const pollInterval = 500 * time.Millisecond

// LineRecord is a single extracted line stamped with the byte offset in the
// target file immediately after it (including its terminating newline).
type LineRecord struct {
	Offset uint64
	Line   string
}

// Follower owns a TailedFile exclusively and publishes LineRecords onto a
// bounded channel. It is meant to run on a dedicated goroutine for the
// lifetime of the process; the channel's bound is the entire backpressure
// mechanism between following and publishing.
type Follower struct {
	tail *tailedfile.TailedFile
	out  chan<- LineRecord
	log  *zap.SugaredLogger

	done chan struct{}
}

// New constructs a Follower over an already-positioned TailedFile.
func New(tail *tailedfile.TailedFile, out chan<- LineRecord, log *zap.SugaredLogger) *Follower {
	return &Follower{
		tail: tail,
		out:  out,
		log:  log,
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when Run's goroutine has exited,
// whether due to a fatal error or because stop was signalled.
func (f *Follower) Done() <-chan struct{} { return f.done }

// Run polls the target file until stop is closed or a fatal read error
// occurs, sending every complete line found to the output channel. Run is
// intended to be the entire body of a dedicated goroutine.
func (f *Follower) Run(stop <-chan struct{}) error {
	defer close(f.done)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		lines, signal, err := f.tail.Poll()
		if err != nil {
			f.log.Errorw("follower: fatal read error, stopping", "error", err)
			return err
		}

		switch signal {
		case tailedfile.SignalRotated:
			f.log.Warnw("follower: target file rotated, resuming from offset 0")
		case tailedfile.SignalTruncated:
			f.log.Warnw("follower: target file truncated, resuming from offset 0")
		}

		if len(lines) == 0 {
			select {
			case <-stop:
				return nil
			case <-time.After(pollInterval):
			}
			continue
		}

		for _, line := range lines {
			select {
			case f.out <- LineRecord{Offset: line.Offset, Line: line.Text}:
			case <-stop:
				return nil
			}
		}
	}
}
