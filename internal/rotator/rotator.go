// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package rotator periodically checks the target file's size, renaming it to
// a timestamped sibling and recreating an empty file in its place once it
// exceeds a configured threshold, and periodically persists the publisher's
// acknowledged watermark to the checkpoint store.
package rotator

import (
	"context"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dizda/log-bouncer/internal/checkpoint"
	"github.com/dizda/log-bouncer/internal/metrics"
	"github.com/dizda/log-bouncer/internal/watch"
)

// Config controls the Rotator's behaviour.
type Config struct {
	Path             string
	MaxBytes         int64
	RotationPeriod   time.Duration
	CheckpointPeriod time.Duration
	DateFormat       string // strftime syntax, e.g. "%Y-%m-%d-%H-%M-%S"
}

// Rotator owns the checkpoint store exclusively and mutates the target file
// out-of-band from the follower (which only reads it).
type Rotator struct {
	cfg       Config
	pattern   *strftime.Strftime
	store     *checkpoint.Store
	watermark *watch.Value[uint64]
	log       *zap.SugaredLogger
}

// New touches the target file into existence, opens its checkpoint store,
// and returns a Rotator ready to run.
func New(cfg Config, watermark *watch.Value[uint64], log *zap.SugaredLogger) (*Rotator, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "touching target file %s", cfg.Path)
	}
	f.Close()

	pattern, err := strftime.New(cfg.DateFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing date format %q", cfg.DateFormat)
	}

	store, err := checkpoint.Open(cfg.Path)
	if err != nil {
		return nil, err
	}

	return &Rotator{
		cfg:       cfg,
		pattern:   pattern,
		store:     store,
		watermark: watermark,
		log:       log,
	}, nil
}

// StartingOffset returns the offset to resume the follower from, recovering
// from a corrupted sidecar by resetting it to 0 and logging a warning.
func (r *Rotator) StartingOffset() (uint64, error) {
	offset, err := r.store.Load()
	if errors.Is(err, checkpoint.ErrCorrupted) {
		r.log.Warnw("rotator: checkpoint sidecar corrupted, resetting to offset 0", "path", r.store.Path())
		if resetErr := r.store.Reset(); resetErr != nil {
			return 0, resetErr
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// Run alternates between rotation checks and checkpoint saves on independent
// tickers until ctx is cancelled. It only returns a non-nil error for a
// configuration-class failure (a rotation target collision); ordinary I/O
// errors on individual ticks are logged and retried on the next tick.
func (r *Rotator) Run(ctx context.Context) error {
	rotationTicker := time.NewTicker(r.cfg.RotationPeriod)
	defer rotationTicker.Stop()
	checkpointTicker := time.NewTicker(r.cfg.CheckpointPeriod)
	defer checkpointTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-rotationTicker.C:
			if err := r.maybeRotate(); err != nil {
				if errors.Is(err, errRotationCollision) {
					return err
				}
				r.log.Errorw("rotator: rotation check failed", "error", err)
			}

		case <-checkpointTicker.C:
			offset := r.watermark.Get()
			if err := r.store.Save(offset); err != nil {
				metrics.CheckpointSaveErrors.Inc()
				r.log.Errorw("rotator: checkpoint save failed", "error", err)
				continue
			}
			metrics.CheckpointSaves.Inc()
		}
	}
}

var errRotationCollision = errors.New("rotator: rotation target already exists")

func (r *Rotator) maybeRotate() error {
	info, err := os.Stat(r.cfg.Path)
	if err != nil {
		return errors.Wrapf(err, "statting %s", r.cfg.Path)
	}
	if info.Size() <= r.cfg.MaxBytes {
		return nil
	}

	target := r.cfg.Path + "." + r.pattern.FormatString(time.Now().UTC())

	if _, err := os.Stat(target); err == nil {
		return errors.Wrapf(errRotationCollision, "target %s", target)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "statting rotation target %s", target)
	}

	if err := os.Rename(r.cfg.Path, target); err != nil {
		return errors.Wrapf(err, "renaming %s to %s", r.cfg.Path, target)
	}

	f, err := os.OpenFile(r.cfg.Path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.log.Errorw("rotator: failed to recreate target file after rotation", "path", r.cfg.Path, "error", err)
	} else {
		f.Close()
	}

	if err := r.store.Reset(); err != nil {
		r.log.Errorw("rotator: failed to reset checkpoint after rotation", "error", err)
	}
	// Drain the watermark so the next checkpoint tick saves against the new
	// file instead of re-persisting the just-reset sidecar's stale
	// pre-rotation offset.
	r.watermark.Set(0)

	metrics.Rotations.Inc()
	r.log.Infow("rotator: rotated target file", "from", r.cfg.Path, "to", target)
	return nil
}
