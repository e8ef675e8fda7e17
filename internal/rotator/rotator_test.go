// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

package rotator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dizda/log-bouncer/internal/watch"
)

func TestRotatesWhenOverThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(path, []byte("0123456789ABCDE\n"), 0o644))

	wm := watch.NewValue[uint64](0)
	r, err := New(Config{
		Path:             path,
		MaxBytes:         10,
		RotationPeriod:   10 * time.Millisecond,
		CheckpointPeriod: time.Hour,
		DateFormat:       "%Y%m%d%H%M%S",
	}, wm, zap.NewNop().Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	// a.log, its rotated sibling, and the checkpoint sidecar.
	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(dir)
		return len(entries) == 3
	}, 2*time.Second, 10*time.Millisecond)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), info.Size())

	cancel()
	<-runDone
}

func TestSavesCheckpointPeriodically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	wm := watch.NewValue[uint64](0)
	r, err := New(Config{
		Path:             path,
		MaxBytes:         1_000_000,
		RotationPeriod:   time.Hour,
		CheckpointPeriod: 10 * time.Millisecond,
		DateFormat:       "%Y%m%d%H%M%S",
	}, wm, zap.NewNop().Sugar())
	require.NoError(t, err)

	wm.Set(6)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		offset, err := r.StartingOffset()
		return err == nil && offset == 6
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-runDone
}

func TestRotationDrainsStaleWatermarkBeforeNextCheckpointSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(path, []byte("0123456789ABCDE\n"), 0o644))

	wm := watch.NewValue[uint64](0)
	r, err := New(Config{
		Path:             path,
		MaxBytes:         10,
		RotationPeriod:   5 * time.Millisecond,
		CheckpointPeriod: 5 * time.Millisecond,
		DateFormat:       "%Y%m%d%H%M%S",
	}, wm, zap.NewNop().Sugar())
	require.NoError(t, err)

	// Simulate a stale pre-rotation watermark that was never actually
	// acknowledged against the rotated-in file.
	wm.Set(500)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- r.Run(ctx) }()

	// a.log, its rotated sibling, and the checkpoint sidecar.
	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(dir)
		return len(entries) == 3
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		offset, err := r.StartingOffset()
		return err == nil && offset == 0
	}, 2*time.Second, time.Millisecond)

	// Give several more checkpoint ticks a chance to run and confirm the
	// stale value never resurfaces in the sidecar.
	time.Sleep(50 * time.Millisecond)
	offset, err := r.StartingOffset()
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)

	cancel()
	<-runDone
}

func TestStartingOffsetRecoversFromCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.log")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	wm := watch.NewValue[uint64](0)
	r, err := New(Config{
		Path:             path,
		MaxBytes:         1_000_000,
		RotationPeriod:   time.Hour,
		CheckpointPeriod: time.Hour,
		DateFormat:       "%Y%m%d%H%M%S",
	}, wm, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".a.log.log-bouncer"), []byte("garbage"), 0o644))

	offset, err := r.StartingOffset()
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)
}
