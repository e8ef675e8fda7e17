// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package sink defines the pluggable output contract for published lines and
// provides the two adapters this repository ships: a development stdout
// adapter and a production AMQP adapter with mandatory publisher confirms.
package sink

import "context"

// OutputAdapter delivers a single line, at a known post-line file offset, to
// a downstream destination. Send is called at most once per line and always
// in ascending offset order; it must not return nil until the destination
// has durably accepted the line.
type OutputAdapter interface {
	Send(ctx context.Context, offset uint64, line string) error
	Close() error
}
