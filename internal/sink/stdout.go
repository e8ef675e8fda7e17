// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

package sink

import (
	"context"
	"fmt"
	"io"
)

// StdoutAdapter writes each line to an io.Writer, one per line, for local
// development and debugging. It never fails to "durably accept" a line
// beyond whatever error the underlying writer reports.
type StdoutAdapter struct {
	w io.Writer
}

// NewStdoutAdapter builds a StdoutAdapter writing to w.
func NewStdoutAdapter(w io.Writer) *StdoutAdapter {
	return &StdoutAdapter{w: w}
}

// Send writes "{offset}\t{line}" followed by a newline.
func (a *StdoutAdapter) Send(_ context.Context, offset uint64, line string) error {
	_, err := fmt.Fprintf(a.w, "%d\t%s\n", offset, line)
	return err
}

// Close is a no-op; StdoutAdapter does not own w's lifecycle.
func (a *StdoutAdapter) Close() error { return nil }
