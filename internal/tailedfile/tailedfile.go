// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package tailedfile implements the low-level line extractor over a single
// target file: it tracks a byte offset and a file identity token, and
// distinguishes ordinary growth from rotation and truncation.
package tailedfile

import (
	"bufio"
	"io"
	"os"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/dizda/log-bouncer/internal/fileid"
)

// Signal reports what Poll observed about the target file's lifecycle.
type Signal int

const (
	// SignalNone indicates an ordinary poll: zero or more complete lines were
	// read, and the file's identity is unchanged.
	SignalNone Signal = iota

	// SignalRotated indicates the file at the tailed path now has a different
	// identity than last observed; the cursor has been reset to 0.
	SignalRotated

	// SignalTruncated indicates the file's identity is unchanged but its
	// length is now less than the stored cursor; the cursor has been reset to 0.
	SignalTruncated
)

func (s Signal) String() string {
	switch s {
	case SignalRotated:
		return "rotated"
	case SignalTruncated:
		return "truncated"
	default:
		return "none"
	}
}

// TailedFile extracts complete newline-terminated lines appended to a file at
// a stable path, across rotation and truncation of that path.
//
// A TailedFile is not safe for concurrent use; it is designed to be owned
// exclusively by a single Follower goroutine.
type TailedFile struct {
	path     string
	cursor   uint64
	identity fileid.Identity
}

// Open opens path, records its identity, and positions the cursor at
// end-of-file. Callers that are resuming from a checkpoint should call
// SetOffset afterward.
func Open(path string) (*TailedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	id, err := fileid.Of(f)
	if err != nil {
		return nil, errors.Wrapf(err, "identifying %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "statting %s", path)
	}

	return &TailedFile{
		path:     path,
		cursor:   uint64(info.Size()),
		identity: id,
	}, nil
}

// SetOffset overrides the current read position. Used at startup to resume
// from a persisted checkpoint.
func (t *TailedFile) SetOffset(n uint64) { t.cursor = n }

// Offset returns the current read position within the target file.
func (t *TailedFile) Offset() uint64 { return t.cursor }

// Identity returns the file identity token recorded at the last successful
// (re)open, i.e. as of the most recent rotation detection.
func (t *TailedFile) Identity() fileid.Identity { return t.identity }

// Line is a single complete line read by Poll, stamped with the cursor
// position immediately after it (including its stripped terminator).
type Line struct {
	Offset uint64
	Text   string
}

// Poll reopens the target path, checks for rotation/truncation, and returns
// any complete lines appended since the previous call. A trailing partial
// line (no terminating newline yet) is never returned; it will be emitted,
// whole, on a subsequent Poll once its terminator arrives.
func (t *TailedFile) Poll() ([]Line, Signal, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, SignalNone, errors.Wrapf(err, "opening %s", t.path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, SignalNone, errors.Wrapf(err, "statting %s", t.path)
	}

	id, err := fileid.Of(f)
	if err != nil {
		return nil, SignalNone, errors.Wrapf(err, "identifying %s", t.path)
	}

	if id != t.identity {
		t.identity = id
		t.cursor = 0
		return nil, SignalRotated, nil
	}

	if uint64(info.Size()) < t.cursor {
		t.cursor = 0
		return nil, SignalTruncated, nil
	}

	if uint64(info.Size()) == t.cursor {
		return nil, SignalNone, nil
	}

	if _, err := f.Seek(int64(t.cursor), io.SeekStart); err != nil {
		return nil, SignalNone, errors.Wrapf(err, "seeking %s", t.path)
	}

	lines, err := t.readCompleteLines(f)
	if err != nil {
		return nil, SignalNone, errors.Wrapf(err, "reading %s", t.path)
	}

	return lines, SignalNone, nil
}

// readCompleteLines reads from r until EOF, advancing t.cursor by the raw
// byte length of every newline-terminated line found and returning each as a
// Line stamped with the cursor position immediately after it. Any trailing
// bytes without a terminator are left unconsumed and re-read on the next call.
func (t *TailedFile) readCompleteLines(r io.Reader) ([]Line, error) {
	br := bufio.NewReader(r)
	var lines []Line

	for {
		raw, err := br.ReadBytes('\n')
		switch {
		case err == nil:
			content := raw[:len(raw)-1]
			if !utf8.Valid(content) {
				return lines, errors.Errorf("invalid UTF-8 in line at offset %d", t.cursor)
			}
			t.cursor += uint64(len(raw))
			lines = append(lines, Line{Offset: t.cursor, Text: string(content)})
		case errors.Is(err, io.EOF):
			// raw (if any) has no trailing newline yet; do not consume it.
			return lines, nil
		default:
			return lines, err
		}
	}
}
