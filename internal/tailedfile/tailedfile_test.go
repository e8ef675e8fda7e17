// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

package tailedfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func TestPollReadsLinesWrittenAfterOpen(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "")

	tf, err := Open(path)
	require.NoError(t, err)
	tf.SetOffset(0)

	appendFile(t, path, "hello\nworld\n")

	lines, signal, err := tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalNone, signal)
	require.Len(t, lines, 2)
	require.Equal(t, "hello", lines[0].Text)
	require.Equal(t, uint64(6), lines[0].Offset)
	require.Equal(t, "world", lines[1].Text)
	require.Equal(t, uint64(12), lines[1].Offset)
	require.Equal(t, uint64(12), tf.Offset())
}

func TestPollWithheldsUnterminatedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "")

	tf, err := Open(path)
	require.NoError(t, err)
	tf.SetOffset(0)

	appendFile(t, path, "foo")
	lines, _, err := tf.Poll()
	require.NoError(t, err)
	require.Empty(t, lines)
	require.Equal(t, uint64(0), tf.Offset())

	appendFile(t, path, "bar\n")
	lines, _, err = tf.Poll()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "foobar", lines[0].Text)
	require.Equal(t, uint64(7), tf.Offset())
}

func TestPollDetectsRotation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "one\n")

	tf, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, os.Rename(path, path+".1"))
	require.NoError(t, os.WriteFile(path, []byte("two\n"), 0o644))

	lines, signal, err := tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalRotated, signal)
	require.Empty(t, lines)
	require.Equal(t, uint64(0), tf.Offset())

	lines, signal, err = tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalNone, signal)
	require.Len(t, lines, 1)
	require.Equal(t, "two", lines[0].Text)
}

func TestPollDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "0123456789\n")

	tf, err := Open(path)
	require.NoError(t, err)
	tf.SetOffset(11)

	require.NoError(t, os.Truncate(path, 0))

	lines, signal, err := tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalTruncated, signal)
	require.Empty(t, lines)
	require.Equal(t, uint64(0), tf.Offset())

	appendFile(t, path, "fresh\n")
	lines, signal, err = tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalNone, signal)
	require.Len(t, lines, 1)
	require.Equal(t, "fresh", lines[0].Text)
}

func TestPollIsNoOpWhenNothingNew(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "x\n")

	tf, err := Open(path)
	require.NoError(t, err)

	lines, signal, err := tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalNone, signal)
	require.Empty(t, lines)
}

func TestPollRejectsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "")

	tf, err := Open(path)
	require.NoError(t, err)
	tf.SetOffset(0)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte{'o', 'k', 0xff, 0xfe, '\n'})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	lines, _, err := tf.Poll()
	require.Error(t, err)
	require.Empty(t, lines)
}

func TestPollAcceptsValidMultibyteUTF8(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.log", "")

	tf, err := Open(path)
	require.NoError(t, err)
	tf.SetOffset(0)

	appendFile(t, path, "héllo\n")

	lines, signal, err := tf.Poll()
	require.NoError(t, err)
	require.Equal(t, SignalNone, signal)
	require.Len(t, lines, 1)
	require.Equal(t, "héllo", lines[0].Text)
}
