// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package checkpoint persists the tailer's read offset in a small sidecar
// file bound to the target file's content fingerprint, so a restart can
// distinguish "resume from here" from "this isn't the file I was tailing
// anymore".
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dizda/log-bouncer/internal/fileid"
)

// ErrCorrupted is returned by Load when the sidecar's contents cannot be
// parsed as "{fingerprint};{offset}".
var ErrCorrupted = errors.New("checkpoint: corrupted sidecar")

// Store owns the sidecar file for a single tailed target.
type Store struct {
	targetPath   string
	sidecarPath  string
}

// sidecarPathFor returns "{dir}/.{basename}.log-bouncer" for the given target.
func sidecarPathFor(target string) string {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	return filepath.Join(dir, "."+base+".log-bouncer")
}

// Open opens or creates the sidecar file for targetPath.
func Open(targetPath string) (*Store, error) {
	s := &Store{
		targetPath:  targetPath,
		sidecarPath: sidecarPathFor(targetPath),
	}
	f, err := os.OpenFile(s.sidecarPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening checkpoint sidecar %s", s.sidecarPath)
	}
	f.Close()
	return s, nil
}

// Path returns the sidecar file's path, for diagnostics.
func (s *Store) Path() string { return s.sidecarPath }

// Load returns the offset to resume from. It returns 0 (no error) when the
// sidecar is empty or when the target's current fingerprint differs from the
// one recorded in the sidecar. It returns ErrCorrupted when the sidecar's
// contents cannot be parsed; the caller is expected to call Reset and
// continue from offset 0 in that case.
func (s *Store) Load() (uint64, error) {
	raw, err := os.ReadFile(s.sidecarPath)
	if err != nil {
		return 0, errors.Wrapf(err, "reading checkpoint sidecar %s", s.sidecarPath)
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return 0, nil
	}

	parts := strings.Split(content, ";")
	if len(parts) != 2 {
		return 0, ErrCorrupted
	}
	storedFP, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, ErrCorrupted
	}
	offset, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, ErrCorrupted
	}

	currentFP, err := s.currentFingerprint()
	if err != nil {
		return 0, err
	}
	if uint32(storedFP) != currentFP {
		return 0, nil
	}
	return offset, nil
}

// Save truncates and rewrites the sidecar with the current target
// fingerprint and the given offset. The fingerprint is recomputed at every
// save so that Save always reflects the file currently at targetPath.
func (s *Store) Save(offset uint64) error {
	fp, err := s.currentFingerprint()
	if err != nil {
		return err
	}
	return s.writeRaw(fp, offset)
}

// Reset clears the sidecar back to offset 0 against the target's current
// fingerprint.
func (s *Store) Reset() error {
	return s.Save(0)
}

func (s *Store) writeRaw(fp uint32, offset uint64) error {
	f, err := os.OpenFile(s.sidecarPath, os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrapf(err, "opening checkpoint sidecar %s", s.sidecarPath)
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return errors.Wrapf(err, "truncating checkpoint sidecar %s", s.sidecarPath)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return errors.Wrapf(err, "seeking checkpoint sidecar %s", s.sidecarPath)
	}
	if _, err := f.WriteString(fmt.Sprintf("%d;%d", fp, offset)); err != nil {
		return errors.Wrapf(err, "writing checkpoint sidecar %s", s.sidecarPath)
	}
	return nil
}

func (s *Store) currentFingerprint() (uint32, error) {
	f, err := os.Open(s.targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "opening target %s", s.targetPath)
	}
	defer f.Close()
	return fileid.Fingerprint(f)
}
