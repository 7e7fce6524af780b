// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package flush persists log buffers to numbered datalog files without
// blocking acquisition.
package flush

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

var fileRe = regexp.MustCompile(`^datalog(\d{4,})\.bin$`)

// FileName returns the datalog file name for index.
func FileName(index int) string {
	return fmt.Sprintf("datalog%04d.bin", index)
}

// Store writes payloads to the successor of the highest existing datalog
// index in Dir. It is safe for use within one process only.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// NextIndex returns max(existing)+1, or 0 for an empty or missing directory.
func (s *Store) NextIndex() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", s.dir, err)
	}
	next := 0
	for _, e := range entries {
		m := fileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}

// Write stores data in a new file and returns its path. The directory is
// created on demand. On error no partial file is left behind.
func (s *Store) Write(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	idx, err := s.NextIndex()
	if err != nil {
		return "", err
	}

	var f *os.File
	var path string
	for attempt := 0; attempt < 16; attempt++ {
		path = filepath.Join(s.dir, FileName(idx+attempt))
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
