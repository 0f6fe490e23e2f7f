// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileLog appends entries as JSON lines to a file and keeps an in-memory
// index for reads. Entries already in the file are loaded on open.
type FileLog struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	index    *MemoryLog
	fallback *SlogRecorder
}

// OpenFileLog opens (creating if needed) the log at path.
// Lines that do not parse are skipped.
func OpenFileLog(path string, fallback *SlogRecorder) (*FileLog, error) {
	if path == "" {
		return nil, errors.New("audit log path is required")
	}
	if fallback == nil {
		fallback = NewSlogRecorder(nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}

	existing, err := readEntries(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	index := NewMemoryLog()
	index.load(existing)

	return &FileLog{
		path:     path,
		file:     f,
		index:    index,
		fallback: fallback,
	}, nil
}

func readEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

// Record appends e to the file. On write failure the entry goes to the
// fallback channel; the caller is never told.
func (l *FileLog) Record(ctx context.Context, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e = l.index.append(e)

	line, err := json.Marshal(e)
	if err == nil {
		line = append(line, '\n')
		_, err = l.file.Write(line)
	}
	if err != nil {
		slog.ErrorContext(ctx, "audit log write failed",
			slog.String("path", l.path),
			slog.String("error", err.Error()),
		)
		l.fallback.log(ctx, e)
	}
}

// List returns a page of entries, newest first.
func (l *FileLog) List(ctx context.Context, q Query) (Page, error) {
	return l.index.List(ctx, q)
}

// Close closes the underlying file.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
