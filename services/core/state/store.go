// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package state owns the durable state on disk: a single JSON document
// (state.json, full overwrite on every save), an append-only event log
// (events.jsonl) and a secondary console transcript log (console.jsonl).
//
// # Description
//
// The Store does file I/O only; the single process-wide exclusive lock
// around the live document lives in Manager. Writes fail loudly: a partial
// save is an error, never a best-effort success. The event log has no
// compaction or indexing; readers scan tail-first with an `after` timestamp
// cursor and a count limit.
//
// # Thread Safety
//
// All Store methods are safe for concurrent use; appends to the same log
// file are serialized internally.
package state

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

const (
	stateFile   = "state.json"
	eventsFile  = "events.jsonl"
	consoleFile = "console.jsonl"
)

// Store reads and writes the durable files under a single data directory.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger

	sinkMu sync.RWMutex
	sink   func(Event)
}

// NewStore returns a store bound to dir. The directory is created on the
// first write.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// SetEventSink registers a callback invoked after every successful event
// append. Used to fan events out to live subscribers.
func (s *Store) SetEventSink(fn func(Event)) {
	s.sinkMu.Lock()
	s.sink = fn
	s.sinkMu.Unlock()
}

// Load reads state.json, returning the empty default document when the file
// is absent or empty. A corrupt or unreadable file is an error.
func (s *Store) Load() (*datatypes.State, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if errors.Is(err, fs.ErrNotExist) {
		return datatypes.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(data) == 0 {
		return datatypes.NewState(), nil
	}
	st := datatypes.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st.Mission.Goals == nil {
		st.Mission.Goals = []*datatypes.Goal{}
	}
	return st, nil
}

// Save overwrites state.json with the full document.
func (s *Store) Save(st *datatypes.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, stateFile), data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// AppendEvent writes one JSON line to events.jsonl with a UTC timestamp.
func (s *Store) AppendEvent(eventType string, fields map[string]any) error {
	ev := Event{Time: utcNow(), Type: eventType, Fields: fields}
	if err := s.appendLine(eventsFile, ev); err != nil {
		return err
	}
	s.sinkMu.RLock()
	sink := s.sink
	s.sinkMu.RUnlock()
	if sink != nil {
		sink(ev)
	}
	return nil
}

// AppendConsoleLog writes one JSON line to the console transcript log.
func (s *Store) AppendConsoleLog(fields map[string]any) error {
	return s.appendLine(consoleFile, Event{Time: utcNow(), Type: "console", Fields: fields})
}

// RecentEvents returns up to limit events strictly newer than the `after`
// cursor (an RFC3339 timestamp; empty means "from the beginning"). The
// newest entries win when the log holds more than limit matches.
func (s *Store) RecentEvents(after string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	f, err := os.Open(filepath.Join(s.dir, eventsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// A torn or garbage line must not poison the whole read.
			s.logger.Warn("skipping unparsable event line", "error", err)
			continue
		}
		if after != "" && ev.Time <= after {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan event log: %w", err)
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

func (s *Store) appendLine(name string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode log line: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func utcNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
