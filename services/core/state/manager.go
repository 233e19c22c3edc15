// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

// Manager holds the live state document behind the single process-wide
// exclusive lock. Every read-modify-write goes through Update; cognition
// calls never happen while the lock is held.
type Manager struct {
	mu    sync.Mutex
	store *Store
	st    *datatypes.State
}

// NewManager loads the last saved document (or the empty default) and wraps
// it in a lock-managed handle.
func NewManager(store *Store) (*Manager, error) {
	st, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return &Manager{store: store, st: st}, nil
}

// Store exposes the underlying file store for event/console appends, which
// need no state lock.
func (m *Manager) Store() *Store {
	return m.store
}

// Update runs fn on the live document under the exclusive lock and persists
// the result. When fn returns an error nothing is saved and the error is
// returned unchanged, so validation failures leave no trace on disk.
func (m *Manager) Update(fn func(st *datatypes.State) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := fn(m.st); err != nil {
		return err
	}
	if err := m.store.Save(m.st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// View runs fn on the live document under the lock without saving. fn must
// not mutate the document.
func (m *Manager) View(fn func(st *datatypes.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.st)
}

// Snapshot returns a deep copy of the current document, safe to use outside
// the lock.
func (m *Manager) Snapshot() *datatypes.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.Clone()
}

// Event appends to the event log. Append failures are logged, not fatal:
// losing one log line must not abort the state transition that caused it.
func (m *Manager) Event(eventType string, fields map[string]any) {
	if err := m.store.AppendEvent(eventType, fields); err != nil {
		slog.Error("failed to append event", "type", eventType, "error", err)
	}
}
