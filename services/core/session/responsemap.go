// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"sync"
	"time"
)

// ResponseMap correlates provider response ids with session ids for the
// game channel, which threads conversations by previous_response_id instead
// of carrying a session id. Entries expire after the same TTL as sessions.
type ResponseMap struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]*mapEntry
	now   func() time.Time
}

type mapEntry struct {
	sessionID string
	lastUsed  time.Time
}

// NewResponseMap builds a map. ttl <= 0 selects DefaultTTL.
func NewResponseMap(ttl time.Duration) *ResponseMap {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseMap{
		ttl:   ttl,
		items: make(map[string]*mapEntry),
		now:   time.Now,
	}
}

// Resolve returns the session bound to responseID and refreshes it, or ""
// when unknown or expired.
func (m *ResponseMap) Resolve(responseID string) string {
	if responseID == "" {
		return ""
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purge(now)
	e, ok := m.items[responseID]
	if !ok {
		return ""
	}
	e.lastUsed = now
	return e.sessionID
}

// Bind associates a freshly issued response id with a session.
func (m *ResponseMap) Bind(responseID, sessionID string) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purge(now)
	m.items[responseID] = &mapEntry{sessionID: sessionID, lastUsed: now}
}

func (m *ResponseMap) purge(now time.Time) {
	for id, e := range m.items {
		if now.Sub(e.lastUsed) > m.ttl {
			delete(m.items, id)
		}
	}
}
