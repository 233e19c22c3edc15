// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session keeps per-conversation cognition contexts in memory with
// lazy TTL eviction: every access first purges entries idle for longer than
// the TTL; there is no background sweep.
package session

import (
	"sync"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
)

// CoreSessionID is the reserved session id of the autonomous loop. Its chat
// shares history across goal and task proposals and is distinct from every
// end-user session.
const CoreSessionID = "core-autonomous"

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 3600 * time.Second

// Store holds chats keyed by session id.
//
// The factory builds a fresh chat (with a freshly rendered system prompt)
// whenever an id is first seen or has been evicted.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	items   map[string]*entry
	factory func() *cognition.Chat
	now     func() time.Time
}

type entry struct {
	chat     *cognition.Chat
	lastUsed time.Time
}

// NewStore builds a store. ttl <= 0 selects DefaultTTL.
func NewStore(ttl time.Duration, factory func() *cognition.Chat) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		items:   make(map[string]*entry),
		factory: factory,
		now:     time.Now,
	}
}

// GetOrCreate returns the chat for id, refreshing its last-used time, or
// creates one if absent or expired.
func (s *Store) GetOrCreate(id string) *cognition.Chat {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge(now)
	if e, ok := s.items[id]; ok {
		e.lastUsed = now
		return e.chat
	}
	chat := s.factory()
	s.items[id] = &entry{chat: chat, lastUsed: now}
	return chat
}

// Remove drops one session (used on mission reset).
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// ResetAll drops every session (used on configuration change).
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*entry)
}

// Len reports the live session count after a purge.
func (s *Store) Len() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge(now)
	return len(s.items)
}

// purge must be called with the lock held.
func (s *Store) purge(now time.Time) {
	for id, e := range s.items {
		if now.Sub(e.lastUsed) > s.ttl {
			delete(s.items, id)
		}
	}
}
