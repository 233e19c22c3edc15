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
	"testing"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	now := time.Now()
	s := NewStore(ttl, func() *cognition.Chat { return cognition.NewChat("sys") })
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGetOrCreateReusesWithinTTL(t *testing.T) {
	s, now := newTestStore(time.Hour)
	a := s.GetOrCreate("sess-1")
	*now = now.Add(30 * time.Minute)
	b := s.GetOrCreate("sess-1")
	if a != b {
		t.Error("expected the same chat within the TTL")
	}
}

func TestEvictionBoundary(t *testing.T) {
	s, now := newTestStore(time.Hour)
	a := s.GetOrCreate("sess-1")

	// Exactly at the TTL the session survives; eviction is strictly greater.
	*now = now.Add(time.Hour)
	if b := s.GetOrCreate("sess-1"); b != a {
		t.Error("session idle exactly TTL must survive")
	}

	*now = now.Add(time.Hour + time.Nanosecond)
	if b := s.GetOrCreate("sess-1"); b == a {
		t.Error("session idle past TTL must be evicted")
	}
}

func TestAccessRefreshesTTL(t *testing.T) {
	s, now := newTestStore(time.Hour)
	a := s.GetOrCreate("sess-1")
	*now = now.Add(50 * time.Minute)
	s.GetOrCreate("sess-1")
	*now = now.Add(50 * time.Minute)
	if b := s.GetOrCreate("sess-1"); b != a {
		t.Error("intermediate access must refresh the TTL")
	}
}

func TestRemoveAndResetAll(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	a := s.GetOrCreate(CoreSessionID)
	s.GetOrCreate("sess-1")

	s.Remove(CoreSessionID)
	if b := s.GetOrCreate(CoreSessionID); b == a {
		t.Error("Remove must drop the session")
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}

	s.ResetAll()
	if s.Len() != 0 {
		t.Errorf("Len after ResetAll = %d", s.Len())
	}
}

func TestFactorySeedsSystemPrompt(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	chat := s.GetOrCreate("sess-1")
	msgs := chat.Messages()
	if len(msgs) != 1 || msgs[0].Role != cognition.RoleSystem || msgs[0].Content != "sys" {
		t.Errorf("fresh chat transcript = %+v", msgs)
	}
}

func TestResponseMap(t *testing.T) {
	m := NewResponseMap(time.Hour)
	now := time.Now()
	m.now = func() time.Time { return now }

	if got := m.Resolve("unknown"); got != "" {
		t.Errorf("Resolve(unknown) = %q", got)
	}
	if got := m.Resolve(""); got != "" {
		t.Errorf("Resolve(empty) = %q", got)
	}

	m.Bind("resp-1", "roblox-abc")
	if got := m.Resolve("resp-1"); got != "roblox-abc" {
		t.Errorf("Resolve = %q", got)
	}

	now = now.Add(2 * time.Hour)
	if got := m.Resolve("resp-1"); got != "" {
		t.Errorf("expired binding resolved to %q", got)
	}
}
