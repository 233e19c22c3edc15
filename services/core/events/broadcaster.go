// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events fans freshly appended event-log entries out to live
// websocket subscribers. The durable log on disk remains the source of
// truth; this stream is a convenience for consoles that would otherwise
// poll /events/recent.
package events

import (
	"log/slog"
	"sync"

	"github.com/AleutianAI/AvatarCore/services/core/state"
)

// subscriberBuffer bounds the per-subscriber queue. A slow consumer drops
// events rather than blocking the state machine.
const subscriberBuffer = 64

// Broadcaster distributes events to subscribers.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan state.Event]struct{}
	logger *slog.Logger
}

// NewBroadcaster builds an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[chan state.Event]struct{}),
		logger: logger,
	}
}

// Publish delivers ev to every subscriber, dropping it for subscribers whose
// buffer is full.
func (b *Broadcaster) Publish(ev state.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber", "type", ev.Type)
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function.
func (b *Broadcaster) Subscribe() (<-chan state.Event, func()) {
	ch := make(chan state.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
