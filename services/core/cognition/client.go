// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cognition wraps the external language-model provider behind a
// small contract: submit a conversation, receive text plus an opaque id.
// It also implements the two-attempt JSON negotiation protocol used for
// every structured decision.
package cognition

import (
	"context"
	"sync"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Reply is the provider's answer: the text, an opaque response id, and the
// total tokens billed for the exchange.
type Reply struct {
	Text        string
	ID          string
	TotalTokens int
}

// Options select the model parameters for a single call.
type Options struct {
	Model       string
	Temperature float64
	// JSONOnly asks the provider to emit a single JSON object.
	JSONOnly bool
}

// Client submits a conversation to the cognition provider. Implementations
// append both the outgoing message and the assistant reply to the chat on
// success, so the transcript stays consistent across retries.
type Client interface {
	Complete(ctx context.Context, chat *Chat, message string, opts Options) (Reply, error)
}

// Chat is a mutable conversation transcript. It is owned by the session
// store; callers must not share one chat across concurrent requests.
type Chat struct {
	mu       sync.Mutex
	messages []Message
}

// NewChat starts a transcript seeded with a system prompt.
func NewChat(systemPrompt string) *Chat {
	c := &Chat{}
	if systemPrompt != "" {
		c.messages = append(c.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return c
}

// Append adds one turn to the transcript.
func (c *Chat) Append(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the transcript.
func (c *Chat) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of turns, system prompt included.
func (c *Chat) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
