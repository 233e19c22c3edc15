// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mission implements the mission state machine: the phase model
// governing the purpose/goal/task lifecycle, proposal negotiation with the
// cognition provider, and human-approval gating.
//
// # Description
//
// A Machine owns no goroutines. The autonomous loop scheduler calls Cycle
// repeatedly; HTTP handlers call Think and the admin operations. All state
// transitions go through the state.Manager lock; cognition calls always run
// outside it, with the lock re-acquired only to persist the decision.
package mission

import (
	"log/slog"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/config"
	"github.com/AleutianAI/AvatarCore/services/core/observability"
	"github.com/AleutianAI/AvatarCore/services/core/session"
	"github.com/AleutianAI/AvatarCore/services/core/state"
)

// Wait tells the scheduler how long to sleep before the next cycle. Idle
// means "wait indefinitely until an explicit wake".
type Wait struct {
	Interval time.Duration
	Idle     bool
}

// WaitIdle pauses the loop until a wake signal.
func WaitIdle() Wait {
	return Wait{Idle: true}
}

// Machine drives the mission plan.
type Machine struct {
	state    *state.Manager
	cfg      *config.Provider
	sessions *session.Store
	llm      cognition.Client
	metrics  *observability.CoreMetrics
	logger   *slog.Logger
	wake     func()
}

// New wires a machine. The wake callback is attached later via SetWake,
// once the scheduler exists.
func New(st *state.Manager, cfg *config.Provider, sessions *session.Store, llm cognition.Client, metrics *observability.CoreMetrics, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		state:    st,
		cfg:      cfg,
		sessions: sessions,
		llm:      llm,
		metrics:  metrics,
		logger:   logger,
	}
}

// SetWake registers the scheduler wake signal. Every state-changing
// operation invokes it so the loop leaves its idle wait promptly.
func (m *Machine) SetWake(fn func()) {
	m.wake = fn
}

// State exposes the state manager for handlers that only need snapshots.
func (m *Machine) State() *state.Manager {
	return m.state
}

func (m *Machine) wakeLoop() {
	if m.wake != nil {
		m.wake()
	}
}

// waitResult returns the short post-progress interval from config.
func (m *Machine) waitResult() Wait {
	return Wait{Interval: m.cfg.Get().ResultInterval()}
}

// llmOpts builds call options from the current configuration.
func (m *Machine) llmOpts(jsonOnly bool) cognition.Options {
	c := m.cfg.Get()
	return cognition.Options{
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		JSONOnly:    jsonOnly,
	}
}

// output appends a dialogue-pane line to the event log for the console.
func (m *Machine) output(text string) {
	m.state.Event("output", map[string]any{"pane": "dialogue", "text": text})
}
