// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop runs the autonomous scheduler: a single background worker
// that repeatedly evaluates the mission state machine and sleeps for the
// interval the machine returns.
//
// # Description
//
// The worker alternates between Cycle and a cancellable wait. A cycle either
// returns a fixed interval (progress was made, come back soon) or an idle
// wait (a human owes an answer); idle waits only end on an explicit Wake or
// on Stop. A panicking or erroring cycle is logged and retried after the
// recovery interval; the loop itself never dies.
//
// # Thread Safety
//
// All methods are safe for concurrent use. At most one worker goroutine runs
// at a time.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/mission"
	"github.com/AleutianAI/AvatarCore/services/core/observability"
)

// recoveryInterval is the retry delay after a failed or panicked cycle.
const recoveryInterval = 3 * time.Second

// stopJoinTimeout bounds how long Stop waits for the worker to exit.
const stopJoinTimeout = 5 * time.Second

// Scheduler owns the single autonomous worker goroutine.
type Scheduler struct {
	machine *mission.Machine
	metrics *observability.CoreMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}
}

// NewScheduler wires a scheduler and registers itself as the machine's wake
// signal.
func NewScheduler(machine *mission.Machine, metrics *observability.CoreMetrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		machine: machine,
		metrics: metrics,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}
	machine.SetWake(s.Wake)
	return s
}

// Start launches the worker. Starting a running scheduler is a no-op, and so
// is starting while a previous worker that outlived its Stop join is still
// exiting; at most one worker ever runs.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			s.logger.Warn("previous worker has not exited yet, start skipped")
			return
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.logger.Info("autonomous loop started")
}

// Stop signals the worker and joins it with a bounded timeout. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		s.logger.Warn("autonomous loop did not stop in time", "timeout", stopJoinTimeout)
	}
	s.logger.Info("autonomous loop stopped")
}

// Wake interrupts an idle or timed wait so the next cycle runs promptly.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the worker is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		wait := s.cycle(ctx)
		if !s.wait(ctx, wait) {
			return
		}
	}
}

// cycle runs one machine step with panic containment.
func (s *Scheduler) cycle(ctx context.Context) (wait mission.Wait) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", "panic", fmt.Sprint(r))
			s.metrics.RecordCycle("panic")
			wait = mission.Wait{Interval: recoveryInterval}
		}
	}()
	wait = s.machine.Cycle(ctx)
	if wait.Idle {
		s.metrics.RecordCycle("idle")
	} else {
		s.metrics.RecordCycle("progress")
	}
	return wait
}

// wait sleeps per the machine's instruction. Returns false when the
// scheduler is shutting down.
func (s *Scheduler) wait(ctx context.Context, w mission.Wait) bool {
	if w.Idle {
		select {
		case <-ctx.Done():
			return false
		case <-s.wake:
			return true
		}
	}
	timer := time.NewTimer(w.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.wake:
		return true
	case <-timer.C:
		return true
	}
}
