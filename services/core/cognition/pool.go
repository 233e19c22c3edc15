// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout marks a cognition call that exceeded its deadline. Callers
// treat it as a recoverable cycle failure, never a process failure.
var ErrTimeout = errors.New("cognition call timed out")

const (
	// DefaultPoolSize bounds concurrent provider calls so a stalled
	// upstream cannot starve user-facing requests.
	DefaultPoolSize = 4
	// DefaultCallTimeout is the per-call deadline.
	DefaultCallTimeout = 30 * time.Second
)

// Pool is a Client that limits concurrency with a weighted semaphore and
// enforces a per-call timeout. It wraps any inner Client.
type Pool struct {
	inner   Client
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *slog.Logger
}

// NewPool wraps inner with a bounded worker pool. Zero values select the
// defaults.
func NewPool(inner Client, size int64, timeout time.Duration, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		inner:   inner,
		sem:     semaphore.NewWeighted(size),
		timeout: timeout,
		logger:  logger,
	}
}

// Complete acquires a pool slot, runs the call with the pool deadline and
// translates deadline expiry into ErrTimeout.
func (p *Pool) Complete(ctx context.Context, chat *Chat, message string, opts Options) (Reply, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Reply{}, fmt.Errorf("acquire cognition slot: %w", err)
	}
	defer p.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	reply, err := p.inner.Complete(callCtx, chat, message, opts)
	elapsed := time.Since(start)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			p.logger.Warn("cognition call timed out", "elapsed", elapsed, "timeout", p.timeout)
			return Reply{}, fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
		}
		return Reply{}, err
	}
	p.logger.Debug("cognition call completed", "elapsed", elapsed, "tokens", reply.TotalTokens)
	return reply, nil
}
