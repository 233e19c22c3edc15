// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package execrouter dispatches side-effecting execution requests to backend
// handlers with an authority check at the workspace boundary. Route is a
// total function: it always returns a result and never panics across the
// boundary.
package execrouter

import (
	"log/slog"

	"github.com/google/uuid"
)

// Authority is the privilege level of a request's originator.
type Authority string

const (
	AuthorityUser   Authority = "user"
	AuthorityAvatar Authority = "avatar"
)

// Valid reports whether the value is one of the known authorities.
func (a Authority) Valid() bool {
	return a == AuthorityUser || a == AuthorityAvatar
}

// Backend identifies an execution surface.
type Backend string

const (
	BackendDialogue Backend = "dialogue"
	BackendTerminal Backend = "terminal"
	BackendRoblox   Backend = "roblox"
	BackendX        Backend = "x"
)

// Valid reports whether the value is one of the known backends.
func (b Backend) Valid() bool {
	switch b {
	case BackendDialogue, BackendTerminal, BackendRoblox, BackendX:
		return true
	}
	return false
}

// Status is the outcome class of an execution.
type Status string

const (
	StatusDone      Status = "done"
	StatusFail      Status = "fail"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Request is one execution request crossing the router boundary.
type Request struct {
	ID            string         `json:"id"`
	Backend       Backend        `json:"backend"`
	Action        string         `json:"action"`
	Params        map[string]any `json:"params"`
	Cwd           string         `json:"cwd,omitempty"`
	Timeout       int            `json:"timeout,omitempty"`
	CapabilityRef string         `json:"capability_ref,omitempty"`
	Authority     Authority      `json:"authority"`
}

// Result is the outcome of a routed request.
type Result struct {
	RequestID  string   `json:"request_id"`
	Status     Status   `json:"status"`
	Summary    string   `json:"summary"`
	ExitCode   *int     `json:"exit_code"`
	Artifacts  []string `json:"artifacts"`
	DurationMs int64    `json:"duration_ms"`
	Error      string   `json:"error,omitempty"`
}

// DialogueFunc handles dialogue-backend requests by forwarding into the
// conversational entry point.
type DialogueFunc func(req Request) Result

// Router dispatches requests to backend handlers after the workspace check.
type Router struct {
	dialogue DialogueFunc
	space    string
	logger   *slog.Logger
}

// NewRouter builds a router guarding the given workspace root.
func NewRouter(space string, dialogue DialogueFunc, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{dialogue: dialogue, space: space, logger: logger}
}

// Space returns the configured workspace root.
func (r *Router) Space() string {
	return r.space
}

// Route dispatches the request. It fills in a request id when the caller
// did not supply one.
func (r *Router) Route(req Request) Result {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if v := r.checkSpace(req); v != nil {
		if v.Blocked {
			return Result{
				RequestID: req.ID,
				Status:    StatusFail,
				Summary:   "Avatar Space constraint violation",
				Error:     v.Message,
			}
		}
		// User authority gets a warning only; the request proceeds.
		r.logger.Warn("workspace boundary warning", "cwd", req.Cwd, "space", r.space, "authority", req.Authority)
	}

	switch req.Backend {
	case BackendDialogue:
		return r.handleDialogue(req)
	case BackendTerminal:
		return Result{
			RequestID: req.ID,
			Status:    StatusFail,
			Summary:   "Terminal execution should be handled by Console",
			Error:     "terminal backend is handled by the console PTY, not the core",
		}
	case BackendRoblox:
		return Result{
			RequestID: req.ID,
			Status:    StatusFail,
			Summary:   "Roblox backend not implemented",
			Error:     "roblox backend is not yet implemented",
		}
	case BackendX:
		return Result{
			RequestID: req.ID,
			Status:    StatusFail,
			Summary:   "X backend not implemented",
			Error:     "x backend is not yet implemented",
		}
	default:
		return Result{
			RequestID: req.ID,
			Status:    StatusFail,
			Summary:   "Unknown backend: " + string(req.Backend),
			Error:     "backend '" + string(req.Backend) + "' is not supported",
		}
	}
}

func (r *Router) handleDialogue(req Request) (res Result) {
	if r.dialogue == nil {
		return Result{
			RequestID: req.ID,
			Status:    StatusFail,
			Summary:   "Dialogue handler not configured",
			Error:     "no dialogue handler registered",
		}
	}
	// Route must stay total even if the handler misbehaves.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("dialogue handler panicked", "panic", rec)
			res = Result{
				RequestID: req.ID,
				Status:    StatusFail,
				Summary:   "Dialogue execution failed",
				Error:     "dialogue handler panicked",
			}
		}
	}()
	return r.dialogue(req)
}
