// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package core assembles the orchestrator: configuration, durable state,
// sessions, cognition, the mission machine, the autonomous loop, the exec
// router and the event broadcaster, built once at startup and passed by
// handle into the HTTP layer. There are no package-level singletons.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/config"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
	"github.com/AleutianAI/AvatarCore/services/core/events"
	"github.com/AleutianAI/AvatarCore/services/core/execrouter"
	"github.com/AleutianAI/AvatarCore/services/core/loop"
	"github.com/AleutianAI/AvatarCore/services/core/mission"
	"github.com/AleutianAI/AvatarCore/services/core/observability"
	"github.com/AleutianAI/AvatarCore/services/core/session"
	"github.com/AleutianAI/AvatarCore/services/core/state"
)

// Options configure construction. Client overrides the cognition provider,
// used by tests to avoid network calls.
type Options struct {
	ConfigPath string
	DataDir    string
	APIKey     string
	Client     cognition.Client
	Metrics    *observability.CoreMetrics
	Logger     *slog.Logger
}

// Core is the application context handed to the HTTP layer.
type Core struct {
	Config      *config.Provider
	State       *state.Manager
	Sessions    *session.Store
	Responses   *session.ResponseMap
	Machine     *mission.Machine
	Scheduler   *loop.Scheduler
	Router      *execrouter.Router
	Broadcaster *events.Broadcaster
	Metrics     *observability.CoreMetrics
	APIKey      string
	StartedAt   time.Time

	logger *slog.Logger
}

// New builds the full application context. The shared API key is mandatory:
// a core without one must not start.
func New(opts Options) (*Core, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("AVATAR_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("AVATAR_API_KEY is not set")
	}

	provider, err := config.NewProvider(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg := provider.Get()

	store := state.NewStore(opts.DataDir, logger)
	manager, err := state.NewManager(store)
	if err != nil {
		return nil, err
	}

	broadcaster := events.NewBroadcaster(logger)
	store.SetEventSink(broadcaster.Publish)

	client := opts.Client
	if client == nil {
		oc, err := cognition.NewOpenAIClient()
		if err != nil {
			return nil, err
		}
		client = oc
	}
	pool := cognition.NewPool(client, 0, 0, logger)

	ttl := time.Duration(cfg.SessionTTL) * time.Second

	// The session factory renders a fresh system prompt from live state, so
	// it needs the machine; the machine needs the sessions. Break the cycle
	// with a late-bound pointer.
	var machine *mission.Machine
	sessions := session.NewStore(ttl, func() *cognition.Chat {
		return cognition.NewChat(machine.SystemPrompt())
	})
	machine = mission.New(manager, provider, sessions, pool, opts.Metrics, logger)
	scheduler := loop.NewScheduler(machine, opts.Metrics, logger)

	router := execrouter.NewRouter(cfg.WorkspaceRoot(), func(req execrouter.Request) execrouter.Result {
		return dialogueBackend(machine, req)
	}, logger)

	return &Core{
		Config:      provider,
		State:       manager,
		Sessions:    sessions,
		Responses:   session.NewResponseMap(ttl),
		Machine:     machine,
		Scheduler:   scheduler,
		Router:      router,
		Broadcaster: broadcaster,
		Metrics:     opts.Metrics,
		APIKey:      apiKey,
		StartedAt:   time.Now(),
		logger:      logger,
	}, nil
}

// Start launches the autonomous loop and the config hot-reload watcher.
func (c *Core) Start(ctx context.Context) error {
	if err := config.Watch(ctx, c.Config, c.logger, c.Sessions.ResetAll); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	c.Scheduler.Start()
	return nil
}

// Stop shuts the loop down with its bounded join.
func (c *Core) Stop() {
	c.Scheduler.Stop()
}

// dialogueBackend forwards a dialogue exec request into the conversational
// entry point.
func dialogueBackend(machine *mission.Machine, req execrouter.Request) execrouter.Result {
	started := time.Now()
	content, _ := req.Params["content"].(string)
	if content == "" {
		return execrouter.Result{
			RequestID: req.ID,
			Status:    execrouter.StatusFail,
			Summary:   "No content provided",
			Error:     "params.content is required for dialogue",
		}
	}
	sessionID, _ := req.Params["session_id"].(string)
	if sessionID == "" {
		sessionID = "default"
	}

	resp, err := machine.Think(context.Background(), datatypes.ThinkRequest{
		Source:    "dialogue",
		Text:      content,
		SessionID: sessionID,
	})
	if err != nil {
		return execrouter.Result{
			RequestID: req.ID,
			Status:    execrouter.StatusFail,
			Summary:   "Dialogue execution failed",
			Error:     err.Error(),
		}
	}
	summary := resp.Response
	if runes := []rune(summary); len(runes) > 100 {
		summary = string(runes[:100])
	}
	return execrouter.Result{
		RequestID:  req.ID,
		Status:     execrouter.StatusDone,
		Summary:    summary,
		DurationMs: time.Since(started).Milliseconds(),
	}
}
