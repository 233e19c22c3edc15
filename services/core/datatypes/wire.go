// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ThinkRequest is the single conversational entry point payload. Every
// channel adapter funnels through it.
type ThinkRequest struct {
	Source    string `json:"source" binding:"required"`
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// ThinkResponse is the core's answer to a think request.
type ThinkResponse struct {
	Response      string    `json:"response"`
	Source        string    `json:"source"`
	Authority     string    `json:"authority"`
	SessionID     string    `json:"session_id"`
	ResponseID    string    `json:"response_id"`
	Intent        string    `json:"intent"`
	Route         string    `json:"route"`
	NeedsApproval bool      `json:"needs_approval"`
	Proposal      *Proposal `json:"proposal"`
}

// Proposal is an action suggested by intent classification; command is a
// concrete shell command when intent is "action".
type Proposal struct {
	Command string `json:"command"`
	Summary string `json:"summary"`
}

// sourceAuthority maps inbound channels to a trust level. Unknown sources
// are treated as public.
var sourceAuthority = map[string]string{
	"dialogue": "user",
	"terminal": "user",
	"discord":  "user",
	"roblox":   "public",
	"x":        "public",
}

// SourceAuthority derives the authority of a think request from its source.
func SourceAuthority(source string) string {
	if a, ok := sourceAuthority[source]; ok {
		return a
	}
	return "public"
}

// PurposeRequest sets the mission purpose directly.
type PurposeRequest struct {
	Purpose string `json:"purpose" binding:"required"`
}

// GoalRequest adds a goal to the plan manually.
type GoalRequest struct {
	GoalID string `json:"goal_id" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// TaskRequest adds a task to a goal manually.
type TaskRequest struct {
	GoalID string `json:"goal_id" binding:"required"`
	TaskID string `json:"task_id" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// RetryTaskRequest re-activates a specific task.
type RetryTaskRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// CompleteRequest reports the outcome of an executing action.
type CompleteRequest struct {
	Success *bool  `json:"success"`
	Summary string `json:"summary"`
}

// ConfigUpdate is the partial admin configuration update; only non-nil
// fields are applied.
type ConfigUpdate struct {
	Model        *string  `json:"model"`
	Temperature  *float64 `json:"temperature"`
	SystemPrompt *string  `json:"system_prompt"`
	Language     *string  `json:"language"`
	Theme        *string  `json:"theme"`
}

// ObservationRequest feeds terminal output back into a session, optionally
// asking the cognition provider to verify it against the active task.
type ObservationRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Content   string `json:"content"`
	Command   string `json:"command"`
	Output    string `json:"output"`
	Label     string `json:"label"`
}

// ConsoleLogRequest appends one console transcript line.
type ConsoleLogRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	RunID      string `json:"run_id"`
	Seq        *int   `json:"seq"`
	Kind       string `json:"kind" binding:"required"`
	Text       string `json:"text" binding:"required"`
	Pane       string `json:"pane"`
	ClientTime string `json:"client_time"`
}

// RobloxRequest is the workers-compatible game channel payload.
type RobloxRequest struct {
	Prompt             string `json:"prompt"`
	PreviousResponseID string `json:"previous_response_id"`
}

// RobloxResponse mirrors the legacy workers reply shape.
type RobloxResponse struct {
	Success    bool   `json:"success"`
	Text       string `json:"text"`
	ResponseID string `json:"response_id"`
	Error      string `json:"error,omitempty"`
}
