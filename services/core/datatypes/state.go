// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the durable state document and the wire types
// shared by the core service: the mission plan tree (purpose -> goals ->
// tasks), the transient action/result records, and the request/response
// payloads crossing the HTTP boundary.
package datatypes

import "encoding/json"

// Phase is the current stage of the transient Action. The empty phase means
// "no action pending" (idle).
type Phase string

const (
	PhaseApproving             Phase = "approving"
	PhaseExecuting             Phase = "executing"
	PhaseAwaitingContinue      Phase = "awaiting_continue"
	PhaseAwaitingPurpose       Phase = "awaiting_purpose"
	PhaseAwaitingPurposeType   Phase = "awaiting_purpose_type"
	PhaseAwaitingPurposeOK     Phase = "awaiting_purpose_confirm"
	PhaseAwaitingGoalsConfirm  Phase = "awaiting_goals_confirm"
	PhaseAwaitingTasksConfirm  Phase = "awaiting_tasks_confirm"
	PhaseAwaitingGoalComplete  Phase = "awaiting_goal_complete"
	PhaseAwaitingTaskFail      Phase = "awaiting_task_fail"
)

// Pauses reports whether the autonomous loop must wait for an external
// response while this phase is active. Every non-empty phase pauses the loop.
func (p Phase) Pauses() bool {
	return p != ""
}

// Status is the lifecycle state of a Goal or Task.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDone    Status = "done"
	StatusFail    Status = "fail"
)

// PurposeType distinguishes purposes with a completion point from recurring
// ones. The empty value means "not yet chosen by the operator".
type PurposeType string

const (
	PurposeFinite  PurposeType = "finite"
	PurposeOngoing PurposeType = "ongoing"
)

// MarshalJSON renders the unset purpose type as null so /state readers see
// "not chosen" rather than an empty string.
func (p PurposeType) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *PurposeType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = PurposeType(s)
	return nil
}

// Task is a single-cycle unit of executable work under a goal.
type Task struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Trigger  string `json:"trigger,omitempty"`
	Response string `json:"response,omitempty"`
	// Feedback is operator-supplied context attached on retry-with-context.
	Feedback string `json:"feedback,omitempty"`
}

// Goal is a decomposable milestone toward the purpose.
type Goal struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Status Status  `json:"status"`
	Tasks  []*Task `json:"tasks"`
}

// Mission is the singleton plan root.
type Mission struct {
	Purpose     string      `json:"purpose"`
	PurposeType PurposeType `json:"purpose_type"`
	Goals       []*Goal     `json:"goals"`
}

// Input records the last inbound message and its derivation.
type Input struct {
	Source    string `json:"source"`
	Authority string `json:"authority"`
	Text      string `json:"text"`
}

// Thought is the last judgment/intent pair produced by the core.
type Thought struct {
	Judgment string `json:"judgment"`
	Intent   string `json:"intent"`
}

// Action is the transient record of the current phase and the pending human
// decision. Data is a phase-specific payload (see GoalsPayload and friends);
// it is kept as raw JSON so the document survives process restarts without
// losing the variant.
type Action struct {
	Phase   Phase           `json:"phase"`
	Summary string          `json:"summary"`
	Command string          `json:"command,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Result is the last completed outcome, overwritten on every resolution.
type Result struct {
	Status  Status `json:"status"`
	Summary string `json:"summary"`
}

// TokenUsage is the daily cognition token counter persisted with the state.
type TokenUsage struct {
	Used int    `json:"used"`
	Date string `json:"date"`
}

// State is the full durable document: one JSON file, full overwrite on save.
type State struct {
	Input      *Input      `json:"input"`
	Mission    Mission     `json:"mission"`
	Thought    *Thought    `json:"thought"`
	Action     *Action     `json:"action"`
	Result     *Result     `json:"result"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
}

// NewState returns the empty default document used when no state file exists.
func NewState() *State {
	return &State{
		Mission: Mission{Goals: []*Goal{}},
	}
}

// Clone returns a deep copy. Snapshots handed outside the state lock must
// never alias the live document.
func (s *State) Clone() *State {
	out := *s
	if s.Input != nil {
		in := *s.Input
		out.Input = &in
	}
	if s.Thought != nil {
		th := *s.Thought
		out.Thought = &th
	}
	if s.Action != nil {
		ac := *s.Action
		if s.Action.Data != nil {
			ac.Data = append(json.RawMessage(nil), s.Action.Data...)
		}
		out.Action = &ac
	}
	if s.Result != nil {
		re := *s.Result
		out.Result = &re
	}
	if s.TokenUsage != nil {
		tu := *s.TokenUsage
		out.TokenUsage = &tu
	}
	out.Mission.Goals = make([]*Goal, len(s.Mission.Goals))
	for i, g := range s.Mission.Goals {
		gc := *g
		gc.Tasks = make([]*Task, len(g.Tasks))
		for j, t := range g.Tasks {
			tc := *t
			gc.Tasks[j] = &tc
		}
		out.Mission.Goals[i] = &gc
	}
	return &out
}

// Goal returns the goal with the given id, or nil.
func (s *State) Goal(id string) *Goal {
	for _, g := range s.Mission.Goals {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// ActiveGoal returns the first goal with status active, or nil. List order is
// authoritative; the first active entry wins.
func (s *State) ActiveGoal() *Goal {
	for _, g := range s.Mission.Goals {
		if g.Status == StatusActive {
			return g
		}
	}
	return nil
}

// ActiveTask returns the single active task across the whole mission, or nil.
func (s *State) ActiveTask() *Task {
	for _, g := range s.Mission.Goals {
		for _, t := range g.Tasks {
			if t.Status == StatusActive {
				return t
			}
		}
	}
	return nil
}

// MarkActiveTask sets the status of the currently active task, if any.
func (s *State) MarkActiveTask(status Status) {
	if t := s.ActiveTask(); t != nil {
		t.Status = status
	}
}

// Task returns the task with the given id and its owning goal, or nils.
func (s *State) Task(id string) (*Goal, *Task) {
	for _, g := range s.Mission.Goals {
		for _, t := range g.Tasks {
			if t.ID == id {
				return g, t
			}
		}
	}
	return nil, nil
}

// SetAction replaces the transient action record.
func (s *State) SetAction(phase Phase, summary string) {
	s.Action = &Action{Phase: phase, Summary: summary}
}

// SetThought replaces the judgment/intent record.
func (s *State) SetThought(judgment, intent string) {
	s.Thought = &Thought{Judgment: judgment, Intent: intent}
}

// SetResult overwrites the last outcome.
func (s *State) SetResult(status Status, summary string) {
	s.Result = &Result{Status: status, Summary: summary}
}

// ClearAction drops the pending action, returning the mission to idle.
func (s *State) ClearAction() {
	s.Action = nil
}

// ClearResult drops the last outcome.
func (s *State) ClearResult() {
	s.Result = nil
}

// Phase returns the current action phase, or the empty phase when idle.
func (s *State) Phase() Phase {
	if s.Action == nil {
		return ""
	}
	return s.Action.Phase
}

// AddGoal appends a goal in the given status.
func (s *State) AddGoal(id, name string, status Status) *Goal {
	g := &Goal{ID: id, Name: name, Status: status, Tasks: []*Task{}}
	s.Mission.Goals = append(s.Mission.Goals, g)
	return g
}

// AddTask appends a pending task to the goal with the given id. Returns nil
// when the goal does not exist.
func (s *State) AddTask(goalID string, task *Task) *Task {
	g := s.Goal(goalID)
	if g == nil {
		return nil
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	g.Tasks = append(g.Tasks, task)
	return task
}
