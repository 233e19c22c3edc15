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

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleState(t *testing.T) *State {
	t.Helper()
	s := NewState()
	s.Mission.Purpose = "Write a blog"
	s.Mission.PurposeType = PurposeFinite
	g := s.AddGoal("G1", "Research", StatusActive)
	s.AddTask(g.ID, &Task{ID: "G1-T1", Name: "Collect sources", Status: StatusActive})
	s.AddGoal("G2", "Draft", StatusPending)
	s.Input = &Input{Source: "dialogue", Authority: "user", Text: "hi"}
	s.SetThought("judgment", "intent")
	s.SetAction(PhaseAwaitingGoalsConfirm, "Goals proposed")
	if err := s.Action.SetData(GoalsPayload{Goals: []GoalDraft{{Name: "Polish"}}}); err != nil {
		t.Fatal(err)
	}
	s.SetResult(StatusDone, "ok")
	s.TokenUsage = &TokenUsage{Used: 10, Date: "2026-08-28"}
	return s
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleState(t)
	clone := orig.Clone()

	clone.Mission.Purpose = "mutated"
	clone.Mission.Goals[0].Status = StatusFail
	clone.Mission.Goals[0].Tasks[0].Name = "mutated"
	clone.Input.Text = "mutated"
	clone.Thought.Intent = "mutated"
	clone.Action.Data[0] = 'X'
	clone.Result.Summary = "mutated"
	clone.TokenUsage.Used = 999

	if orig.Mission.Purpose != "Write a blog" {
		t.Error("purpose aliased")
	}
	if orig.Mission.Goals[0].Status != StatusActive {
		t.Error("goal aliased")
	}
	if orig.Mission.Goals[0].Tasks[0].Name != "Collect sources" {
		t.Error("task aliased")
	}
	if orig.Input.Text != "hi" || orig.Thought.Intent != "intent" {
		t.Error("input/thought aliased")
	}
	if orig.Action.Data[0] == 'X' {
		t.Error("action data aliased")
	}
	if orig.Result.Summary != "ok" || orig.TokenUsage.Used != 10 {
		t.Error("result/usage aliased")
	}
}

func TestPhasePauses(t *testing.T) {
	if Phase("").Pauses() {
		t.Error("idle must not pause")
	}
	for _, p := range []Phase{
		PhaseApproving, PhaseExecuting, PhaseAwaitingContinue,
		PhaseAwaitingPurpose, PhaseAwaitingPurposeType, PhaseAwaitingPurposeOK,
		PhaseAwaitingGoalsConfirm, PhaseAwaitingTasksConfirm,
		PhaseAwaitingGoalComplete, PhaseAwaitingTaskFail,
	} {
		if !p.Pauses() {
			t.Errorf("%q must pause", p)
		}
	}
}

func TestActiveGoalFirstWins(t *testing.T) {
	s := NewState()
	s.AddGoal("G1", "first", StatusActive)
	s.AddGoal("G2", "second", StatusActive)
	if got := s.ActiveGoal(); got == nil || got.ID != "G1" {
		t.Errorf("ActiveGoal = %+v", got)
	}
}

func TestActiveTaskAndMark(t *testing.T) {
	s := sampleState(t)
	if got := s.ActiveTask(); got == nil || got.ID != "G1-T1" {
		t.Fatalf("ActiveTask = %+v", got)
	}
	s.MarkActiveTask(StatusDone)
	if s.Mission.Goals[0].Tasks[0].Status != StatusDone {
		t.Error("MarkActiveTask did not apply")
	}
	if s.ActiveTask() != nil {
		t.Error("no task should remain active")
	}
	// No-op without an active task.
	s.MarkActiveTask(StatusFail)
}

func TestTaskLookup(t *testing.T) {
	s := sampleState(t)
	g, task := s.Task("G1-T1")
	if g == nil || g.ID != "G1" || task == nil || task.Name != "Collect sources" {
		t.Errorf("Task lookup = %+v, %+v", g, task)
	}
	if g, task := s.Task("nope"); g != nil || task != nil {
		t.Error("missing task must return nils")
	}
}

func TestAddTaskDefaultsToPending(t *testing.T) {
	s := NewState()
	s.AddGoal("G1", "goal", StatusActive)
	task := s.AddTask("G1", &Task{ID: "G1-T1", Name: "t"})
	if task == nil || task.Status != StatusPending {
		t.Errorf("task = %+v", task)
	}
	if s.AddTask("G9", &Task{ID: "x"}) != nil {
		t.Error("unknown goal must return nil")
	}
}

func TestSetDataRoundTrip(t *testing.T) {
	a := &Action{Phase: PhaseAwaitingTasksConfirm}
	in := TasksPayload{GoalID: "G1", Tasks: []TaskDraft{{Name: "t", Trigger: "tr", Response: "re"}}}
	if err := a.SetData(in); err != nil {
		t.Fatal(err)
	}
	var out TasksPayload
	if err := a.DecodeData(&out); err != nil {
		t.Fatal(err)
	}
	if out.GoalID != "G1" || len(out.Tasks) != 1 || out.Tasks[0].Trigger != "tr" {
		t.Errorf("payload = %+v", out)
	}
}

func TestPurposeTypeWireFormat(t *testing.T) {
	unset, err := json.Marshal(Mission{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(unset), `"purpose_type":null`) {
		t.Errorf("unset mission = %s", unset)
	}

	set, err := json.Marshal(Mission{PurposeType: PurposeFinite})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(set), `"purpose_type":"finite"`) {
		t.Errorf("finite mission = %s", set)
	}

	var m Mission
	if err := json.Unmarshal([]byte(`{"purpose": "p", "purpose_type": null, "goals": []}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.PurposeType != "" {
		t.Errorf("purpose type = %q, null must decode to unset", m.PurposeType)
	}
	if err := json.Unmarshal(set, &m); err != nil {
		t.Fatal(err)
	}
	if m.PurposeType != PurposeFinite {
		t.Errorf("purpose type = %q after round trip", m.PurposeType)
	}
}

func TestSourceAuthority(t *testing.T) {
	tests := map[string]string{
		"dialogue": "user",
		"terminal": "user",
		"discord":  "user",
		"roblox":   "public",
		"x":        "public",
		"unknown":  "public",
	}
	for source, want := range tests {
		if got := SourceAuthority(source); got != want {
			t.Errorf("SourceAuthority(%q) = %q, want %q", source, got, want)
		}
	}
}
