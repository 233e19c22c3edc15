// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st.Mission.Purpose != "" || len(st.Mission.Goals) != 0 {
		t.Errorf("default state not empty: %+v", st)
	}
	if st.Mission.Goals == nil {
		t.Error("Goals must be an empty slice, not nil")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	st := datatypes.NewState()
	st.Mission.Purpose = "Write a blog"
	st.Mission.PurposeType = datatypes.PurposeFinite
	g := st.AddGoal("G1", "Research the topic", datatypes.StatusActive)
	st.AddTask(g.ID, &datatypes.Task{ID: "G1-T1", Name: "Collect sources", Status: datatypes.StatusPending})
	st.SetAction(datatypes.PhaseAwaitingGoalsConfirm, "Goals proposed: 1")
	if err := st.Action.SetData(datatypes.GoalsPayload{Goals: []datatypes.GoalDraft{{Name: "Draft"}}}); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}
	st.SetThought("judgment", "intent")
	st.SetResult(datatypes.StatusDone, "ok")
	st.TokenUsage = &datatypes.TokenUsage{Used: 42, Date: "2026-08-28"}

	if err := store.Save(st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Mission.Purpose != "Write a blog" || loaded.Mission.PurposeType != datatypes.PurposeFinite {
		t.Errorf("mission mismatch: %+v", loaded.Mission)
	}
	if len(loaded.Mission.Goals) != 1 || len(loaded.Mission.Goals[0].Tasks) != 1 {
		t.Fatalf("plan tree mismatch: %+v", loaded.Mission.Goals)
	}
	if loaded.Phase() != datatypes.PhaseAwaitingGoalsConfirm {
		t.Errorf("phase = %q", loaded.Phase())
	}
	var payload datatypes.GoalsPayload
	if err := loaded.Action.DecodeData(&payload); err != nil {
		t.Fatalf("DecodeData failed: %v", err)
	}
	if len(payload.Goals) != 1 || payload.Goals[0].Name != "Draft" {
		t.Errorf("payload did not survive the round trip: %+v", payload)
	}
	if loaded.TokenUsage == nil || loaded.TokenUsage.Used != 42 {
		t.Errorf("token usage mismatch: %+v", loaded.TokenUsage)
	}
}

func TestLoadCorruptFileErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(dir, nil).Load(); err == nil {
		t.Error("corrupt state file must error, not silently reset")
	}
}

func TestLoadEmptyFileReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := NewStore(dir, nil).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st.Mission.Purpose != "" {
		t.Errorf("state = %+v", st)
	}
}

func TestRecentEventsCursorAndLimit(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	for i := 0; i < 5; i++ {
		if err := store.AppendEvent("output", map[string]any{"n": i}); err != nil {
			t.Fatalf("AppendEvent failed: %v", err)
		}
	}

	events, err := store.RecentEvents("", 3)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len = %d", len(events))
	}
	// Newest entries win; the first two must have been dropped.
	if events[len(events)-1].Fields["n"].(float64) != 4 {
		t.Errorf("tail event = %+v", events[len(events)-1])
	}

	// A cursor at the newest timestamp excludes everything at or before it.
	after := events[len(events)-1].Time
	newer, err := store.RecentEvents(after, 10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(newer) != 0 {
		t.Errorf("expected no events after %q, got %d", after, len(newer))
	}
}

func TestRecentEventsSkipsGarbageLines(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	if err := store.AppendEvent("output", map[string]any{"a": 1}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("garbage line\n")
	f.Close()
	if err := store.AppendEvent("output", map[string]any{"a": 2}); err != nil {
		t.Fatal(err)
	}

	events, err := store.RecentEvents("", 10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len = %d, torn line must be skipped", len(events))
	}
}

func TestRecentEventsMissingLog(t *testing.T) {
	events, err := NewStore(t.TempDir(), nil).RecentEvents("", 10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("expected empty slice, got %#v", events)
	}
}

func TestEventSinkInvoked(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	var got []Event
	store.SetEventSink(func(ev Event) { got = append(got, ev) })

	if err := store.AppendEvent("thought", map[string]any{"judgment": "x"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Type != "thought" {
		t.Errorf("sink calls = %+v", got)
	}
}

func TestManagerUpdateErrorSavesNothing(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	mgr, err := NewManager(store)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	uerr := mgr.Update(func(st *datatypes.State) error {
		st.Mission.Purpose = "should not persist"
		return os.ErrInvalid
	})
	if uerr == nil {
		t.Fatal("expected the fn error back")
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json")); !os.IsNotExist(err) {
		t.Error("failed update must not write state.json")
	}
}

func TestManagerSnapshotIsDeepCopy(t *testing.T) {
	mgr, err := NewManager(NewStore(t.TempDir(), nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.Update(func(st *datatypes.State) error {
		g := st.AddGoal("G1", "Goal", datatypes.StatusActive)
		st.AddTask(g.ID, &datatypes.Task{ID: "G1-T1", Name: "Task", Status: datatypes.StatusActive})
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	snap := mgr.Snapshot()
	snap.Mission.Goals[0].Tasks[0].Status = datatypes.StatusFail
	snap.Mission.Purpose = "mutated"

	fresh := mgr.Snapshot()
	if fresh.Mission.Purpose == "mutated" {
		t.Error("snapshot aliases the live purpose")
	}
	if fresh.Mission.Goals[0].Tasks[0].Status != datatypes.StatusActive {
		t.Error("snapshot aliases the live task")
	}
}
