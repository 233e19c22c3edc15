// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mission

import (
	"context"
	"strings"
	"testing"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

func think(t *testing.T, fm *fakeClientMachine, text string) *datatypes.ThinkResponse {
	t.Helper()
	resp, err := fm.Think(context.Background(), datatypes.ThinkRequest{
		Source:    "dialogue",
		Text:      text,
		SessionID: "console",
	})
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	return resp
}

func TestAnswerKeywords(t *testing.T) {
	yes := []string{"y", "Y", "yes", " YES ", "はい"}
	for _, s := range yes {
		if !isYes(s) {
			t.Errorf("isYes(%q) = false", s)
		}
	}
	no := []string{"n", "no", "NO", "いいえ"}
	for _, s := range no {
		if !isNo(s) {
			t.Errorf("isNo(%q) = false", s)
		}
	}
	if isYes("yeah") || isNo("nope") {
		t.Error("loose matches must not count")
	}
}

func TestHandlePurposeType(t *testing.T) {
	t.Run("yes selects finite", func(t *testing.T) {
		fm := newTestMachine(t, "")
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.SetAction(datatypes.PhaseAwaitingPurposeType, "Purpose type check")
		})
		resp := think(t, fm, "y")
		if resp.ResponseID != "purpose_type_set" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if snap.Mission.PurposeType != datatypes.PurposeFinite {
			t.Errorf("purpose type = %q", snap.Mission.PurposeType)
		}
		if snap.Action != nil {
			t.Error("phase must clear")
		}
	})

	t.Run("no selects ongoing", func(t *testing.T) {
		fm := newTestMachine(t, "")
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Tend the garden"
			st.SetAction(datatypes.PhaseAwaitingPurposeType, "Purpose type check")
		})
		think(t, fm, "no")
		if got := fm.manager.Snapshot().Mission.PurposeType; got != datatypes.PurposeOngoing {
			t.Errorf("purpose type = %q", got)
		}
	})

	t.Run("free text is rejected without state change", func(t *testing.T) {
		fm := newTestMachine(t, "")
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.SetAction(datatypes.PhaseAwaitingPurposeType, "Purpose type check")
		})
		resp := think(t, fm, "maybe")
		if resp.ResponseID != "purpose_type_invalid" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if snap.Mission.PurposeType != "" || snap.Phase() != datatypes.PhaseAwaitingPurposeType {
			t.Error("invalid answer must leave the phase pending")
		}
	})
}

func seedGoalsProposal(t *testing.T, fm *fakeClientMachine, drafts ...string) {
	t.Helper()
	fm.seed(t, func(st *datatypes.State) {
		st.Mission.Purpose = "Write a blog"
		st.Mission.PurposeType = datatypes.PurposeFinite
		goals := make([]datatypes.GoalDraft, 0, len(drafts))
		for _, name := range drafts {
			goals = append(goals, datatypes.GoalDraft{Name: name})
		}
		st.SetAction(datatypes.PhaseAwaitingGoalsConfirm, "Goals proposed")
		if err := st.Action.SetData(datatypes.GoalsPayload{Goals: goals}); err != nil {
			t.Fatal(err)
		}
	})
}

func TestHandleGoalsConfirm(t *testing.T) {
	t.Run("approve commits with sequential ids", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seedGoalsProposal(t, fm, "Research", "Draft")
		resp := think(t, fm, "y")
		if resp.ResponseID != "goals_confirmed" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		goals := snap.Mission.Goals
		if len(goals) != 2 || goals[0].ID != "G1" || goals[1].ID != "G2" {
			t.Fatalf("goals = %+v", goals)
		}
		if goals[0].Status != datatypes.StatusActive || goals[1].Status != datatypes.StatusPending {
			t.Errorf("only the first approved goal activates: %+v", goals)
		}
	})

	t.Run("approve keeps ids monotonic across rounds", func(t *testing.T) {
		fm := newTestMachine(t, "")
		fm.seed(t, func(st *datatypes.State) {
			st.AddGoal("G1", "Existing", datatypes.StatusActive)
		})
		seedGoalsProposal(t, fm, "New goal")
		think(t, fm, "y")
		snap := fm.manager.Snapshot()
		if snap.Mission.Goals[1].ID != "G2" {
			t.Errorf("new goal id = %q", snap.Mission.Goals[1].ID)
		}
		if snap.Mission.Goals[1].Status != datatypes.StatusPending {
			t.Error("a goal must stay pending while another is active")
		}
	})

	t.Run("approve on empty payload mutates nothing", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seedGoalsProposal(t, fm)
		resp := think(t, fm, "y")
		if resp.ResponseID != "goals_empty" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if len(snap.Mission.Goals) != 0 || snap.Phase() != datatypes.PhaseAwaitingGoalsConfirm {
			t.Error("empty approval must leave everything pending")
		}
	})

	t.Run("no re-proposes without feedback", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seedGoalsProposal(t, fm, "Research")
		fm.client.script(`{"goals": [{"name": "Better research"}]}`)
		resp := think(t, fm, "n")
		if resp.ResponseID != "goals_retry" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		if got := fm.manager.Snapshot().Phase(); got != datatypes.PhaseAwaitingGoalsConfirm {
			t.Errorf("phase = %q", got)
		}
	})

	t.Run("free text re-proposes with feedback", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seedGoalsProposal(t, fm, "Research")
		fm.client.script(`{"goals": [{"name": "Shorter goals"}]}`)
		think(t, fm, "make them shorter")
		found := false
		for _, msg := range fm.client.messages {
			if strings.Contains(msg, "make them shorter") {
				found = true
			}
		}
		if !found {
			t.Error("operator feedback must reach the proposal prompt")
		}
	})
}

func TestHandleTasksConfirm(t *testing.T) {
	seedTasksProposal := func(t *testing.T, fm *fakeClientMachine) {
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.Mission.PurposeType = datatypes.PurposeFinite
			st.AddGoal("G1", "Research", datatypes.StatusActive)
			st.SetAction(datatypes.PhaseAwaitingTasksConfirm, "Tasks proposed")
			if err := st.Action.SetData(datatypes.TasksPayload{
				GoalID: "G1",
				Tasks: []datatypes.TaskDraft{
					{Name: "Collect sources", Trigger: "morning", Response: "search"},
					{Name: "Summarize"},
				},
			}); err != nil {
				t.Fatal(err)
			}
		})
	}

	t.Run("approve commits goal-scoped ids", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seedTasksProposal(t, fm)
		resp := think(t, fm, "はい")
		if resp.ResponseID != "tasks_confirmed" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		tasks := snap.Goal("G1").Tasks
		if len(tasks) != 2 || tasks[0].ID != "G1-T1" || tasks[1].ID != "G1-T2" {
			t.Fatalf("tasks = %+v", tasks)
		}
		if tasks[0].Trigger != "morning" || tasks[0].Response != "search" {
			t.Errorf("trigger/response lost: %+v", tasks[0])
		}
		if tasks[0].Status != datatypes.StatusPending {
			t.Errorf("approved tasks start pending, got %q", tasks[0].Status)
		}
	})

	t.Run("vanished goal just clears the action", func(t *testing.T) {
		fm := newTestMachine(t, "")
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.Mission.PurposeType = datatypes.PurposeFinite
			st.SetAction(datatypes.PhaseAwaitingTasksConfirm, "Tasks proposed")
			if err := st.Action.SetData(datatypes.TasksPayload{
				GoalID: "G9",
				Tasks:  []datatypes.TaskDraft{{Name: "Orphan"}},
			}); err != nil {
				t.Fatal(err)
			}
		})
		think(t, fm, "y")
		snap := fm.manager.Snapshot()
		if snap.Action != nil {
			t.Error("action must clear even when the goal is gone")
		}
		if len(snap.Mission.Goals) != 0 {
			t.Error("no goal must be invented")
		}
	})
}

func TestHandleGoalComplete(t *testing.T) {
	seed := func(t *testing.T, fm *fakeClientMachine) {
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.Mission.PurposeType = datatypes.PurposeFinite
			g := st.AddGoal("G1", "Research", datatypes.StatusActive)
			st.AddGoal("G2", "Draft", datatypes.StatusPending)
			st.AddTask(g.ID, &datatypes.Task{ID: "G1-T1", Name: "Done task", Status: datatypes.StatusDone})
			st.SetAction(datatypes.PhaseAwaitingGoalComplete, "Goal completion check")
			if err := st.Action.SetData(datatypes.GoalRefPayload{GoalID: "G1"}); err != nil {
				t.Fatal(err)
			}
		})
	}

	t.Run("yes finishes and activates the next goal", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		resp := think(t, fm, "y")
		if resp.ResponseID != "goal_complete_yes" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if snap.Goal("G1").Status != datatypes.StatusDone || snap.Goal("G2").Status != datatypes.StatusActive {
			t.Errorf("goals = %+v", snap.Mission.Goals)
		}
	})

	t.Run("no proposes additional tasks", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		fm.client.script(`{"tasks": [{"name": "More digging"}, {"name": "Cross-check"}]}`)
		resp := think(t, fm, "n")
		if resp.ResponseID != "goal_complete_no" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		if got := fm.manager.Snapshot().Phase(); got != datatypes.PhaseAwaitingTasksConfirm {
			t.Errorf("phase = %q", got)
		}
	})
}

func TestHandleTaskFail(t *testing.T) {
	seed := func(t *testing.T, fm *fakeClientMachine) {
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.Mission.PurposeType = datatypes.PurposeFinite
			g := st.AddGoal("G1", "Research", datatypes.StatusActive)
			st.AddTask(g.ID, &datatypes.Task{ID: "G1-T1", Name: "Broken task", Status: datatypes.StatusActive})
			st.SetAction(datatypes.PhaseAwaitingTaskFail, "Task failed")
			if err := st.Action.SetData(datatypes.TaskFailPayload{TaskID: "G1-T1", Summary: "exit 1"}); err != nil {
				t.Fatal(err)
			}
		})
	}

	t.Run("retry resets to pending", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		resp := think(t, fm, "r")
		if resp.ResponseID != "task_fail_retry" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		_, task := fm.manager.Snapshot().Task("G1-T1")
		if task.Status != datatypes.StatusPending || task.Feedback != "" {
			t.Errorf("task = %+v", task)
		}
	})

	t.Run("skip marks fail", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		resp := think(t, fm, "スキップ")
		if resp.ResponseID != "task_fail_skip" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		_, task := fm.manager.Snapshot().Task("G1-T1")
		if task.Status != datatypes.StatusFail {
			t.Errorf("task status = %q", task.Status)
		}
	})

	t.Run("free text retries with context", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		resp := think(t, fm, "use the backup mirror")
		if resp.ResponseID != "task_fail_context" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		_, task := fm.manager.Snapshot().Task("G1-T1")
		if task.Status != datatypes.StatusPending || task.Feedback != "use the backup mirror" {
			t.Errorf("task = %+v", task)
		}
	})
}

func TestHandlePurposeConfirm(t *testing.T) {
	seed := func(t *testing.T, fm *fakeClientMachine) {
		fm.seed(t, func(st *datatypes.State) {
			st.Mission.Purpose = "Write a blog"
			st.Mission.PurposeType = datatypes.PurposeFinite
			st.AddGoal("G1", "Research", datatypes.StatusDone)
			st.SetAction(datatypes.PhaseAwaitingPurposeOK, "Purpose completion check")
		})
	}

	t.Run("yes clears the mission", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		resp := think(t, fm, "y")
		if resp.ResponseID != "purpose_confirm" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if snap.Mission.Purpose != "" || len(snap.Mission.Goals) != 0 {
			t.Errorf("mission = %+v", snap.Mission)
		}
	})

	t.Run("no keeps the purpose and re-proposes goals", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		fm.client.script(`{"goals": [{"name": "Polish"}]}`)
		resp := think(t, fm, "n")
		if resp.ResponseID != "purpose_continue" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if snap.Mission.Purpose != "Write a blog" {
			t.Errorf("purpose = %q", snap.Mission.Purpose)
		}
		if snap.Phase() != datatypes.PhaseAwaitingGoalsConfirm {
			t.Errorf("phase = %q", snap.Phase())
		}
	})

	t.Run("free text becomes the new purpose", func(t *testing.T) {
		fm := newTestMachine(t, "")
		seed(t, fm)
		resp := think(t, fm, "Learn woodworking")
		if resp.ResponseID != "purpose_new" {
			t.Errorf("response_id = %q", resp.ResponseID)
		}
		snap := fm.manager.Snapshot()
		if snap.Mission.Purpose != "Learn woodworking" || snap.Mission.PurposeType != "" {
			t.Errorf("mission = %+v", snap.Mission)
		}
		if len(snap.Mission.Goals) != 0 {
			t.Error("old goals must be dropped")
		}
	})
}
