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
	"fmt"
	"strings"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

// Phase-response handlers. Each consumes one operator answer to a pending
// approval question and returns the dialogue reply. An unrecognized answer
// where y/n is required leaves the phase unchanged.

func dialogueReply(sessionID, responseID, text string) *datatypes.ThinkResponse {
	return &datatypes.ThinkResponse{
		Response:   text,
		Source:     "dialogue",
		Authority:  "user",
		SessionID:  sessionID,
		ResponseID: responseID,
		Intent:     "conversation",
		Route:      "dialogue",
	}
}

func isYes(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes", "はい":
		return true
	}
	return false
}

func isNo(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "n", "no", "いいえ":
		return true
	}
	return false
}

func (m *Machine) handlePurposeType(text, sessionID string) *datatypes.ThinkResponse {
	purpose := m.state.Snapshot().Mission.Purpose

	var purposeType datatypes.PurposeType
	switch {
	case isYes(text):
		purposeType = datatypes.PurposeFinite
	case isNo(text):
		purposeType = datatypes.PurposeOngoing
	default:
		return dialogueReply(sessionID, "purpose_type_invalid",
			m.msg("目的タイプは y/n で指定してください。", "Please answer with y/n."))
	}

	err := m.state.Update(func(st *datatypes.State) error {
		st.Mission.PurposeType = purposeType
		st.ClearAction()
		st.SetThought(m.msg("目的タイプ設定", "Purpose type set"),
			fmt.Sprintf("%s -> %s", purpose, purposeType))
		return nil
	})
	if err != nil {
		m.logger.Error("failed to set purpose type", "error", err)
	}
	m.wakeLoop()
	return dialogueReply(sessionID, "purpose_type_set",
		m.msg(fmt.Sprintf("目的タイプを「%s」に設定しました。", purposeType),
			fmt.Sprintf("Purpose type set to %q.", purposeType)))
}

func (m *Machine) handlePurposeConfirm(ctx context.Context, text, sessionID string) *datatypes.ThinkResponse {
	purpose := m.state.Snapshot().Mission.Purpose

	if isYes(text) {
		err := m.state.Update(func(st *datatypes.State) error {
			st.Mission.Purpose = ""
			st.Mission.PurposeType = ""
			st.Mission.Goals = []*datatypes.Goal{}
			st.ClearAction()
			st.SetThought(m.msg("目的達成", "Purpose achieved"),
				fmt.Sprintf("%s: %s", m.msg("ユーザー確認", "User confirmed"), purpose))
			return nil
		})
		if err != nil {
			m.logger.Error("failed to complete purpose", "error", err)
		}
		m.wakeLoop()
		return dialogueReply(sessionID, "purpose_confirm",
			m.msg(fmt.Sprintf("目的「%s」を達成しました。次の目的を設定しますか？", purpose),
				fmt.Sprintf("Purpose %q achieved. Set a new purpose?", purpose)))
	}

	if isNo(text) {
		err := m.state.Update(func(st *datatypes.State) error {
			st.ClearAction()
			st.SetThought(m.msg("目的続行", "Purpose continues"), m.msg("新しい目標を生成", "Generate new goals"))
			return nil
		})
		if err != nil {
			m.logger.Error("failed to continue purpose", "error", err)
		}
		m.proposeGoals(ctx, purpose, m.state.Snapshot().Mission.Goals, "")
		return dialogueReply(sessionID, "purpose_continue",
			m.msg(fmt.Sprintf("目的「%s」の達成に向けて続行します。", purpose),
				fmt.Sprintf("Continuing toward purpose %q.", purpose)))
	}

	// Free text replaces the purpose entirely.
	newPurpose := strings.TrimSpace(text)
	err := m.state.Update(func(st *datatypes.State) error {
		st.Mission.Purpose = newPurpose
		st.Mission.PurposeType = ""
		st.Mission.Goals = []*datatypes.Goal{}
		st.ClearAction()
		st.SetThought(m.msg("新目的設定", "New purpose set"),
			fmt.Sprintf("%s: %s", m.msg("目的", "Purpose"), newPurpose))
		return nil
	})
	if err != nil {
		m.logger.Error("failed to set new purpose", "error", err)
	}
	m.wakeLoop()
	return dialogueReply(sessionID, "purpose_new",
		m.msg(fmt.Sprintf("新しい目的「%s」を設定しました。", newPurpose),
			fmt.Sprintf("New purpose set to %q.", newPurpose)))
}

func (m *Machine) handleGoalsConfirm(ctx context.Context, text, sessionID string) *datatypes.ThinkResponse {
	snap := m.state.Snapshot()

	var payload datatypes.GoalsPayload
	if snap.Action != nil && snap.Action.Data != nil {
		if err := snap.Action.DecodeData(&payload); err != nil {
			m.logger.Error("malformed goals payload", "error", err)
		}
	}

	if isYes(text) {
		if len(payload.Goals) == 0 {
			return dialogueReply(sessionID, "goals_empty",
				m.msg("目標案が空のため承認できません。修正内容を入力してください。",
					"Cannot approve because the goal list is empty. Enter revisions."))
		}
		err := m.state.Update(func(st *datatypes.State) error {
			hasActive := st.ActiveGoal() != nil
			nextIndex := len(st.Mission.Goals) + 1
			for i, g := range payload.Goals {
				status := datatypes.StatusPending
				if !hasActive && i == 0 {
					status = datatypes.StatusActive
					hasActive = true
				}
				st.AddGoal(fmt.Sprintf("G%d", nextIndex), g.Name, status)
				nextIndex++
			}
			st.ClearAction()
			st.SetThought(m.msg("目標承認", "Goals approved"), fmt.Sprintf("%d", len(payload.Goals)))
			return nil
		})
		if err != nil {
			m.logger.Error("failed to confirm goals", "error", err)
		}
		m.wakeLoop()
		return dialogueReply(sessionID, "goals_confirmed", m.msg("目標を確定しました。", "Goals confirmed."))
	}

	feedback := ""
	if !isNo(text) {
		feedback = strings.TrimSpace(text)
	}
	err := m.state.Update(func(st *datatypes.State) error {
		st.ClearAction()
		intent := feedback
		if intent == "" {
			intent = m.msg("再生成", "Regenerate")
		}
		st.SetThought(m.msg("目標再提案", "Goals re-proposed"), intent)
		return nil
	})
	if err != nil {
		m.logger.Error("failed to clear goals proposal", "error", err)
	}
	snap = m.state.Snapshot()
	m.proposeGoals(ctx, snap.Mission.Purpose, snap.Mission.Goals, feedback)
	return dialogueReply(sessionID, "goals_retry", m.msg("目標案を再提案します。", "Re-proposing goals."))
}

func (m *Machine) handleTasksConfirm(ctx context.Context, text, sessionID string) *datatypes.ThinkResponse {
	snap := m.state.Snapshot()

	var payload datatypes.TasksPayload
	if snap.Action != nil && snap.Action.Data != nil {
		if err := snap.Action.DecodeData(&payload); err != nil {
			m.logger.Error("malformed tasks payload", "error", err)
		}
	}

	if isYes(text) {
		if len(payload.Tasks) == 0 {
			return dialogueReply(sessionID, "tasks_empty",
				m.msg("タスク案が空のため承認できません。修正内容を入力してください。",
					"Cannot approve because the task list is empty. Enter revisions."))
		}
		err := m.state.Update(func(st *datatypes.State) error {
			goal := st.Goal(payload.GoalID)
			if goal == nil {
				st.ClearAction()
				return nil
			}
			nextIndex := len(goal.Tasks) + 1
			for _, t := range payload.Tasks {
				st.AddTask(payload.GoalID, &datatypes.Task{
					ID:       fmt.Sprintf("%s-T%d", payload.GoalID, nextIndex),
					Name:     t.Name,
					Status:   datatypes.StatusPending,
					Trigger:  t.Trigger,
					Response: t.Response,
				})
				nextIndex++
			}
			st.ClearAction()
			st.SetThought(m.msg("タスク承認", "Tasks approved"), fmt.Sprintf("%d", len(payload.Tasks)))
			return nil
		})
		if err != nil {
			m.logger.Error("failed to confirm tasks", "error", err)
		}
		m.wakeLoop()
		return dialogueReply(sessionID, "tasks_confirmed", m.msg("タスクを確定しました。", "Tasks confirmed."))
	}

	feedback := ""
	if !isNo(text) {
		feedback = strings.TrimSpace(text)
	}
	err := m.state.Update(func(st *datatypes.State) error {
		st.ClearAction()
		intent := feedback
		if intent == "" {
			intent = m.msg("再生成", "Regenerate")
		}
		st.SetThought(m.msg("タスク再提案", "Tasks re-proposed"), intent)
		return nil
	})
	if err != nil {
		m.logger.Error("failed to clear tasks proposal", "error", err)
	}
	if goal := m.state.Snapshot().Goal(payload.GoalID); goal != nil {
		m.proposeTasks(ctx, goal, feedback)
	}
	return dialogueReply(sessionID, "tasks_retry", m.msg("タスク案を再提案します。", "Re-proposing tasks."))
}

func (m *Machine) handleGoalComplete(ctx context.Context, text, sessionID string) *datatypes.ThinkResponse {
	snap := m.state.Snapshot()

	var payload datatypes.GoalRefPayload
	if snap.Action != nil && snap.Action.Data != nil {
		if err := snap.Action.DecodeData(&payload); err != nil {
			m.logger.Error("malformed goal ref payload", "error", err)
		}
	}

	if isYes(text) {
		m.finishGoal(payload.GoalID)
		m.wakeLoop()
		return dialogueReply(sessionID, "goal_complete_yes", m.msg("目標を達成しました。", "Goal achieved."))
	}

	feedback := ""
	if !isNo(text) {
		feedback = strings.TrimSpace(text)
	}
	err := m.state.Update(func(st *datatypes.State) error {
		st.ClearAction()
		intent := feedback
		if intent == "" {
			intent = m.msg("継続", "Continue")
		}
		st.SetThought(m.msg("目標未達", "Goal not achieved"), intent)
		return nil
	})
	if err != nil {
		m.logger.Error("failed to clear goal completion", "error", err)
	}
	if goal := m.state.Snapshot().Goal(payload.GoalID); goal != nil {
		m.proposeTasks(ctx, goal, feedback)
	}
	return dialogueReply(sessionID, "goal_complete_no", m.msg("追加タスクを提案します。", "Proposing additional tasks."))
}

func (m *Machine) handleTaskFail(text, sessionID string) *datatypes.ThinkResponse {
	snap := m.state.Snapshot()

	var payload datatypes.TaskFailPayload
	if snap.Action != nil && snap.Action.Data != nil {
		if err := snap.Action.DecodeData(&payload); err != nil {
			m.logger.Error("malformed task fail payload", "error", err)
		}
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	switch lower {
	case "r", "retry", "再試行":
		err := m.state.Update(func(st *datatypes.State) error {
			if _, t := st.Task(payload.TaskID); t != nil {
				t.Status = datatypes.StatusPending
			}
			st.ClearAction()
			st.SetThought(m.msg("タスク再試行", "Task retry"), payload.TaskID)
			return nil
		})
		if err != nil {
			m.logger.Error("failed to retry task", "error", err)
		}
		m.wakeLoop()
		return dialogueReply(sessionID, "task_fail_retry", m.msg("タスクを再試行します。", "Retrying task."))

	case "s", "skip", "スキップ":
		err := m.state.Update(func(st *datatypes.State) error {
			if _, t := st.Task(payload.TaskID); t != nil {
				t.Status = datatypes.StatusFail
			}
			st.ClearAction()
			st.SetThought(m.msg("タスクスキップ", "Task skipped"), payload.TaskID)
			return nil
		})
		if err != nil {
			m.logger.Error("failed to skip task", "error", err)
		}
		m.wakeLoop()
		return dialogueReply(sessionID, "task_fail_skip", m.msg("タスクをスキップしました。", "Task skipped."))
	}

	// Free text becomes retry-with-context.
	feedback := strings.TrimSpace(text)
	err := m.state.Update(func(st *datatypes.State) error {
		if _, t := st.Task(payload.TaskID); t != nil {
			t.Status = datatypes.StatusPending
			t.Feedback = feedback
		}
		st.ClearAction()
		st.SetThought(m.msg("タスク再試行（コンテキスト付き）", "Task retry with context"), feedback)
		return nil
	})
	if err != nil {
		m.logger.Error("failed to retry task with context", "error", err)
	}
	m.wakeLoop()
	return dialogueReply(sessionID, "task_fail_context",
		m.msg(fmt.Sprintf("コンテキストを追加して再試行します: %s", feedback),
			fmt.Sprintf("Retrying with context: %s", feedback)))
}
