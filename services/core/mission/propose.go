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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
	"github.com/AleutianAI/AvatarCore/services/core/session"
)

// Structured decision documents returned by the cognition provider.
type goalsDoc struct {
	Goals []datatypes.GoalDraft `json:"goals"`
}

type tasksDoc struct {
	Tasks []datatypes.TaskDraft `json:"tasks"`
}

type commandDoc struct {
	Command *string `json:"command"`
	Summary string  `json:"summary"`
}

type judgeDoc struct {
	Achieved bool   `json:"achieved"`
	Reason   string `json:"reason"`
}

// emitLLMError appends the typed llm_error event after an exhausted JSON
// negotiation.
func (m *Machine) emitLLMError(cerr *cognition.ContractError, goalID, goalName string) {
	fields := map[string]any{
		"stage":      cerr.Stage,
		"model":      m.cfg.Get().LLM.Model,
		"error":      cerr.Err.Error(),
		"retry_used": true,
	}
	if goalID != "" {
		fields["goal_id"] = goalID
		fields["goal"] = goalName
	} else {
		fields["goal_id"] = nil
		fields["goal"] = nil
	}
	if cerr.RawLen > 0 {
		fields["raw_len"] = cerr.RawLen
		fields["raw_preview"] = cerr.RawPreview
	}
	m.state.Event("llm_error", fields)
	if errors.Is(cerr.Err, cognition.ErrTimeout) {
		m.metrics.RecordCognitionError("timeout")
	} else {
		m.metrics.RecordCognitionError("contract")
	}
}

// proposeGoals asks the cognition provider for a goal list and enters
// awaiting_goals_confirm — with the candidates on success, with an empty
// payload on contract failure so a human can intervene.
func (m *Machine) proposeGoals(ctx context.Context, purpose string, existing []*datatypes.Goal, feedback string) bool {
	avatar := m.avatarName()
	m.output(fmt.Sprintf("%s> %s", avatar, m.msg("目的について考えています...", "Thinking about the purpose...")))

	existingNames := make([]string, 0, len(existing))
	for _, g := range existing {
		existingNames = append(existingNames, g.Name)
	}

	chat := m.sessions.GetOrCreate(session.CoreSessionID)
	start := time.Now()
	doc, err := cognition.Negotiate[goalsDoc](ctx, m.llm, chat, "propose_goals",
		goalProposalPrompt(purpose, existingNames, feedback), goalsSchema,
		m.llmOpts(false), m.trackUsage, func(d *goalsDoc) error {
			d.Goals = validGoalDrafts(d.Goals)
			if len(d.Goals) == 0 {
				return errors.New("goals is empty or has no valid names")
			}
			return nil
		})
	m.metrics.RecordCognition("propose_goals", time.Since(start).Seconds())

	if err != nil {
		var cerr *cognition.ContractError
		if errors.As(err, &cerr) {
			m.emitLLMError(cerr, "", "")
		} else {
			m.logger.Error("goal proposal failed", "error", err)
		}
		uerr := m.state.Update(func(st *datatypes.State) error {
			st.SetAction(datatypes.PhaseAwaitingGoalsConfirm, m.msg("目標提案の生成に失敗", "Goal proposal failed"))
			st.SetThought(m.msg("目標提案失敗", "Goal proposal failed"), m.msg("ユーザーに再提案を求める", "Ask user to retry"))
			return st.Action.SetData(datatypes.GoalsPayload{
				Goals: []datatypes.GoalDraft{},
				Error: m.msg("目標案の生成に失敗しました", "Failed to generate goals"),
			})
		})
		if uerr != nil {
			m.logger.Error("failed to record goal proposal failure", "error", uerr)
		}
		m.output(fmt.Sprintf("%s> %s", avatar, m.msg("目標案の生成に失敗しました。", "Failed to generate goals.")))
		m.output(fmt.Sprintf("%s> [n] %s / %s", avatar, m.msg("再試行", "Retry"), m.msg("修正内容を入力してください", "Enter revisions")))
		return false
	}

	goals := doc.Goals
	uerr := m.state.Update(func(st *datatypes.State) error {
		st.SetAction(datatypes.PhaseAwaitingGoalsConfirm,
			fmt.Sprintf("%s: %d", m.msg("目標提案", "Goals proposed"), len(goals)))
		st.SetThought(fmt.Sprintf("%s: %d", m.msg("目標提案", "Goals proposed"), len(goals)),
			m.msg("ユーザー承認待ち", "Awaiting approval"))
		return st.Action.SetData(datatypes.GoalsPayload{Goals: goals})
	})
	if uerr != nil {
		m.logger.Error("failed to record goal proposal", "error", uerr)
		return false
	}
	m.state.Event("thought", map[string]any{
		"judgment": fmt.Sprintf("%s: %d", m.msg("目標提案", "Goals proposed"), len(goals)),
		"intent":   m.msg("ユーザー承認待ち", "Awaiting approval"),
	})

	var list strings.Builder
	for i, g := range goals {
		fmt.Fprintf(&list, "  %d. %s\n", i+1, g.Name)
	}
	m.output(fmt.Sprintf("%s> %s\n%s%s [y] %s / [n] %s / %s", avatar,
		m.msg("目標案を提案します。", "Proposed goals:"), list.String(),
		m.msg("この目標群で進めますか？", "Proceed with these goals?"),
		m.msg("承認", "Approve"), m.msg("再提案", "Re-propose"), m.msg("修正内容を入力", "Enter revisions")))
	return true
}

// proposeTasks asks for a task list for one goal and enters
// awaiting_tasks_confirm.
func (m *Machine) proposeTasks(ctx context.Context, goal *datatypes.Goal, feedback string) bool {
	avatar := m.avatarName()
	m.output(fmt.Sprintf("%s> %s", avatar,
		m.msg(fmt.Sprintf("%sのタスクを考えています...", goal.ID),
			fmt.Sprintf("Thinking about tasks for %s...", goal.ID))))

	var completedNames []string
	for _, t := range goal.Tasks {
		if t.Status == datatypes.StatusDone {
			completedNames = append(completedNames, t.Name)
		}
	}
	purpose := m.state.Snapshot().Mission.Purpose

	chat := m.sessions.GetOrCreate(session.CoreSessionID)
	start := time.Now()
	doc, err := cognition.Negotiate[tasksDoc](ctx, m.llm, chat, "propose_tasks",
		taskProposalPrompt(purpose, goal.Name, completedNames, feedback), tasksSchema,
		m.llmOpts(false), m.trackUsage, func(d *tasksDoc) error {
			d.Tasks = validTaskDrafts(d.Tasks)
			if len(d.Tasks) == 0 {
				return errors.New("tasks is empty or has no valid names")
			}
			return nil
		})
	m.metrics.RecordCognition("propose_tasks", time.Since(start).Seconds())

	if err != nil {
		var cerr *cognition.ContractError
		if errors.As(err, &cerr) {
			m.emitLLMError(cerr, goal.ID, goal.Name)
		} else {
			m.logger.Error("task proposal failed", "goal", goal.ID, "error", err)
		}
		uerr := m.state.Update(func(st *datatypes.State) error {
			st.SetAction(datatypes.PhaseAwaitingTasksConfirm, m.msg("タスク提案の生成に失敗", "Task proposal failed"))
			st.SetThought(m.msg("タスク提案失敗", "Task proposal failed"), m.msg("ユーザーに再提案を求める", "Ask user to retry"))
			return st.Action.SetData(datatypes.TasksPayload{
				GoalID: goal.ID,
				Tasks:  []datatypes.TaskDraft{},
				Error:  m.msg("タスク案の生成に失敗しました", "Failed to generate tasks"),
			})
		})
		if uerr != nil {
			m.logger.Error("failed to record task proposal failure", "error", uerr)
		}
		m.output(fmt.Sprintf("%s> %s", avatar, m.msg("タスク案の生成に失敗しました。", "Failed to generate tasks.")))
		m.output(fmt.Sprintf("%s> [n] %s / %s", avatar, m.msg("再試行", "Retry"), m.msg("修正内容を入力してください", "Enter revisions")))
		return false
	}

	tasks := doc.Tasks
	uerr := m.state.Update(func(st *datatypes.State) error {
		st.SetAction(datatypes.PhaseAwaitingTasksConfirm,
			fmt.Sprintf("%s: %d", m.msg("タスク提案", "Tasks proposed"), len(tasks)))
		st.SetThought(fmt.Sprintf("%s: %d", m.msg("タスク提案", "Tasks proposed"), len(tasks)),
			m.msg("ユーザー承認待ち", "Awaiting approval"))
		return st.Action.SetData(datatypes.TasksPayload{GoalID: goal.ID, Tasks: tasks})
	})
	if uerr != nil {
		m.logger.Error("failed to record task proposal", "error", uerr)
		return false
	}
	m.state.Event("thought", map[string]any{
		"judgment": fmt.Sprintf("%s: %d", m.msg("タスク提案", "Tasks proposed"), len(tasks)),
		"intent":   m.msg("ユーザー承認待ち", "Awaiting approval"),
	})

	var list strings.Builder
	for i, t := range tasks {
		fmt.Fprintf(&list, "  %d. %s\n", i+1, t.Name)
	}
	m.output(fmt.Sprintf("%s> %s\n%s%s [y] %s / [n] %s / %s", avatar,
		m.msg(fmt.Sprintf("%sのタスク案を提案します。", goal.ID), fmt.Sprintf("Proposed tasks for %s:", goal.ID)),
		list.String(),
		m.msg("このタスク群で進めますか？", "Proceed with these tasks?"),
		m.msg("承認", "Approve"), m.msg("再提案", "Re-propose"), m.msg("修正内容を入力", "Enter revisions")))
	return true
}

// executeTask asks how to execute the earliest pending task. A null command
// completes the task by conversation alone; a concrete command enters the
// approving phase.
func (m *Machine) executeTask(ctx context.Context, goal *datatypes.Goal, task *datatypes.Task) Wait {
	uerr := m.state.Update(func(st *datatypes.State) error {
		if _, t := st.Task(task.ID); t != nil {
			t.Status = datatypes.StatusActive
		}
		return nil
	})
	if uerr != nil {
		m.logger.Error("failed to activate task", "task", task.ID, "error", uerr)
		return m.waitResult()
	}

	// Execution decisions run on an isolated chat so proposal history does
	// not contaminate command synthesis.
	chat := cognition.NewChat(m.SystemPrompt())
	prompt := commandPrompt(m.envContext(), m.stateContext(), task.Name, task.Feedback)

	start := time.Now()
	doc, err := cognition.Negotiate[commandDoc](ctx, m.llm, chat, "execute_task",
		prompt, commandSchema, m.llmOpts(true), m.trackUsage, nil)
	m.metrics.RecordCognition("execute_task", time.Since(start).Seconds())

	if err != nil {
		var cerr *cognition.ContractError
		errorSummary := m.msg("タスク実行に失敗しました。", "Task execution failed.")
		if errors.As(err, &cerr) && cerr.RawLen > 0 {
			errorSummary = m.msg("タスク実行のJSON出力が不正でした。", "Task execution JSON output was invalid.")
			m.metrics.RecordCognitionError("contract")
		} else {
			m.metrics.RecordCognitionError("timeout")
		}
		m.logger.Error("task execution decision failed", "task", task.ID, "error", err)
		uerr := m.state.Update(func(st *datatypes.State) error {
			st.SetThought(m.msg("タスク実行失敗", "Task execution failed"), err.Error())
			st.SetResult(datatypes.StatusFail, errorSummary)
			st.SetAction(datatypes.PhaseAwaitingContinue, errorSummary)
			return nil
		})
		if uerr != nil {
			m.logger.Error("failed to record execution failure", "error", uerr)
		}
		m.output(fmt.Sprintf("ERROR> %s", errorSummary))
		return WaitIdle()
	}

	summary := strings.TrimSpace(doc.Summary)
	if summary == "" {
		summary = task.Name
	}
	command := ""
	if doc.Command != nil {
		command = strings.TrimSpace(*doc.Command)
	}

	uerr = m.state.Update(func(st *datatypes.State) error {
		st.SetThought(fmt.Sprintf("%s: %s", m.msg("タスク", "Task"), task.Name),
			fmt.Sprintf("%s: %s", m.msg("実行", "Execute"), summary))
		if command != "" {
			st.SetAction(datatypes.PhaseApproving, summary)
			st.Action.Command = command
		} else {
			if _, t := st.Task(task.ID); t != nil {
				t.Status = datatypes.StatusDone
			}
			st.SetResult(datatypes.StatusDone, summary)
		}
		return nil
	})
	if uerr != nil {
		m.logger.Error("failed to record execution decision", "error", uerr)
		return m.waitResult()
	}

	if command != "" {
		m.state.Event("thought", map[string]any{
			"judgment": fmt.Sprintf("%s: %s", m.msg("タスク", "Task"), task.Name),
			"intent":   fmt.Sprintf("%s: %s", m.msg("承認待ち", "Awaiting approval"), summary),
		})
		return WaitIdle()
	}

	m.state.Event("result", map[string]any{"status": "done", "summary": summary})
	if m.cfg.Get().Notify() {
		m.output(fmt.Sprintf("✓ Done: %s", summary))
	}
	// Conversation-only completion always continues automatically.
	return m.waitResult()
}

// resolveGoalCompletion runs the configured completion strategy once every
// task of the goal is resolved: "manual" always asks the operator, "auto"
// lets the cognition provider judge and only falls back to the operator on
// contract failure.
func (m *Machine) resolveGoalCompletion(ctx context.Context, goal *datatypes.Goal) Wait {
	if m.cfg.Get().GoalComplete == "auto" {
		taskLines := make([]string, 0, len(goal.Tasks))
		for _, t := range goal.Tasks {
			taskLines = append(taskLines, fmt.Sprintf("%s: %s (%s)", t.ID, t.Name, t.Status))
		}
		chat := cognition.NewChat(m.SystemPrompt())
		start := time.Now()
		doc, err := cognition.Negotiate[judgeDoc](ctx, m.llm, chat, "goal_complete_auto",
			goalJudgePrompt(goal.Name, taskLines), judgeSchema,
			m.llmOpts(true), m.trackUsage, nil)
		m.metrics.RecordCognition("goal_complete_auto", time.Since(start).Seconds())
		if err == nil {
			if doc.Achieved {
				m.finishGoal(goal.ID)
				m.output(fmt.Sprintf("✓ %s: %s", m.msg("目標達成", "Goal achieved"), goal.Name))
				return m.waitResult()
			}
			m.proposeTasks(ctx, goal, doc.Reason)
			return WaitIdle()
		}
		var cerr *cognition.ContractError
		if errors.As(err, &cerr) {
			m.emitLLMError(cerr, goal.ID, goal.Name)
		}
		// Fall through to the manual prompt.
	}

	uerr := m.state.Update(func(st *datatypes.State) error {
		st.SetAction(datatypes.PhaseAwaitingGoalComplete,
			fmt.Sprintf("%s: %s", m.msg("目標完了承認", "Goal completion check"), goal.Name))
		st.SetThought(m.msg("全タスク完了", "All tasks complete"),
			m.msg("目標完了承認待ち", "Awaiting goal completion approval"))
		return st.Action.SetData(datatypes.GoalRefPayload{GoalID: goal.ID})
	})
	if uerr != nil {
		m.logger.Error("failed to enter awaiting_goal_complete", "error", uerr)
		return WaitIdle()
	}
	m.output(fmt.Sprintf("%s> %s\n[y] Achieve / [n] Continue", m.avatarName(),
		m.msg(fmt.Sprintf("全てのタスクが完了しました。目標「%s」は達成されましたか？", goal.Name),
			fmt.Sprintf("All tasks are complete. Has the goal %q been achieved?", goal.Name))))
	return WaitIdle()
}

// finishGoal marks the goal done and activates the next pending goal.
func (m *Machine) finishGoal(goalID string) {
	err := m.state.Update(func(st *datatypes.State) error {
		if g := st.Goal(goalID); g != nil {
			g.Status = datatypes.StatusDone
		}
		for _, g := range st.Mission.Goals {
			if g.Status == datatypes.StatusPending {
				g.Status = datatypes.StatusActive
				break
			}
		}
		st.ClearAction()
		st.SetThought(m.msg("目標達成", "Goal achieved"), goalID)
		return nil
	})
	if err != nil {
		m.logger.Error("failed to finish goal", "goal", goalID, "error", err)
	}
}

func validGoalDrafts(in []datatypes.GoalDraft) []datatypes.GoalDraft {
	out := in[:0]
	for _, g := range in {
		if strings.TrimSpace(g.Name) != "" {
			out = append(out, g)
		}
	}
	return out
}

func validTaskDrafts(in []datatypes.TaskDraft) []datatypes.TaskDraft {
	out := in[:0]
	for _, t := range in {
		if strings.TrimSpace(t.Name) != "" {
			out = append(out, t)
		}
	}
	return out
}
