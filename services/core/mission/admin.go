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

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
	"github.com/AleutianAI/AvatarCore/services/core/session"
)

// Admin operation errors. Handlers map ErrNotFound to 404 and the rest to
// 400; every rejection leaves state untouched.
var (
	ErrNoAction   = fmt.Errorf("no pending action")
	ErrWrongPhase = fmt.Errorf("action phase mismatch")
	ErrNotFound   = fmt.Errorf("not found")
	ErrInvalid    = fmt.Errorf("invalid request")
)

func requirePhase(st *datatypes.State, phase datatypes.Phase, what string) error {
	if st.Action == nil {
		return fmt.Errorf("%w: no action to %s", ErrNoAction, what)
	}
	if st.Action.Phase != phase {
		return fmt.Errorf("%w: action is not %s", ErrWrongPhase, phase)
	}
	return nil
}

// Approve moves the pending approving action into executing.
func (m *Machine) Approve() (*datatypes.Action, error) {
	var action datatypes.Action
	err := m.state.Update(func(st *datatypes.State) error {
		if err := requirePhase(st, datatypes.PhaseApproving, "approve"); err != nil {
			return err
		}
		st.Action.Phase = datatypes.PhaseExecuting
		action = *st.Action
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.state.Event("action", map[string]any{"phase": "executing", "summary": action.Summary})
	return &action, nil
}

// Reject refuses the pending approving action and fails the active task.
func (m *Machine) Reject() (*datatypes.Result, error) {
	var result datatypes.Result
	err := m.state.Update(func(st *datatypes.State) error {
		if err := requirePhase(st, datatypes.PhaseApproving, "reject"); err != nil {
			return err
		}
		summary := st.Action.Summary
		st.MarkActiveTask(datatypes.StatusFail)
		st.ClearAction()
		st.SetResult(datatypes.StatusFail, fmt.Sprintf("%s: %s", m.msg("拒否", "Rejected"), summary))
		result = *st.Result
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.state.Event("result", map[string]any{"status": "fail", "summary": result.Summary})
	m.wakeLoop()
	return &result, nil
}

// Cancel soft-pauses the pending approving action without marking failure.
func (m *Machine) Cancel() (string, error) {
	var summary string
	err := m.state.Update(func(st *datatypes.State) error {
		if err := requirePhase(st, datatypes.PhaseApproving, "cancel"); err != nil {
			return err
		}
		summary = st.Action.Summary
		st.SetAction(datatypes.PhaseAwaitingContinue,
			fmt.Sprintf("%s: %s", m.msg("キャンセル", "Canceled"), summary))
		return nil
	})
	if err != nil {
		return "", err
	}
	m.state.Event("action", map[string]any{"phase": "canceled", "summary": summary})
	m.wakeLoop()
	return summary, nil
}

// Complete reports the outcome of the executing action. Success marks the
// active task done and immediately runs the next cycle synchronously;
// failure enters awaiting_task_fail with retry/skip/context options.
func (m *Machine) Complete(ctx context.Context, req datatypes.CompleteRequest) (*datatypes.Result, *datatypes.Action, error) {
	success := req.Success == nil || *req.Success

	var summary string
	var outputText string
	err := m.state.Update(func(st *datatypes.State) error {
		if err := requirePhase(st, datatypes.PhaseExecuting, "complete"); err != nil {
			return err
		}
		summary = req.Summary
		if summary == "" {
			summary = st.Action.Summary
		}
		if success {
			st.MarkActiveTask(datatypes.StatusDone)
			st.ClearAction()
			st.SetResult(datatypes.StatusDone, summary)
			return nil
		}
		active := st.ActiveTask()
		taskName := m.msg("タスク", "Task")
		taskID := ""
		if active != nil {
			taskName = active.Name
			taskID = active.ID
		}
		st.SetAction(datatypes.PhaseAwaitingTaskFail,
			fmt.Sprintf("%s: %s", m.msg("タスク失敗", "Task failed"), summary))
		st.SetResult(datatypes.StatusFail, summary)
		outputText = fmt.Sprintf("%s> %s\n[r] %s / [s] %s / %s", m.avatarName(),
			m.msg(fmt.Sprintf("タスク「%s」が失敗しました: %s", taskName, summary),
				fmt.Sprintf("Task %q failed: %s", taskName, summary)),
			m.msg("再試行", "Retry"), m.msg("スキップ", "Skip"), m.msg("コンテキストを入力", "Enter context"))
		return st.Action.SetData(datatypes.TaskFailPayload{TaskID: taskID, Summary: summary})
	})
	if err != nil {
		return nil, nil, err
	}

	if success {
		m.state.Event("result", map[string]any{"status": "done", "summary": summary})
		// Advance to the next task without waiting for the scheduler.
		m.Cycle(ctx)
	} else {
		m.state.Event("result", map[string]any{"status": "fail", "summary": summary})
		m.output(outputText)
	}

	snap := m.state.Snapshot()
	return snap.Result, snap.Action, nil
}

// Continue clears the awaiting_continue pause and resumes the loop.
func (m *Machine) Continue() error {
	err := m.state.Update(func(st *datatypes.State) error {
		if err := requirePhase(st, datatypes.PhaseAwaitingContinue, "continue"); err != nil {
			return err
		}
		st.ClearAction()
		return nil
	})
	if err != nil {
		return err
	}
	m.wakeLoop()
	m.state.Event("system", map[string]any{"action": "continue", "summary": m.msg("ループを続行", "Loop continued")})
	return nil
}

// Reset wipes the mission back to the empty document and re-asks for a
// purpose. The autonomous session is dropped so old context cannot leak into
// the next mission.
func (m *Machine) Reset() error {
	err := m.state.Update(func(st *datatypes.State) error {
		st.Input = nil
		st.Mission = datatypes.Mission{Goals: []*datatypes.Goal{}}
		st.Thought = nil
		st.Action = nil
		st.Result = nil
		return nil
	})
	if err != nil {
		return err
	}
	m.sessions.Remove(session.CoreSessionID)
	m.state.Event("system", map[string]any{"action": "reset", "summary": m.msg("状態がリセットされました", "State was reset")})
	m.askForPurpose()
	m.wakeLoop()
	return nil
}

// SetPurpose sets the mission purpose directly (operator bypass of the
// conversational flow).
func (m *Machine) SetPurpose(purpose string) (string, error) {
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return "", fmt.Errorf("%w: purpose is empty", ErrInvalid)
	}
	err := m.state.Update(func(st *datatypes.State) error {
		st.Mission.Purpose = purpose
		return nil
	})
	if err != nil {
		return "", err
	}
	m.wakeLoop()
	return purpose, nil
}

// AddGoal appends a goal manually.
func (m *Machine) AddGoal(goalID, name string) ([]*datatypes.Goal, error) {
	goalID = strings.TrimSpace(goalID)
	name = strings.TrimSpace(name)
	if goalID == "" || name == "" {
		return nil, fmt.Errorf("%w: goal_id or name is empty", ErrInvalid)
	}
	err := m.state.Update(func(st *datatypes.State) error {
		st.AddGoal(goalID, name, datatypes.StatusPending)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.wakeLoop()
	return m.state.Snapshot().Mission.Goals, nil
}

// AddTask appends a task to a goal manually.
func (m *Machine) AddTask(goalID, taskID, name string) ([]*datatypes.Goal, error) {
	goalID = strings.TrimSpace(goalID)
	taskID = strings.TrimSpace(taskID)
	name = strings.TrimSpace(name)
	if goalID == "" || taskID == "" || name == "" {
		return nil, fmt.Errorf("%w: goal_id, task_id or name is empty", ErrInvalid)
	}
	err := m.state.Update(func(st *datatypes.State) error {
		if st.AddTask(goalID, &datatypes.Task{ID: taskID, Name: name}) == nil {
			return fmt.Errorf("%w: goal %s", ErrNotFound, goalID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.wakeLoop()
	return m.state.Snapshot().Mission.Goals, nil
}

// RetryTask re-activates one task, demoting any other active task and goal
// so the retry runs first.
func (m *Machine) RetryTask(taskID string) (string, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return "", fmt.Errorf("%w: task_id is empty", ErrInvalid)
	}
	var goalID string
	err := m.state.Update(func(st *datatypes.State) error {
		targetGoal, targetTask := st.Task(taskID)
		if targetTask == nil {
			return fmt.Errorf("%w: task %s", ErrNotFound, taskID)
		}
		for _, g := range st.Mission.Goals {
			for _, t := range g.Tasks {
				if t.Status == datatypes.StatusActive && t.ID != taskID {
					t.Status = datatypes.StatusPending
				}
			}
		}
		for _, g := range st.Mission.Goals {
			if g == targetGoal {
				g.Status = datatypes.StatusActive
			} else if g.Status == datatypes.StatusActive {
				g.Status = datatypes.StatusPending
			}
		}
		targetTask.Status = datatypes.StatusActive
		st.ClearAction()
		st.ClearResult()
		st.SetThought(m.msg("タスク再試行", "Task retry"), taskID)
		goalID = targetGoal.ID
		return nil
	})
	if err != nil {
		return "", err
	}
	m.state.Event("system", map[string]any{"action": "retry_task", "task_id": taskID, "goal_id": goalID})
	m.wakeLoop()
	return goalID, nil
}

// ObservationOutcome is the verdict on a terminal execution result.
type ObservationOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const observationOutputLimit = 1000

// Observation feeds a terminal result back into a session. The command+output
// form asks the cognition provider to verify the result against the active
// task; the content-only form just records it.
func (m *Machine) Observation(ctx context.Context, req datatypes.ObservationRequest) (*ObservationOutcome, error) {
	if req.Content != "" && req.Command == "" {
		chat := m.sessions.GetOrCreate(req.SessionID)
		chat.Append(cognition.RoleSystem, fmt.Sprintf("TERMINAL_RESULT:\n%s", req.Content))
		return &ObservationOutcome{Success: true, Message: "completed"}, nil
	}

	output := req.Output
	if output == "" {
		output = "(no output)"
	}
	label := req.Label
	if label == "" {
		label = req.Command
	}

	condition := label
	if active := m.state.Snapshot().ActiveTask(); active != nil {
		condition = active.Name
	}

	chat := m.sessions.GetOrCreate(session.CoreSessionID)
	prompt := fmt.Sprintf("Verify the following command execution result.\n\n"+
		"Task: %s\nCommand: %s\nOutput:\n%s\n\n"+
		"Answer in exactly one line, nothing else:\n"+
		"- on success: done: [task summary]\n"+
		"- on failure: failed: [failure reason]\n",
		condition, req.Command, truncateText(output, observationOutputLimit))
	reply, err := m.llm.Complete(ctx, chat, prompt, m.llmOpts(false))
	if err != nil {
		return nil, err
	}
	m.trackUsage(reply)

	text := strings.TrimSpace(reply.Text)
	lower := strings.ToLower(text)
	outcome := &ObservationOutcome{Success: true, Message: label}
	switch {
	case strings.HasPrefix(lower, "done:"):
		if msg := strings.TrimSpace(text[len("done:"):]); msg != "" {
			outcome.Message = msg
		}
	case strings.HasPrefix(lower, "failed:"):
		outcome.Success = false
		if msg := strings.TrimSpace(text[len("failed:"):]); msg != "" {
			outcome.Message = msg
		}
	}
	// An unparsable verdict defaults to success with the label.

	resultLabel := "done"
	if !outcome.Success {
		resultLabel = "failed"
	}
	chat.Append(cognition.RoleSystem, fmt.Sprintf("TASK_RESULT: %s: %s", resultLabel, outcome.Message))
	outcome.Message = fmt.Sprintf("%s: %s", resultLabel, outcome.Message)
	return outcome, nil
}

// ConsoleLog appends one console transcript line to the secondary log.
func (m *Machine) ConsoleLog(req datatypes.ConsoleLogRequest) error {
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		return fmt.Errorf("%w: kind is empty", ErrInvalid)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalid)
	}
	fields := map[string]any{
		"session_id": req.SessionID,
		"kind":       kind,
		"text":       req.Text,
	}
	if req.RunID != "" {
		fields["run_id"] = req.RunID
	}
	if req.Seq != nil {
		fields["seq"] = *req.Seq
	}
	if req.Pane != "" {
		fields["pane"] = req.Pane
	}
	if req.ClientTime != "" {
		fields["client_time"] = req.ClientTime
	}
	return m.state.Store().AppendConsoleLog(fields)
}
