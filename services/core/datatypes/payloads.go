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
	"fmt"
)

// Action.Data carries one variant per phase. Each variant has its own struct
// so that parse failures are typed errors, never silent defaults.

// GoalDraft is one proposed goal awaiting confirmation.
type GoalDraft struct {
	Name string `json:"name"`
}

// TaskDraft is one proposed task awaiting confirmation.
type TaskDraft struct {
	Name     string `json:"name"`
	Trigger  string `json:"trigger,omitempty"`
	Response string `json:"response,omitempty"`
}

// GoalsPayload is the data attached while in awaiting_goals_confirm.
// Goals is empty (not absent) when proposal generation failed.
type GoalsPayload struct {
	Goals []GoalDraft `json:"goals"`
	Error string      `json:"error,omitempty"`
}

// TasksPayload is the data attached while in awaiting_tasks_confirm.
type TasksPayload struct {
	GoalID string      `json:"goal_id"`
	Tasks  []TaskDraft `json:"tasks"`
	Error  string      `json:"error,omitempty"`
}

// GoalRefPayload is the data attached while in awaiting_goal_complete.
type GoalRefPayload struct {
	GoalID string `json:"goal_id"`
}

// TaskFailPayload is the data attached while in awaiting_task_fail.
type TaskFailPayload struct {
	TaskID  string `json:"task_id"`
	Summary string `json:"summary"`
}

// SetData attaches a phase payload to the action, encoding it as raw JSON so
// the variant survives a save/load round trip.
func (a *Action) SetData(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode action data: %w", err)
	}
	a.Data = raw
	return nil
}

// DecodeData parses the attached payload into the variant the caller expects
// for the current phase.
func (a *Action) DecodeData(v any) error {
	if len(a.Data) == 0 {
		return fmt.Errorf("action has no data payload")
	}
	if err := json.Unmarshal(a.Data, v); err != nil {
		return fmt.Errorf("decode action data: %w", err)
	}
	return nil
}
