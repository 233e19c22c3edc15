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

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

// errUnchanged aborts an Update without saving; used for idempotence checks.
var errUnchanged = errors.New("state unchanged")

// Cycle runs one decision step of the autonomous loop and returns the wait
// before the next cycle. Decisions follow plan order strictly: the first
// active entry wins and pending entries are consumed head-first.
func (m *Machine) Cycle(ctx context.Context) Wait {
	snap := m.state.Snapshot()

	// Any pending phase means a human or an executor owes us an answer.
	if snap.Phase().Pauses() {
		return WaitIdle()
	}

	mis := snap.Mission
	if mis.Purpose == "" {
		m.askForPurpose()
		return WaitIdle()
	}
	if mis.PurposeType == "" {
		m.askForPurposeType(mis.Purpose)
		return WaitIdle()
	}
	if len(mis.Goals) == 0 {
		m.proposeGoals(ctx, mis.Purpose, mis.Goals, "")
		return WaitIdle()
	}

	goal := snap.ActiveGoal()
	if goal == nil {
		// Every goal resolved.
		if mis.PurposeType == datatypes.PurposeOngoing {
			m.proposeGoals(ctx, mis.Purpose, mis.Goals, "")
			return WaitIdle()
		}
		return m.confirmPurposeCompletion(mis.Purpose)
	}

	// Resume an interrupted task before anything else.
	for _, t := range goal.Tasks {
		if t.Status == datatypes.StatusActive {
			return m.executeTask(ctx, goal, t)
		}
	}

	if len(goal.Tasks) == 0 {
		m.proposeTasks(ctx, goal, "")
		return WaitIdle()
	}

	for _, t := range goal.Tasks {
		if t.Status == datatypes.StatusPending {
			return m.executeTask(ctx, goal, t)
		}
	}

	// No active or pending tasks left: the goal looks finished.
	return m.resolveGoalCompletion(ctx, goal)
}

// askForPurpose asks the operator for a purpose, exactly once: re-entry
// while already awaiting produces no second thought event.
func (m *Machine) askForPurpose() {
	err := m.state.Update(func(st *datatypes.State) error {
		if st.Phase() == datatypes.PhaseAwaitingPurpose {
			return errUnchanged
		}
		st.SetAction(datatypes.PhaseAwaitingPurpose, m.msg("目的を待機中", "Waiting for a purpose"))
		st.SetThought(m.msg("purpose未設定", "Purpose not set"), m.msg("ユーザーに問いかけ", "Ask user"))
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return
	}
	if err != nil {
		m.logger.Error("failed to enter awaiting_purpose", "error", err)
		return
	}
	m.state.Event("thought", map[string]any{
		"judgment": m.msg("purpose未設定", "Purpose not set"),
		"intent":   m.msg("ユーザーに問いかけ", "Ask user"),
	})
	m.output(fmt.Sprintf("%s> %s", m.avatarName(),
		m.msg("目的が設定されていません。何を達成しましょうか？", "Purpose is not set. What should we achieve?")))
}

// askForPurposeType asks whether the purpose is finite or ongoing.
func (m *Machine) askForPurposeType(purpose string) {
	err := m.state.Update(func(st *datatypes.State) error {
		if st.Phase() == datatypes.PhaseAwaitingPurposeType {
			return errUnchanged
		}
		st.SetAction(datatypes.PhaseAwaitingPurposeType,
			fmt.Sprintf("%s: %s", m.msg("目的タイプ確認", "Purpose type check"), purpose))
		st.SetThought(m.msg("目的タイプ確認", "Purpose type check"),
			fmt.Sprintf("%s: %s", m.msg("目的", "Purpose"), purpose))
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return
	}
	if err != nil {
		m.logger.Error("failed to enter awaiting_purpose_type", "error", err)
		return
	}
	m.state.Event("thought", map[string]any{
		"judgment": m.msg("目的タイプ確認", "Purpose type check"),
		"intent":   m.msg("ユーザーに問いかけ", "Ask user"),
	})
	m.output(fmt.Sprintf("%s> %s [y] Achieve / [n] Continue", m.avatarName(),
		m.msg(fmt.Sprintf("目的「%s」は達成型ですか？", purpose),
			fmt.Sprintf("Is the purpose %q finite?", purpose))))
}

// confirmPurposeCompletion asks whether the finite purpose as a whole is
// achieved, once all goals are resolved.
func (m *Machine) confirmPurposeCompletion(purpose string) Wait {
	err := m.state.Update(func(st *datatypes.State) error {
		st.SetAction(datatypes.PhaseAwaitingPurposeOK,
			fmt.Sprintf("%s: %s", m.msg("目的達成確認", "Purpose completion check"), purpose))
		st.SetThought(m.msg("全目標完了", "All goals complete"),
			m.msg("目的達成を確認中", "Confirming purpose completion"))
		return nil
	})
	if err != nil {
		m.logger.Error("failed to enter awaiting_purpose_confirm", "error", err)
		return WaitIdle()
	}
	m.output(fmt.Sprintf("%s> %s\n[y] Achieve / [n] Continue / %s", m.avatarName(),
		m.msg(fmt.Sprintf("全ての目標が完了しました。目的「%s」は達成されましたか？", purpose),
			fmt.Sprintf("All goals are complete. Has the purpose %q been achieved?", purpose)),
		m.msg("新しい目的を入力", "Enter a new purpose")))
	return WaitIdle()
}
