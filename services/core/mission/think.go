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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

// Think is the single conversational entry point. Every channel adapter
// funnels through it: a pending approval question consumes the text as an
// answer; otherwise it is fresh conversational input.
func (m *Machine) Think(ctx context.Context, req datatypes.ThinkRequest) (*datatypes.ThinkResponse, error) {
	authority := datatypes.SourceAuthority(req.Source)

	snap := m.state.Snapshot()
	phase := snap.Phase()

	if req.Source == "dialogue" {
		switch phase {
		case datatypes.PhaseAwaitingPurposeType:
			return m.handlePurposeType(req.Text, req.SessionID), nil
		case datatypes.PhaseAwaitingGoalsConfirm:
			return m.handleGoalsConfirm(ctx, req.Text, req.SessionID), nil
		case datatypes.PhaseAwaitingTasksConfirm:
			return m.handleTasksConfirm(ctx, req.Text, req.SessionID), nil
		case datatypes.PhaseAwaitingGoalComplete:
			return m.handleGoalComplete(ctx, req.Text, req.SessionID), nil
		case datatypes.PhaseAwaitingTaskFail:
			return m.handleTaskFail(req.Text, req.SessionID), nil
		case datatypes.PhaseAwaitingPurposeOK:
			return m.handlePurposeConfirm(ctx, req.Text, req.SessionID), nil
		}

		// Ongoing purposes have no natural end; the operator closes them
		// with an explicit completion keyword.
		if snap.Mission.PurposeType == datatypes.PurposeOngoing && isCompletionKeyword(req.Text) {
			purpose := snap.Mission.Purpose
			err := m.state.Update(func(st *datatypes.State) error {
				st.Mission.Purpose = ""
				st.Mission.PurposeType = ""
				st.Mission.Goals = []*datatypes.Goal{}
				st.ClearAction()
				st.SetThought(m.msg("目的完了", "Purpose completed"),
					fmt.Sprintf("%s: %s", m.msg("ユーザー明示", "Explicit user signal"), purpose))
				return nil
			})
			if err != nil {
				m.logger.Error("failed to complete ongoing purpose", "error", err)
			}
			m.wakeLoop()
			return dialogueReply(req.SessionID, "purpose_manual_complete",
				m.msg(fmt.Sprintf("目的「%s」を完了しました。", purpose),
					fmt.Sprintf("Purpose %q completed.", purpose))), nil
		}
	}

	// Record the input; an empty purpose adopts the first dialogue text.
	purposeWasEmpty := false
	err := m.state.Update(func(st *datatypes.State) error {
		st.Input = &datatypes.Input{Source: req.Source, Authority: authority, Text: req.Text}
		if st.Mission.Purpose == "" && req.Source == "dialogue" {
			purposeWasEmpty = true
			st.Mission.Purpose = req.Text
			st.ClearAction()
			st.SetThought(m.msg("purpose設定", "Purpose set"),
				fmt.Sprintf("%s: %s", m.msg("目的", "Purpose"), req.Text))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.state.Event("input", map[string]any{"source": req.Source, "text": req.Text})

	if purposeWasEmpty {
		// No cognition call here: the loop will ask for the purpose type on
		// its next cycle.
		m.wakeLoop()
		resp := dialogueReply(req.SessionID, "purpose_set",
			m.msg(fmt.Sprintf("目的を「%s」に設定しました。", req.Text),
				fmt.Sprintf("Purpose set to %q.", req.Text)))
		resp.Source = req.Source
		resp.Authority = authority
		return resp, nil
	}

	chat := m.sessions.GetOrCreate(req.SessionID)
	message := m.stateContext() + "\n\n" + req.Text
	reply, err := m.llm.Complete(ctx, chat, message, m.llmOpts(false))
	if err != nil {
		return nil, err
	}
	m.trackUsage(reply)
	if reply.Text == "" {
		return nil, errors.New("core response content is missing")
	}
	if reply.ID == "" {
		return nil, errors.New("core response_id is missing")
	}

	verdict, err := m.classifyIntent(ctx, req.Text, reply.Text)
	if err != nil {
		return nil, err
	}
	needsApproval := verdict.Intent == "action"

	judgment := fmt.Sprintf("%s: %s", m.msg("入力", "Input"), truncateText(req.Text, 50))
	intent := m.msg("会話応答", "Conversation response")
	if needsApproval {
		summary := m.msg("不明な操作", "Unknown operation")
		if verdict.Proposal != nil && verdict.Proposal.Summary != "" {
			summary = verdict.Proposal.Summary
		}
		intent = fmt.Sprintf("%s: %s", m.msg("実行", "Action"), summary)
	}

	err = m.state.Update(func(st *datatypes.State) error {
		st.SetThought(judgment, intent)
		if needsApproval {
			summary := m.msg("不明な操作", "Unknown operation")
			command := ""
			if verdict.Proposal != nil {
				if verdict.Proposal.Summary != "" {
					summary = verdict.Proposal.Summary
				}
				command = verdict.Proposal.Command
			}
			st.SetAction(datatypes.PhaseApproving, summary)
			st.Action.Command = command
		} else {
			st.ClearAction()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.state.Event("thought", map[string]any{"judgment": judgment, "intent": intent})
	m.wakeLoop()

	return &datatypes.ThinkResponse{
		Response:      reply.Text,
		Source:        req.Source,
		Authority:     authority,
		SessionID:     req.SessionID,
		ResponseID:    reply.ID,
		Intent:        verdict.Intent,
		Route:         verdict.Route,
		NeedsApproval: needsApproval,
		Proposal:      verdict.Proposal,
	}, nil
}

func isCompletionKeyword(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "完了", "終了", "done", "finish", "complete":
		return true
	}
	return false
}

func truncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// intentVerdict is the classifier's structured answer.
type intentVerdict struct {
	Intent   string              `json:"intent"`
	Route    string              `json:"route"`
	Proposal *datatypes.Proposal `json:"proposal"`
}

// classifierDoc keeps the proposal raw so an absent key and an explicit null
// stay distinguishable during validation.
type classifierDoc struct {
	Intent   string          `json:"intent"`
	Route    string          `json:"route"`
	Proposal json.RawMessage `json:"proposal"`

	parsed *datatypes.Proposal
}

const classifierSystem = "Return a single JSON object only. Do not include any extra text or code fences. " +
	"Keys must be exactly: intent (conversation|action), " +
	"route (dialogue|terminal), proposal (object with command and summary or null). " +
	"Use double quotes only. " +
	"If intent is action, proposal.command must be a concrete bash command."

const classifierSchema = `{"intent": "conversation|action", "route": "dialogue|terminal", ` +
	`"proposal": {"command": "bash command", "summary": "one-line summary"} or null}`

// classifyIntent asks the provider to judge whether the exchange implies a
// side-effecting action. The verdict is validated strictly; a malformed one
// gets one repair attempt, then an error, never a default.
func (m *Machine) classifyIntent(ctx context.Context, prompt, responseText string) (*intentVerdict, error) {
	chat := cognition.NewChat(classifierSystem)
	message := fmt.Sprintf("USER_PROMPT:\n%s\nASSISTANT_RESPONSE:\n%s", prompt, responseText)
	opts := cognition.Options{Model: m.cfg.Get().LLM.Model, Temperature: 0}
	start := time.Now()
	doc, err := cognition.Negotiate[classifierDoc](ctx, m.llm, chat, "classify_intent",
		message, classifierSchema, opts, m.trackUsage, func(d *classifierDoc) error {
			if d.Intent != "conversation" && d.Intent != "action" {
				return errors.New("intent is invalid")
			}
			if d.Route != "dialogue" && d.Route != "terminal" {
				return errors.New("route is invalid")
			}
			if d.Proposal == nil {
				return errors.New("proposal key is missing")
			}
			d.parsed = nil
			if string(d.Proposal) != "null" {
				var p datatypes.Proposal
				if err := json.Unmarshal(d.Proposal, &p); err != nil {
					return fmt.Errorf("proposal is invalid: %w", err)
				}
				d.parsed = &p
			}
			if d.Intent == "action" && (d.parsed == nil || d.parsed.Command == "") {
				return errors.New("proposal.command is missing for an action")
			}
			return nil
		})
	m.metrics.RecordCognition("classify_intent", time.Since(start).Seconds())
	if err != nil {
		var cerr *cognition.ContractError
		if errors.As(err, &cerr) {
			m.emitLLMError(cerr, "", "")
		}
		return nil, fmt.Errorf("intent classification: %w", err)
	}
	return &intentVerdict{Intent: doc.Intent, Route: doc.Route, Proposal: doc.parsed}, nil
}
