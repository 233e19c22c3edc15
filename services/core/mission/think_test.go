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
	"testing"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

const conversationVerdict = `{"intent": "conversation", "route": "dialogue", "proposal": null}`

func TestThinkAdoptsFirstPurpose(t *testing.T) {
	fm := newTestMachine(t, "")

	resp := think(t, fm, "Write a blog about Go")
	if resp.ResponseID != "purpose_set" {
		t.Errorf("response_id = %q", resp.ResponseID)
	}
	if fm.client.calls != 0 {
		t.Errorf("purpose adoption must not call cognition, got %d calls", fm.client.calls)
	}
	if fm.wakes == 0 {
		t.Error("purpose adoption must wake the loop")
	}

	snap := fm.manager.Snapshot()
	if snap.Mission.Purpose != "Write a blog about Go" {
		t.Errorf("purpose = %q", snap.Mission.Purpose)
	}
	if snap.Mission.PurposeType != "" {
		t.Errorf("purpose type = %q, the loop asks for it later", snap.Mission.PurposeType)
	}
	// Think only records; the type question belongs to the next cycle.
	if snap.Phase() != "" {
		t.Errorf("phase = %q", snap.Phase())
	}
}

func TestThinkNonDialogueDoesNotAdoptPurpose(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.client.script("Hello from the island!", conversationVerdict)

	resp, err := fm.Think(context.Background(), datatypes.ThinkRequest{
		Source:    "roblox",
		Text:      "hi",
		SessionID: "roblox-1",
	})
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if resp.Authority != "public" {
		t.Errorf("authority = %q", resp.Authority)
	}
	if got := fm.manager.Snapshot().Mission.Purpose; got != "" {
		t.Errorf("a public channel must not set the purpose, got %q", got)
	}
}

func TestThinkConversation(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.Mission.Purpose = "Write a blog"
		st.Mission.PurposeType = datatypes.PurposeFinite
	})
	fm.client.script("Here are three topic ideas.", conversationVerdict)

	resp := think(t, fm, "any topic ideas?")
	if resp.Response != "Here are three topic ideas." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.NeedsApproval || resp.Intent != "conversation" {
		t.Errorf("verdict = %+v", resp)
	}
	if resp.ResponseID == "" {
		t.Error("response_id must carry the provider id")
	}

	snap := fm.manager.Snapshot()
	if snap.Action != nil {
		t.Error("conversation must not leave a pending action")
	}
	if len(fm.eventsOfType(t, "input")) != 1 {
		t.Error("input event missing")
	}
}

func TestThinkActionNeedsApproval(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.Mission.Purpose = "Write a blog"
		st.Mission.PurposeType = datatypes.PurposeFinite
	})
	fm.client.script(
		"I'll create the drafts directory.",
		`{"intent": "action", "route": "terminal", "proposal": {"command": "mkdir -p drafts", "summary": "Create the drafts directory"}}`,
	)

	resp := think(t, fm, "set up a drafts folder")
	if !resp.NeedsApproval || resp.Intent != "action" {
		t.Fatalf("verdict = %+v", resp)
	}
	if resp.Proposal == nil || resp.Proposal.Command != "mkdir -p drafts" {
		t.Errorf("proposal = %+v", resp.Proposal)
	}

	snap := fm.manager.Snapshot()
	if snap.Phase() != datatypes.PhaseApproving {
		t.Fatalf("phase = %q", snap.Phase())
	}
	if snap.Action.Command != "mkdir -p drafts" {
		t.Errorf("action command = %q", snap.Action.Command)
	}
}

func TestThinkClassifierRepairsMalformedVerdict(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.Mission.Purpose = "Write a blog"
		st.Mission.PurposeType = datatypes.PurposeFinite
	})
	// One malformed classifier reply, then a valid one on the repair turn.
	fm.client.script("Here you go.", "sure thing", conversationVerdict)

	resp := think(t, fm, "any topic ideas?")
	if resp.Intent != "conversation" || resp.NeedsApproval {
		t.Errorf("verdict = %+v", resp)
	}
	if fm.client.calls != 3 {
		t.Errorf("cognition calls = %d, the repair turn must be consumed", fm.client.calls)
	}
	if len(fm.eventsOfType(t, "llm_error")) != 0 {
		t.Error("a repaired verdict must not record llm_error")
	}
}

func TestThinkClassifierErrors(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
	}{
		{"not json", "sure thing"},
		{"bad intent", `{"intent": "maybe", "route": "dialogue", "proposal": null}`},
		{"bad route", `{"intent": "conversation", "route": "carrier-pigeon", "proposal": null}`},
		{"missing proposal key", `{"intent": "conversation", "route": "dialogue"}`},
		{"action without command", `{"intent": "action", "route": "terminal", "proposal": null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := newTestMachine(t, "")
			fm.seed(t, func(st *datatypes.State) {
				st.Mission.Purpose = "Write a blog"
				st.Mission.PurposeType = datatypes.PurposeFinite
			})
			// The repair attempt returns the same malformed verdict.
			fm.client.script("some answer", tt.verdict, tt.verdict)

			_, err := fm.Think(context.Background(), datatypes.ThinkRequest{
				Source:    "dialogue",
				Text:      "hello",
				SessionID: "console",
			})
			if err == nil {
				t.Fatal("malformed verdict must be an error, not a default")
			}
			if fm.client.calls != 3 {
				t.Errorf("cognition calls = %d, want one repair attempt", fm.client.calls)
			}
			errs := fm.eventsOfType(t, "llm_error")
			if len(errs) != 1 {
				t.Fatalf("llm_error events = %d", len(errs))
			}
			if errs[0].Fields["stage"] != "classify_intent" {
				t.Errorf("stage = %v", errs[0].Fields["stage"])
			}
			if errs[0].Fields["retry_used"] != true {
				t.Errorf("retry_used = %v", errs[0].Fields["retry_used"])
			}
		})
	}
}

func TestThinkOngoingCompletionKeyword(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.Mission.Purpose = "Keep the garden alive"
		st.Mission.PurposeType = datatypes.PurposeOngoing
		st.AddGoal("G1", "Water plants", datatypes.StatusActive)
	})

	resp := think(t, fm, "done")
	if resp.ResponseID != "purpose_manual_complete" {
		t.Errorf("response_id = %q", resp.ResponseID)
	}
	if fm.client.calls != 0 {
		t.Errorf("cognition calls = %d", fm.client.calls)
	}
	snap := fm.manager.Snapshot()
	if snap.Mission.Purpose != "" || len(snap.Mission.Goals) != 0 {
		t.Errorf("mission = %+v", snap.Mission)
	}
}

func TestThinkFinitePurposeIgnoresCompletionKeyword(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.Mission.Purpose = "Write a blog"
		st.Mission.PurposeType = datatypes.PurposeFinite
	})
	fm.client.script("Noted.", conversationVerdict)

	resp := think(t, fm, "done")
	if resp.ResponseID == "purpose_manual_complete" {
		t.Error("finite purposes end through their goals, not a keyword")
	}
	if got := fm.manager.Snapshot().Mission.Purpose; got != "Write a blog" {
		t.Errorf("purpose = %q", got)
	}
}

func TestCompletionKeywords(t *testing.T) {
	for _, s := range []string{"完了", "終了", "done", "FINISH", " complete "} {
		if !isCompletionKeyword(s) {
			t.Errorf("isCompletionKeyword(%q) = false", s)
		}
	}
	if isCompletionKeyword("almost done") {
		t.Error("substrings must not count")
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 50); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateText("日本語のテキスト", 4); got != "日本語の..." {
		t.Errorf("got %q", got)
	}
}
