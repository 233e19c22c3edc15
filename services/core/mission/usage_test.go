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
	"testing"
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

func TestTrackUsageAccumulates(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.trackUsage(cognition.Reply{TotalTokens: 100})
	fm.trackUsage(cognition.Reply{TotalTokens: 50})
	fm.trackUsage(cognition.Reply{TotalTokens: 0}) // no-op

	snap := fm.manager.Snapshot()
	if snap.TokenUsage == nil || snap.TokenUsage.Used != 150 {
		t.Errorf("usage = %+v", snap.TokenUsage)
	}
	if snap.TokenUsage.Date != usageDay(time.Now()) {
		t.Errorf("date = %q", snap.TokenUsage.Date)
	}
}

func TestTrackUsageResetsOnNewDay(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.TokenUsage = &datatypes.TokenUsage{Used: 900, Date: "2001-01-01"}
	})

	fm.trackUsage(cognition.Reply{TotalTokens: 25})

	snap := fm.manager.Snapshot()
	if snap.TokenUsage.Used != 25 {
		t.Errorf("used = %d, stale counter must reset", snap.TokenUsage.Used)
	}
	if snap.TokenUsage.Date != usageDay(time.Now()) {
		t.Errorf("date = %q", snap.TokenUsage.Date)
	}
}

func TestTokenUsageReport(t *testing.T) {
	// testConfigYAML sets daily_token_limit: 1000.
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.TokenUsage = &datatypes.TokenUsage{Used: 250, Date: usageDay(time.Now())}
	})

	rep := fm.TokenUsage()
	if rep.Used != 250 || rep.Limit != 1000 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Percent != 25 {
		t.Errorf("percent = %v", rep.Percent)
	}
}

func TestTokenUsageReportIgnoresStaleDay(t *testing.T) {
	fm := newTestMachine(t, "")
	fm.seed(t, func(st *datatypes.State) {
		st.TokenUsage = &datatypes.TokenUsage{Used: 999, Date: "2001-01-01"}
	})

	rep := fm.TokenUsage()
	if rep.Used != 0 {
		t.Errorf("used = %d, yesterday's spend must not count", rep.Used)
	}
}
