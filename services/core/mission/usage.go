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
	"time"

	"github.com/AleutianAI/AvatarCore/services/core/cognition"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
)

// UsageReport is the daily token accounting served over /v1/health.
type UsageReport struct {
	Used    int     `json:"used"`
	Limit   int     `json:"limit"`
	Percent float64 `json:"percent"`
	Date    string  `json:"date"`
}

func usageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// trackUsage accumulates total tokens from every provider reply into the
// persisted daily counter. The counter resets when the UTC day rolls over.
func (m *Machine) trackUsage(reply cognition.Reply) {
	if reply.TotalTokens <= 0 {
		return
	}
	today := usageDay(time.Now())
	var used int
	err := m.state.Update(func(st *datatypes.State) error {
		if st.TokenUsage == nil || st.TokenUsage.Date != today {
			st.TokenUsage = &datatypes.TokenUsage{Date: today}
		}
		st.TokenUsage.Used += reply.TotalTokens
		used = st.TokenUsage.Used
		return nil
	})
	if err != nil {
		m.logger.Error("failed to persist token usage", "error", err)
		return
	}
	m.metrics.SetTokensUsed(used)

	limit := m.cfg.Get().LLM.DailyTokenLimit
	if limit > 0 && used >= limit {
		m.logger.Warn("daily token limit reached", "used", used, "limit", limit)
	}
}

// TokenUsage reports today's consumption against the configured limit.
func (m *Machine) TokenUsage() UsageReport {
	snap := m.state.Snapshot()
	limit := m.cfg.Get().LLM.DailyTokenLimit
	rep := UsageReport{Limit: limit, Date: usageDay(time.Now())}
	if snap.TokenUsage != nil && snap.TokenUsage.Date == rep.Date {
		rep.Used = snap.TokenUsage.Used
	}
	if limit > 0 {
		rep.Percent = float64(rep.Used) / float64(limit) * 100
	}
	return rep
}
