// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AvatarCore/services/core/config"
	"github.com/AleutianAI/AvatarCore/services/core/loop"
	"github.com/AleutianAI/AvatarCore/services/core/mission"
)

// Health is the unauthenticated liveness endpoint with the daily token
// accounting.
func Health(m *mission.Machine, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": int(time.Since(startedAt).Seconds()),
			"tokens": m.TokenUsage(),
		})
	}
}

// GetState returns the full mission/action/result snapshot.
func GetState(m *mission.Machine, sched *loop.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched.Start()
		c.JSON(http.StatusOK, m.State().Snapshot())
	}
}

// RecentEvents returns the tail of the event log after the cursor.
func RecentEvents(m *mission.Machine, sched *loop.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched.Start()
		after := c.Query("after")
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				fail(c, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		events, err := m.State().Store().RecentEvents(after, limit)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// ConsoleConfig serves the console's presentation settings, with the avatar
// and user names injected and the command palette options derived from the
// configured choices.
func ConsoleConfig(provider *config.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := provider.Get()
		ui := gin.H{
			"theme":       cfg.ConsoleUI.Theme,
			"theme_color": cfg.ConsoleUI.ThemeColor,
			"user_color":  cfg.ConsoleUI.UserColor,
			"tool_color":  cfg.ConsoleUI.ToolColor,
			"themes":      cfg.ConsoleUI.Themes,
			"language":    cfg.User.Language,
			"name_tags": gin.H{
				"avatar":          cfg.Avatar.Name,
				"avatar_fullname": cfg.Avatar.Fullname,
				"user":            cfg.User.Name,
			},
		}

		options := gin.H{}
		if len(cfg.LLM.Models) > 0 {
			options["model"] = cfg.LLM.Models
		}
		if len(cfg.LLM.TemperaturePresets) > 0 {
			options["temperature"] = cfg.LLM.TemperaturePresets
		}
		if len(cfg.User.LanguageOptions) > 0 {
			labels := map[string]string{"ja": "Japanese", "en": "English"}
			langs := make([]gin.H, 0, len(cfg.User.LanguageOptions))
			for _, lang := range cfg.User.LanguageOptions {
				label, ok := labels[lang]
				if !ok {
					label = lang
				}
				langs = append(langs, gin.H{"label": label, "value": lang})
			}
			options["language"] = langs
		}
		if len(cfg.ConsoleUI.Themes) > 0 {
			names := make([]string, 0, len(cfg.ConsoleUI.Themes))
			for _, t := range cfg.ConsoleUI.Themes {
				names = append(names, t.Name)
			}
			options["theme"] = names
		}
		ui["command_palette"] = gin.H{"options": options}

		c.JSON(http.StatusOK, gin.H{"console_ui": ui})
	}
}
