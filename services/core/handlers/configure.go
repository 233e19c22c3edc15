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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AvatarCore/services/core/config"
	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
	"github.com/AleutianAI/AvatarCore/services/core/session"
)

func configView(cfg *config.Config) gin.H {
	return gin.H{
		"model":         cfg.LLM.Model,
		"temperature":   cfg.LLM.Temperature,
		"system_prompt": cfg.SystemPrompt,
		"language":      cfg.User.Language,
		"theme":         cfg.ConsoleUI.Theme,
	}
}

// GetConfig returns only the admin-changeable settings.
func GetConfig(provider *config.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, configView(provider.Get()))
	}
}

// UpdateConfig applies a partial configuration update, persists it, and
// invalidates every session so the new settings take effect immediately.
func UpdateConfig(provider *config.Provider, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var update datatypes.ConfigUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		cfg, err := provider.Apply(update)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		sessions.ResetAll()
		c.JSON(http.StatusOK, configView(cfg))
	}
}
