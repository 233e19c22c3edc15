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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
	"github.com/AleutianAI/AvatarCore/services/core/loop"
	"github.com/AleutianAI/AvatarCore/services/core/mission"
)

// Think is the core inference endpoint. Every channel funnels through it.
func Think(m *mission.Machine, sched *loop.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ThinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		// A stopped loop restarts itself on user activity.
		sched.Start()

		resp, err := m.Think(c.Request.Context(), req)
		if err != nil {
			slog.Error("think failed", "source", req.Source, "error", err)
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
