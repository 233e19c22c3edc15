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
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AvatarCore/services/core/datatypes"
	"github.com/AleutianAI/AvatarCore/services/core/loop"
	"github.com/AleutianAI/AvatarCore/services/core/mission"
	"github.com/AleutianAI/AvatarCore/services/core/session"
)

// Roblox is the legacy workers-compatible game channel endpoint. The game
// threads conversations by previous_response_id; the response map translates
// that into a session id.
func Roblox(m *mission.Machine, sched *loop.Scheduler, responses *session.ResponseMap) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RobloxRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		prompt := strings.TrimSpace(req.Prompt)
		if prompt == "" {
			fail(c, http.StatusBadRequest, "prompt is required")
			return
		}
		sched.Start()

		sessionID := responses.Resolve(req.PreviousResponseID)
		if sessionID == "" {
			sessionID = fmt.Sprintf("roblox-%s", strings.ReplaceAll(uuid.NewString(), "-", ""))
		}

		result, err := m.Think(c.Request.Context(), datatypes.ThinkRequest{
			Source:    "roblox",
			Text:      prompt,
			SessionID: sessionID,
		})
		if err != nil {
			fail(c, http.StatusBadGateway, err.Error())
			return
		}
		if result.ResponseID == "" {
			fail(c, http.StatusBadGateway, "response_id is missing")
			return
		}
		responses.Bind(result.ResponseID, sessionID)

		c.JSON(http.StatusOK, datatypes.RobloxResponse{
			Success:    true,
			Text:       result.Response,
			ResponseID: result.ResponseID,
		})
	}
}
