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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AvatarCore/services/core/execrouter"
)

// execPayload is the wire form of an execution request. Authority defaults
// to avatar, the more restrictive level.
type execPayload struct {
	Backend       string         `json:"backend" binding:"required"`
	Action        string         `json:"action" binding:"required"`
	Params        map[string]any `json:"params"`
	Cwd           string         `json:"cwd"`
	Timeout       int            `json:"timeout"`
	CapabilityRef string         `json:"capability_ref"`
	Authority     string         `json:"authority"`
}

// Exec routes an execution request to its backend handler.
func Exec(router *execrouter.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload execPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if payload.Authority == "" {
			payload.Authority = string(execrouter.AuthorityAvatar)
		}
		authority := execrouter.Authority(payload.Authority)
		if !authority.Valid() {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid authority: %s", payload.Authority))
			return
		}
		backend := execrouter.Backend(payload.Backend)
		if !backend.Valid() {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid backend: %s", payload.Backend))
			return
		}

		result := router.Route(execrouter.Request{
			Backend:       backend,
			Action:        payload.Action,
			Params:        payload.Params,
			Cwd:           payload.Cwd,
			Timeout:       payload.Timeout,
			CapabilityRef: payload.CapabilityRef,
			Authority:     authority,
		})
		c.JSON(http.StatusOK, result)
	}
}
