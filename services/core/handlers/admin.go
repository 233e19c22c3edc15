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
	"github.com/AleutianAI/AvatarCore/services/core/mission"
)

// Admin operations. Each validates the current phase inside the mission
// machine and returns 400 on mismatch with state untouched.

func Approve(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		action, err := m.Approve()
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"action": action})
	}
}

func Reject(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := m.Reject()
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

func Cancel(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := m.Cancel()
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "canceled", "summary": summary})
	}
}

func Complete(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CompleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		result, action, err := m.Complete(c.Request.Context(), req)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result, "action": action})
	}
}

func Continue(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Continue(); err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "continued", "message": "loop continued"})
	}
}

func Reset(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.Reset(); err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reset", "message": "state was reset"})
	}
}

func SetPurpose(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.PurposeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		purpose, err := m.SetPurpose(req.Purpose)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"purpose": purpose})
	}
}

func AddGoal(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.GoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		goals, err := m.AddGoal(req.GoalID, req.Name)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"goals": goals})
	}
}

func AddTask(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		goals, err := m.AddTask(req.GoalID, req.TaskID, req.Name)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"goals": goals})
	}
}

func RetryTask(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.RetryTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		goalID, err := m.RetryTask(req.TaskID)
		if err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "retrying", "task_id": req.TaskID, "goal_id": goalID})
	}
}

// Observation feeds a terminal execution result back into a session. The
// command+output form is verified by the cognition provider; the legacy
// content-only form is recorded verbatim.
func Observation(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ObservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		outcome, err := m.Observation(c.Request.Context(), req)
		if err != nil {
			slog.Error("observation verification failed", "session", req.SessionID, "error", err)
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		if req.Content != "" && req.Command == "" {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "success": true, "summary": "completed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "success": outcome.Success, "message": outcome.Message})
	}
}

func ConsoleLog(m *mission.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ConsoleLogRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := m.ConsoleLog(req); err != nil {
			failErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
