// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP endpoints of the core service. Every
// handler takes its dependencies as arguments and returns a gin.HandlerFunc,
// so routes.SetupRoutes is the single place wiring happens.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AvatarCore/services/core/mission"
)

// fail writes the FastAPI-compatible error body the console expects.
func fail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// failErr maps a mission operation error to its HTTP status: missing
// entities are 404, phase/validation rejections 400.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mission.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, mission.ErrNoAction),
		errors.Is(err, mission.ErrWrongPhase),
		errors.Is(err, mission.ErrInvalid):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
