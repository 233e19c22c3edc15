// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AvatarCore/services/core"
	"github.com/AleutianAI/AvatarCore/services/core/handlers"
	"github.com/AleutianAI/AvatarCore/services/core/middleware"
)

// SetupRoutes registers every endpoint. Health, metrics and the game
// channel's CORS preflight stay open; everything else requires the shared
// API key.
func SetupRoutes(router *gin.Engine, c *core.Core) {
	router.Use(middleware.RequestMetrics(c.Metrics))

	router.GET("/health", handlers.Health(c.Machine, c.StartedAt))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.APIKey(c.APIKey)

	v1 := router.Group("/v1", auth)
	{
		v1.POST("/think", handlers.Think(c.Machine, c.Scheduler))
		v1.POST("/exec", handlers.Exec(c.Router))
	}

	router.GET("/state", auth, handlers.GetState(c.Machine, c.Scheduler))
	router.GET("/events/recent", auth, handlers.RecentEvents(c.Machine, c.Scheduler))
	router.GET("/events/ws", auth, handlers.EventsWS(c.Broadcaster))
	router.GET("/console-config", auth, handlers.ConsoleConfig(c.Config))

	admin := router.Group("/admin", auth)
	{
		admin.POST("/approve", handlers.Approve(c.Machine))
		admin.POST("/reject", handlers.Reject(c.Machine))
		admin.POST("/cancel", handlers.Cancel(c.Machine))
		admin.POST("/complete", handlers.Complete(c.Machine))
		admin.POST("/retry", handlers.RetryTask(c.Machine))
		admin.POST("/continue", handlers.Continue(c.Machine))
		admin.POST("/reset", handlers.Reset(c.Machine))
		admin.POST("/purpose", handlers.SetPurpose(c.Machine))
		admin.POST("/goal", handlers.AddGoal(c.Machine))
		admin.POST("/task", handlers.AddTask(c.Machine))
		admin.GET("/config", handlers.GetConfig(c.Config))
		admin.POST("/config", handlers.UpdateConfig(c.Config, c.Sessions))
		admin.POST("/observation", handlers.Observation(c.Machine))
		admin.POST("/console-log", handlers.ConsoleLog(c.Machine))
	}

	loopGroup := router.Group("/loop", auth)
	{
		loopGroup.GET("/status", handlers.LoopStatus(c.Scheduler))
		loopGroup.POST("/start", handlers.LoopStart(c.Scheduler))
		loopGroup.POST("/stop", handlers.LoopStop(c.Scheduler))
	}

	// Legacy workers-compatible game channel: CORS first so the preflight
	// never hits auth.
	roblox := router.Group("/roblox", middleware.RobloxCORS())
	{
		roblox.OPTIONS("", func(ctx *gin.Context) {})
		roblox.POST("", auth, handlers.Roblox(c.Machine, c.Scheduler, c.Responses))
	}
}
