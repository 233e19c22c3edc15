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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AvatarCore/services/core/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const wsPingInterval = 30 * time.Second

// EventsWS streams event-log entries to a websocket client as they are
// appended. The durable log stays authoritative; a dropped connection can
// catch up via /events/recent.
func EventsWS(broadcaster *events.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("event stream client connected")

		ch, cancel := broadcaster.Subscribe()
		defer cancel()

		// Read pump: the client sends nothing meaningful, but reading is
		// required to notice a close frame.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()
		for {
			select {
			case <-done:
				slog.Info("event stream client disconnected")
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := ws.WriteJSON(ev); err != nil {
					slog.Warn("failed to write event to websocket", "error", err)
					return
				}
			case <-ping.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}
}
