/*
Package handler provides the HTTP handlers and routing setup for the LAN Chat server.

This file contains the WebSocket handler: it rate limits connection attempts,
upgrades the HTTP connection, registers it with the hub, and runs the client
read/write loops. Login happens over the socket itself, so the upgrade carries
no identity parameters.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/garyxuan/lan-chat/internal/app/chat"
	"github.com/garyxuan/lan-chat/internal/pkg/errs"
	"github.com/garyxuan/lan-chat/internal/pkg/limiter"
	"github.com/garyxuan/lan-chat/internal/pkg/logx"
	"github.com/garyxuan/lan-chat/internal/pkg/randx"
	"github.com/garyxuan/lan-chat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the request and
// attaches the resulting connection to the hub.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		outbox := deps.Hub.Register(connID)
		client := chat.NewClient(deps.Hub, conn, connID, outbox)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", connID)

		client.ReadPump()
	}
}
