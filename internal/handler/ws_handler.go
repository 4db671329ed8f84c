/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

This file contains HandleWebSocket, which rate limits the request, upgrades it and hands the
connection to the chat server as a session speaking the same binary protocol as TCP peers.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Quote121/threaded-sockets/internal/app/chat"
	"github.com/Quote121/threaded-sockets/internal/pkg/errs"
	"github.com/Quote121/threaded-sockets/internal/pkg/limiter"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
	"github.com/Quote121/threaded-sockets/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that bridges WebSocket peers into the chat.
// The handler returns when the session ends.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r.RemoteAddr) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(r.RemoteAddr))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		done, err := deps.Server.ServeConn(newWSTransport(conn), chat.TransportWebSocket)
		if err != nil {
			logx.Info("WebSocket connection rejected: server is shutting down.")
			message := websocket.FormatCloseMessage(websocket.CloseGoingAway, errs.Reason(errs.ErrShuttingDown))
			conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeGracePeriod))
			conn.Close()
			return
		}

		logx.Debug("WebSocket connection handed to chat server.", "ip", logx.AnonymizeIP(r.RemoteAddr))

		<-done
	}
}
