/*
Package handler provides the HTTP handlers and routing setup for the operator surface.

This file defines the main Router, applying logging, CORS and recovery middleware before
delegating requests to the operator API (bearer token protected) and the WebSocket gateway.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/Quote121/threaded-sockets/internal/pkg/auth/jwt"
	"github.com/Quote121/threaded-sockets/internal/pkg/limiter"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
	"github.com/Quote121/threaded-sockets/internal/pkg/resp"
)

// Router sets up the main HTTP routing table (chi.Router) for the operator surface.
// The WebSocket gateway shares the chat server's per-IP join limiter with the TCP acceptor.
// Mutating operator endpoints have their own per-IP limiter.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	operatorLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.OperatorRate), deps.Config.OperatorBurst)

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "threaded-sockets",
			"users":   deps.Server.Count(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.RequireOperator(deps.Config.JWTSecret))

		api.Get("/users", HandleListUsers(deps))

		api.Group(func(mutating chi.Router) {
			mutating.Use(operatorLimiter.Middleware)

			mutating.Delete("/users/{alias}", HandleDisconnectUser(deps))
			mutating.Post("/broadcast", HandleBroadcast(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(deps, wsUpgrader, deps.Server.JoinLimiter()))

	return r
}
