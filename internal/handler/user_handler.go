/*
Package handler provides HTTP handler functions for the operator API.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/pkg/auth/jwt"
	"github.com/Quote121/threaded-sockets/internal/pkg/errs"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
	"github.com/Quote121/threaded-sockets/internal/pkg/req"
	"github.com/Quote121/threaded-sockets/internal/pkg/resp"
)

// HandleListUsers returns every registered user, oldest connection first.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := deps.Server.Users()

		resp.RespondSuccess(w, r, map[string]any{
			"count": len(users),
			"users": users,
		})
	}
}

// HandleDisconnectUser ends the session of the user named by the alias URL parameter.
func HandleDisconnectUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alias := chi.URLParam(r, "alias")

		if !deps.Server.Disconnect(alias) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound, alias))
			return
		}

		operator := ""
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			operator = payload.Name
		}
		logx.Info("User disconnected by operator.", "alias", alias, "operator", operator)

		resp.RespondSuccess(w, r, map[string]any{
			"alias": alias,
		})
	}
}

type BroadcastInput struct {
	Message string `json:"message"`
}

// HandleBroadcast sends a server-originated chat message to every registered user.
func HandleBroadcast(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input BroadcastInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Message == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if len(input.Message) > protocol.MaxPayload {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		recipients := deps.Server.Count()
		if err := deps.Server.Announce(input.Message); err != nil {
			// Failed recipients are cleaned up by their own sessions.
			logx.Warn("Operator broadcast partially failed.", "error", err.Error())
		}

		resp.RespondSuccess(w, r, map[string]any{
			"recipients": recipients,
		})
	}
}
