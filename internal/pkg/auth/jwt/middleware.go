/*
Package jwt issues and verifies the bearer tokens that guard the operator API.
*/
package jwt

import (
	"context"
	"net/http"
	"strings"

	"github.com/Quote121/threaded-sockets/internal/pkg/errs"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
	"github.com/Quote121/threaded-sockets/internal/pkg/resp"
)

type contextKey string

const (
	// ContextAuthPayloadKey stores the verified *Payload in the request context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// RequireOperator rejects requests without a valid operator bearer token with 401.
// On success the Payload is available through GetPayloadFromContext.
func RequireOperator(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			payload, err := ParseToken(parts[1], secretKey)
			if err != nil {
				logx.Warn("Rejected operator request with invalid token.", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			if payload.Role != RoleOperator {
				logx.Warn("Rejected operator request with wrong role.", "role", payload.Role)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext returns the verified operator payload, or nil outside RequireOperator.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}
