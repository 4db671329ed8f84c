package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func operatorHandler(t *testing.T) http.Handler {
	t.Helper()
	return RequireOperator(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := GetPayloadFromContext(r)
		if payload == nil {
			t.Error("payload missing from context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Operator", payload.Name)
		w.WriteHeader(http.StatusNoContent)
	}))
}

func mustToken(t *testing.T, payload *Payload, secret string, duration time.Duration) string {
	t.Helper()
	token, err := GenerateToken(payload, secret, duration)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func TestRequireOperator(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.token", want: http.StatusUnauthorized},
		{
			name:   "wrong secret",
			header: "Bearer " + mustToken(t, &Payload{Name: "ops", Role: RoleOperator}, "other", time.Hour),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "expired",
			header: "Bearer " + mustToken(t, &Payload{Name: "ops", Role: RoleOperator}, testSecret, -time.Hour),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "wrong role",
			header: "Bearer " + mustToken(t, &Payload{Name: "ops", Role: "guest"}, testSecret, time.Hour),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "valid operator",
			header: "Bearer " + mustToken(t, &Payload{Name: "ops", Role: RoleOperator}, testSecret, time.Hour),
			want:   http.StatusNoContent,
		},
	}

	handler := operatorHandler(t)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if test.header != "" {
				r.Header.Set("Authorization", test.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != test.want {
				t.Errorf("status: got %d, want %d", w.Code, test.want)
			}
			if test.want == http.StatusNoContent && w.Header().Get("X-Operator") != "ops" {
				t.Errorf("operator name not propagated: %q", w.Header().Get("X-Operator"))
			}
		})
	}
}
