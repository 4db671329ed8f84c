package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestAllowPerIP(t *testing.T) {
	t.Parallel()
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2)
	defer limiter.Stop()

	if !limiter.Allow("10.0.0.1:1000") || !limiter.Allow("10.0.0.1:1001") {
		t.Fatal("first two attempts within the burst should be allowed")
	}
	if limiter.Allow("10.0.0.1:1002") {
		t.Error("third attempt from the same IP should be rejected")
	}
	if !limiter.Allow("10.0.0.2:1000") {
		t.Error("a different IP has its own bucket")
	}
	if got := limiter.Len(); got != 2 {
		t.Errorf("tracked addresses: got %d, want 2", got)
	}
}

func TestSweepForgetsRefilledBuckets(t *testing.T) {
	t.Parallel()
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	defer limiter.Stop()

	limiter.Allow("10.0.0.1:1")
	removed, remaining := limiter.sweep(time.Now().Add(time.Minute))
	if removed != 1 || remaining != 0 {
		t.Errorf("sweep: removed %d remaining %d, want 1 and 0", removed, remaining)
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	t.Parallel()
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 1)
	defer limiter.Stop()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d, want %d", first.Code, http.StatusNoContent)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d, want %d", second.Code, http.StatusTooManyRequests)
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()
	if got := HostOf("1.2.3.4:99"); got != "1.2.3.4" {
		t.Errorf("HostOf: got %q", got)
	}
	if got := HostOf("1.2.3.4"); got != "1.2.3.4" {
		t.Errorf("HostOf without port: got %q", got)
	}
	if got := HostOf(""); got != "unknown_ip" {
		t.Errorf("HostOf empty: got %q", got)
	}
}
