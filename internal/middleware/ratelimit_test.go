package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitEnforcesPerClientBudget(t *testing.T) {
	handler := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("198.51.100.10:1234"); code != http.StatusAccepted {
			t.Fatalf("request %d: status %d", i+1, code)
		}
	}
	if code := do("198.51.100.10:1234"); code != http.StatusTooManyRequests {
		t.Fatalf("over-budget request: status %d, want 429", code)
	}

	// Other clients keep their own budget.
	if code := do("203.0.113.5:9999"); code != http.StatusAccepted {
		t.Fatalf("unrelated client throttled: status %d", code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	handler := RateLimit(1, 10*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusAccepted {
		t.Fatalf("first request: status %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request in window: status %d", code)
	}
	time.Sleep(15 * time.Millisecond)
	if code := do(); code != http.StatusAccepted {
		t.Fatalf("request after window reset: status %d", code)
	}
}

func TestClientIPForRateLimit(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{"forwarded single hop", "203.0.113.7", "198.51.100.20:4242", "203.0.113.7"},
		{"forwarded first hop wins", " 203.0.113.7 , 198.51.100.9 ", "198.51.100.20:4242", "203.0.113.7"},
		{"garbage forwarded falls back to remote", "not-an-ip", "198.51.100.20:4242", "198.51.100.20"},
		{"no forwarded header", "", "198.51.100.20:4242", "198.51.100.20"},
		{"forwarded ipv6", "2001:db8::7", net.JoinHostPort("2001:db8::9", "443"), "2001:db8::7"},
		{"remote ipv6 fallback", "not-an-ip", net.JoinHostPort("2001:db8::9", "443"), "2001:db8::9"},
		{"remote without port", "not-an-ip", "203.0.113.7", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIPForRateLimit(req); got != tt.want {
				t.Fatalf("clientIPForRateLimit() = %q, want %q", got, tt.want)
			}
		})
	}
}
