package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type window struct {
	used    int
	resetAt time.Time
}

// RateLimit caps requests per client IP inside a fixed window. Submissions
// spend remote generation quota, so the budget is deliberately small; expired
// windows are dropped as they are touched to keep the map bounded.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	var mu sync.Mutex
	windows := make(map[string]*window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			now := time.Now()

			mu.Lock()
			win, ok := windows[ip]
			if !ok || now.After(win.resetAt) {
				win = &window{resetAt: now.Add(per)}
				windows[ip] = win
				for key, other := range windows {
					if now.After(other.resetAt) {
						delete(windows, key)
					}
				}
			}
			if win.used >= limit {
				mu.Unlock()
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			win.used++
			mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// clientIPForRateLimit prefers the first valid X-Forwarded-For hop, then the
// remote address.
func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip != "" && net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
