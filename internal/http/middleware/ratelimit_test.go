package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestRateLimiterBurstPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Close()

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("expected burst of two to pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("expected other IP to have its own bucket")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := PerMinute(1)
	defer rl.Close()
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := send("192.0.2.1:1111"); got != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", got)
	}
	// Same host, different source port.
	if got := send("192.0.2.1:2222"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", got)
	}
	if got := send("192.0.2.9:1111"); got != http.StatusOK {
		t.Fatalf("expected other host to pass, got %d", got)
	}
}

func TestRateLimiterIgnoresProxyHeadersUnlessTrusted(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	send := func(h http.Handler, realIP string) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Real-Ip", realIP)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := PerMinute(1)
	defer direct.Close()
	h := direct.Middleware(ok)
	if got := send(h, "203.0.113.1"); got != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", got)
	}
	if got := send(h, "203.0.113.2"); got != http.StatusTooManyRequests {
		t.Fatalf("expected rotated header to stay limited, got %d", got)
	}

	proxied := PerMinute(1)
	defer proxied.Close()
	h = chimw.RealIP(proxied.Middleware(ok))
	if got := send(h, "203.0.113.1"); got != http.StatusOK {
		t.Fatalf("expected first proxied client to pass, got %d", got)
	}
	if got := send(h, "203.0.113.2"); got != http.StatusOK {
		t.Fatalf("expected second proxied client to have its own bucket, got %d", got)
	}
	if got := send(h, "203.0.113.1"); got != http.StatusTooManyRequests {
		t.Fatalf("expected repeat proxied client to be limited, got %d", got)
	}
}
