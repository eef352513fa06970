package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	// Burst of 30 for a fresh IP, then rejections.
	for i := 0; i < 30; i++ {
		if code := do("203.0.113.7"); code != http.StatusOK {
			t.Fatalf("request %d rejected with %d before the burst was exhausted", i+1, code)
		}
	}
	if code := do("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst exhaustion, got %d", code)
	}

	// A different IP gets its own limiter.
	if code := do("203.0.113.8"); code != http.StatusOK {
		t.Errorf("fresh IP rejected with %d", code)
	}
}
