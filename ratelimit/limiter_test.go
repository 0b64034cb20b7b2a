package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowWithinWindow(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxRequests: 5, Window: 15 * time.Minute, Clock: clock})
	defer limiter.Close()

	ip := "203.0.113.10"

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow(ip)
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := limiter.Allow(ip)
	if allowed {
		t.Error("sixth request should be blocked")
	}
	if retryAfter != 15*time.Minute {
		t.Errorf("retryAfter = %v, want 15m", retryAfter)
	}

	// Другой IP считается отдельно.
	if allowed, _ := limiter.Allow("203.0.113.11"); !allowed {
		t.Error("different IP should be allowed")
	}
}

func TestWindowReset(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxRequests: 2, Window: 15 * time.Minute, Clock: clock})
	defer limiter.Close()

	ip := "203.0.113.10"
	limiter.Allow(ip)
	limiter.Allow(ip)

	clock.Advance(10 * time.Minute)
	if allowed, retryAfter := limiter.Allow(ip); allowed {
		t.Error("request inside window should be blocked")
	} else if retryAfter != 5*time.Minute {
		t.Errorf("retryAfter = %v, want 5m", retryAfter)
	}

	clock.Advance(5 * time.Minute)
	if allowed, _ := limiter.Allow(ip); !allowed {
		t.Error("request after window reset should be allowed")
	}
}

func TestMiddleware(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxRequests: 1, Window: 15 * time.Minute, Clock: clock})
	defer limiter.Close()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPut, "/reservas/1/confirm", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response must carry Retry-After")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		trustProxy bool
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.10:54321",
			want:       "203.0.113.10",
		},
		{
			name:       "spoofed header ignored without proxy trust",
			remoteAddr: "203.0.113.10:54321",
			xff:        "198.51.100.1",
			want:       "203.0.113.10",
		},
		{
			name:       "rightmost forwarded entry wins",
			remoteAddr: "10.0.0.1:80",
			xff:        "198.51.100.1, 198.51.100.2",
			trustProxy: true,
			want:       "198.51.100.2",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			xri:        "198.51.100.3",
			trustProxy: true,
			want:       "198.51.100.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := GetClientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
