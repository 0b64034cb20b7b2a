// Package ratelimit throttles the public confirm/cancel link endpoints,
// which are reachable without a session and keyed only by reservation id.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the fixed-window limit parameters.
type Config struct {
	// MaxRequests per IP per window.
	MaxRequests int
	// Window length of the fixed window.
	Window time.Duration
	// TrustProxy enables reading the client IP from proxy headers.
	TrustProxy bool
	// Clock for testing (nil uses real time).
	Clock Clock
}

// DefaultConfig matches the public action-link endpoints: a legitimate
// user clicks a link once or twice, not five times in a quarter hour.
func DefaultConfig() *Config {
	return &Config{
		MaxRequests: 5,
		Window:      15 * time.Minute,
	}
}

type entry struct {
	count   int
	firstAt time.Time
}

// Limiter is a fixed-window per-IP rate limiter held in memory. State is
// per process, which is the deployment shape of this service.
type Limiter struct {
	config *Config
	clock  Clock

	mu      sync.Mutex
	entries map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		entries:       make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Allow records a request from ip and reports whether it fits in the
// current window. When denied, retryAfter says how long until the window
// resets.
func (l *Limiter) Allow(ip string) (allowed bool, retryAfter time.Duration) {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[ip]
	if e == nil || now.Sub(e.firstAt) >= l.config.Window {
		l.entries[ip] = &entry{count: 1, firstAt: now}
		return true, 0
	}

	if e.count >= l.config.MaxRequests {
		return false, l.config.Window - now.Sub(e.firstAt)
	}

	e.count++
	return true, 0
}

// Middleware rejects over-limit requests with 429 and a Retry-After
// header.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r, l.config.TrustProxy)
		allowed, retryAfter := l.Allow(ip)
		if !allowed {
			slog.Warn("rate limit exceeded",
				slog.String("ip", ip), slog.String("path", r.URL.Path))
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests, try again later"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.entries {
		if now.Sub(e.firstAt) >= l.config.Window {
			delete(l.entries, ip)
		}
	}
}

// GetClientIP extracts the client IP. With trustProxy the rightmost
// X-Forwarded-For entry wins, otherwise proxy headers are ignored so
// they cannot be spoofed.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[len(parts)-1])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
