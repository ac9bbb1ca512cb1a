package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/cssbruno/waba-sandbox/internal/errors"
	"github.com/cssbruno/waba-sandbox/internal/httputil"
)

// RateLimiter is a per-IP sliding-window request limiter
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow records a request for ip and reports whether it is within the limit
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	kept := rl.requests[ip][:0]
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.requests[ip] = kept
		return false
	}

	rl.requests[ip] = append(kept, now)
	return true
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.ClientIP(r)
		if !s.limiter.Allow(ip) {
			s.logger.WithField("remote_ip", ip).Warn("Rate limit exceeded")
			s.writeError(w, apperrors.New(apperrors.ErrCodeRateLimit, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminAuthMiddleware enforces bearer-token auth on the admin routes.
// With no token configured the check is disabled.
func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Server.AdminToken
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.writeError(w, apperrors.NewAuthError("missing bearer token"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			s.writeError(w, apperrors.NewAuthError("invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
