// Package ratelimit throttles repeated attempts (logins, payment submissions)
// per identifier and per client IP over a sliding window.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds the limits for one kind of attempt.
type Config struct {
	Name string // "login", "payment_submit"; used in keys and logs

	MaxAttempts   int           // per identifier within Window
	Window        time.Duration // sliding window length
	Lockout       time.Duration // applied once MaxAttempts is reached (0 = Window)
	MaxIPAttempts int           // per client IP within Window (0 disables)

	// Clock for testing (nil uses real time)
	Clock Clock
}

// LoginConfig returns the limits for password logins.
func LoginConfig(maxAttempts int, window time.Duration) *Config {
	return &Config{
		Name:          "login",
		MaxAttempts:   maxAttempts,
		Window:        window,
		Lockout:       window,
		MaxIPAttempts: maxAttempts * 6,
	}
}

// PaymentConfig returns the limits for payment submissions and retries.
func PaymentConfig() *Config {
	return &Config{
		Name:          "payment_submit",
		MaxAttempts:   10,
		Window:        10 * time.Minute,
		Lockout:       10 * time.Minute,
		MaxIPAttempts: 60,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type window struct {
	attempts []time.Time
	lockedAt time.Time
}

func (w *window) prune(now time.Time, length time.Duration) {
	cut := 0
	for cut < len(w.attempts) && now.Sub(w.attempts[cut]) >= length {
		cut++
	}
	w.attempts = w.attempts[cut:]
}

// Limiter counts attempts per hashed identifier and per hashed IP.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	byID   map[string]*window
	byIP   map[string]*window

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = PaymentConfig()
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = cfg.Window
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		byID:          make(map[string]*window),
		byIP:          make(map[string]*window),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Check reports whether another attempt is allowed. It does not record one.
func (l *Limiter) Check(identifier, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	idKey := l.hashKey("id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	if w := l.byID[idKey]; w != nil {
		if !w.lockedAt.IsZero() {
			if elapsed := now.Sub(w.lockedAt); elapsed < l.config.Lockout {
				return LimitResult{RetryAfter: l.config.Lockout - elapsed, Reason: "lockout"}
			}
			delete(l.byID, idKey)
		} else {
			w.prune(now, l.config.Window)
			if len(w.attempts) >= l.config.MaxAttempts {
				return LimitResult{RetryAfter: l.config.Window - now.Sub(w.attempts[0]), Reason: "max_attempts"}
			}
		}
	}

	if l.config.MaxIPAttempts > 0 {
		if w := l.byIP[ipKey]; w != nil {
			w.prune(now, l.config.Window)
			if len(w.attempts) >= l.config.MaxIPAttempts {
				return LimitResult{RetryAfter: l.config.Window - now.Sub(w.attempts[0]), Reason: "ip_limit"}
			}
		}
	}

	return LimitResult{Allowed: true}
}

// Record counts an attempt. Returns true when this attempt started a lockout.
func (l *Limiter) Record(identifier, ip string) (lockedOut bool) {
	now := l.clock.Now()
	idKey := l.hashKey("id:", normalizeIdentifier(identifier))
	ipKey := l.hashKey("ip:", ip)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.byID[idKey]
	if w == nil || (!w.lockedAt.IsZero() && now.Sub(w.lockedAt) >= l.config.Lockout) {
		w = &window{}
		l.byID[idKey] = w
	}
	w.prune(now, l.config.Window)
	w.attempts = append(w.attempts, now)
	if len(w.attempts) >= l.config.MaxAttempts && w.lockedAt.IsZero() {
		w.lockedAt = now
		lockedOut = true
	}

	ipw := l.byIP[ipKey]
	if ipw == nil {
		ipw = &window{}
		l.byIP[ipKey] = ipw
	}
	ipw.prune(now, l.config.Window)
	ipw.attempts = append(ipw.attempts, now)

	return lockedOut
}

// Reset clears the identifier's attempts, e.g. after a successful login.
func (l *Limiter) Reset(identifier string) {
	idKey := l.hashKey("id:", normalizeIdentifier(identifier))
	l.mu.Lock()
	delete(l.byID, idKey)
	l.mu.Unlock()
}

func (l *Limiter) hashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(l.config.Name + ":" + value))
	return prefix + hex.EncodeToString(hash[:8])
}

// normalizeIdentifier lowercases the identifier to prevent case-based bypass.
func normalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
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
	maxAge := l.config.Window + l.config.Lockout
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, m := range []map[string]*window{l.byID, l.byIP} {
		for k, w := range m {
			last := w.lockedAt
			if n := len(w.attempts); n > 0 && w.attempts[n-1].After(last) {
				last = w.attempts[n-1]
			}
			if now.Sub(last) > maxAge {
				delete(m, k)
			}
		}
	}
}

// LogRateLimitExceeded logs a rejected attempt with a masked identifier.
func LogRateLimitExceeded(limitType, identifier, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Str("type", limitType).
		Str("identifier", SanitizeIdentifier(identifier)).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Rate limit exceeded")
}

// Name returns the configured attempt kind.
func (l *Limiter) Name() string {
	return l.config.Name
}
