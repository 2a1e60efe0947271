package ratelimit

import (
	"net/http"
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
	return &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		Name:          "login",
		MaxAttempts:   3,
		Window:        15 * time.Minute,
		Lockout:       10 * time.Minute,
		MaxIPAttempts: 100,
		Clock:         clock,
	})
	defer limiter.Close()

	for i := 0; i < 2; i++ {
		if res := limiter.Check("member@example.com", "203.0.113.9"); !res.Allowed {
			t.Fatalf("attempt %d should be allowed, got %s", i+1, res.Reason)
		}
		if limiter.Record("member@example.com", "203.0.113.9") {
			t.Fatalf("attempt %d should not lock out", i+1)
		}
	}
	if !limiter.Record("member@example.com", "203.0.113.9") {
		t.Fatal("third attempt should start the lockout")
	}

	clock.Advance(4 * time.Minute)
	res := limiter.Check("MEMBER@example.com ", "198.51.100.1")
	if res.Allowed || res.Reason != "lockout" {
		t.Fatalf("expected lockout regardless of case and IP, got %+v", res)
	}
	if res.RetryAfter != 6*time.Minute {
		t.Fatalf("expected RetryAfter 6m, got %v", res.RetryAfter)
	}

	clock.Advance(6 * time.Minute)
	if res := limiter.Check("member@example.com", "203.0.113.9"); !res.Allowed {
		t.Fatalf("lockout should have expired, got %s", res.Reason)
	}
	if limiter.Record("member@example.com", "203.0.113.9") {
		t.Fatal("first attempt after lockout must start a fresh window")
	}
}

func TestSlidingWindowForgetsOldAttempts(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		Name:        "payment_submit",
		MaxAttempts: 3,
		Window:      10 * time.Minute,
		Lockout:     10 * time.Minute,
		Clock:       clock,
	})
	defer limiter.Close()

	limiter.Record("42", "203.0.113.9")
	clock.Advance(6 * time.Minute)
	limiter.Record("42", "203.0.113.9")
	clock.Advance(5 * time.Minute)

	// The first attempt has slid out of the window.
	if limiter.Record("42", "203.0.113.9") {
		t.Fatal("only two attempts are inside the window")
	}
	if res := limiter.Check("42", "203.0.113.9"); !res.Allowed {
		t.Fatalf("expected allowed, got %s", res.Reason)
	}
}

func TestIPLimitAcrossIdentifiers(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{
		Name:          "login",
		MaxAttempts:   5,
		Window:        time.Hour,
		MaxIPAttempts: 3,
		Clock:         clock,
	})
	defer limiter.Close()

	ip := "203.0.113.77"
	for _, id := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		limiter.Record(id, ip)
	}

	res := limiter.Check("d@example.com", ip)
	if res.Allowed || res.Reason != "ip_limit" {
		t.Fatalf("expected ip_limit, got %+v", res)
	}
	if res := limiter.Check("d@example.com", "198.51.100.1"); !res.Allowed {
		t.Fatalf("other IPs should be unaffected, got %s", res.Reason)
	}

	clock.Advance(time.Hour)
	if res := limiter.Check("d@example.com", ip); !res.Allowed {
		t.Fatalf("IP window should have slid, got %s", res.Reason)
	}
}

func TestResetClearsIdentifier(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{Name: "login", MaxAttempts: 2, Window: time.Hour, Clock: clock})
	defer limiter.Close()

	limiter.Record("member@example.com", "203.0.113.9")
	limiter.Record("member@example.com", "203.0.113.9")
	if res := limiter.Check("member@example.com", "203.0.113.9"); res.Allowed {
		t.Fatal("expected lockout before reset")
	}

	limiter.Reset("Member@Example.com")
	if res := limiter.Check("member@example.com", "203.0.113.9"); !res.Allowed {
		t.Fatalf("expected allowed after reset, got %s", res.Reason)
	}
}

func TestLimitersAreIsolatedByName(t *testing.T) {
	clock := newMockClock()
	login := New(&Config{Name: "login", MaxAttempts: 1, Window: time.Hour, Clock: clock})
	defer login.Close()
	payments := New(&Config{Name: "payment_submit", MaxAttempts: 1, Window: time.Hour, Clock: clock})
	defer payments.Close()

	login.Record("7", "203.0.113.9")
	if res := payments.Check("7", "203.0.113.9"); !res.Allowed {
		t.Fatalf("payment limiter must not see login attempts, got %s", res.Reason)
	}
	if login.Name() != "login" || payments.Name() != "payment_submit" {
		t.Fatal("unexpected limiter names")
	}
}

func TestLoginConfigDefaults(t *testing.T) {
	cfg := LoginConfig(5, 15*time.Minute)
	if cfg.MaxAttempts != 5 || cfg.Window != 15*time.Minute || cfg.Lockout != 15*time.Minute {
		t.Fatalf("unexpected login config: %+v", cfg)
	}
	if cfg.MaxIPAttempts != 30 {
		t.Fatalf("expected 30 IP attempts, got %d", cfg.MaxIPAttempts)
	}
	if p := PaymentConfig(); p.Name != "payment_submit" || p.MaxAttempts <= 0 {
		t.Fatalf("unexpected payment config: %+v", p)
	}
}

func TestGetClientIP_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "TrustProxy=true, XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50", // Rightmost non-private
		},
		{
			name:       "TrustProxy=true, XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1", // Last one when all private
		},
		{
			name:       "TrustProxy=true, X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "TrustProxy=false, ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100", // Uses RemoteAddr, ignores spoofed XFF
		},
		{
			name:       "TrustProxy=false, ignores X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "No headers, RemoteAddr only",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: true,
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			got := GetClientIP(r, tt.trustProxy)
			if got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetClientIP_SpoofingPrevention(t *testing.T) {
	// Attacker sends fake X-Forwarded-For header
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4") // Attacker-supplied
	r.RemoteAddr = "192.168.1.100:54321"       // Real connection

	// With TrustProxy=false, the fake header is ignored
	got := GetClientIP(r, false)
	if got != "192.168.1.100" {
		t.Errorf("Should ignore X-Forwarded-For when TrustProxy=false, got %q", got)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"JOHN.DOE@EXAMPLE.COM", "jo***@example.com"}, // Normalized to lowercase
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"+15551234567", "***4567"},
		{"5551234567", "***4567"},
		{"123", "***"},
		{"", "***"},
		{"  User@Example.Com  ", "us***@example.com"}, // Trimmed and lowercased
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeIdentifier(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
