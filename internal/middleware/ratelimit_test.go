package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    3,
		window:   time.Minute,
	}

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("request 4 allowed, want rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("distinct ip rejected, want allowed")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    1,
		window:   time.Minute,
	}

	if !rl.Allow("10.0.0.1") {
		t.Fatalf("first request rejected")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("second request allowed inside window")
	}

	// Age the recorded request past the window.
	rl.mu.Lock()
	rl.requests["10.0.0.1"] = []time.Time{time.Now().Add(-2 * time.Minute)}
	rl.mu.Unlock()

	if !rl.Allow("10.0.0.1") {
		t.Fatalf("request after window rejected, want allowed")
	}
}
