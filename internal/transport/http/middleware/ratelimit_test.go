package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitEnforcesWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute, clientIPKey)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if !rl.enforce(rec, req) {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if rl.enforce(rec, req) {
		t.Fatal("third request should be limited")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("limited response code = %d, want 429", rec.Code)
	}
}

func TestRateLimitSweepEvictsExpiredBuckets(t *testing.T) {
	rl := newRateLimiter(5, time.Minute, clientIPKey)
	now := time.Now()

	rl.clients["stale-a"] = &rateBucket{count: 3, reset: now.Add(-2 * time.Minute)}
	rl.clients["stale-b"] = &rateBucket{count: 1, reset: now.Add(-time.Second)}
	rl.clients["live"] = &rateBucket{count: 2, reset: now.Add(30 * time.Second)}

	rl.mu.Lock()
	rl.sweep(now)
	rl.mu.Unlock()

	if len(rl.clients) != 1 {
		t.Fatalf("clients after sweep = %d, want 1", len(rl.clients))
	}
	if _, ok := rl.clients["live"]; !ok {
		t.Fatal("live bucket evicted")
	}
	if !rl.nextSweep.After(now) {
		t.Fatal("next sweep not rescheduled")
	}
}

func TestRateLimitEnforceTriggersSweep(t *testing.T) {
	rl := newRateLimiter(5, time.Minute, clientIPKey)
	past := time.Now().Add(-2 * time.Minute)
	rl.clients["stale"] = &rateBucket{count: 4, reset: past}
	rl.nextSweep = past

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	if !rl.enforce(rec, req) {
		t.Fatal("request unexpectedly limited")
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["stale"]; ok {
		t.Fatal("stale bucket survived enforce-triggered sweep")
	}
	if _, ok := rl.clients["10.0.0.2"]; !ok {
		t.Fatal("current request bucket missing")
	}
}
