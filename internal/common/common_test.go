package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRestrictionAllowsUnderLimit(t *testing.T) {
	now := time.Now()
	rest := Restriction{Requests: 2, Duration: time.Second}
	history := []time.Time{now.Add(-2 * time.Second), now.Add(-100 * time.Millisecond)}
	if analysis := rest.Analyse(history, now); !analysis.allowed {
		t.Fatalf("expected request to be allowed, got %+v", analysis)
	}
}

func TestRestrictionReportsWait(t *testing.T) {
	now := time.Now()
	rest := Restriction{Requests: 2, Duration: time.Second}
	history := []time.Time{now.Add(-400 * time.Millisecond), now.Add(-100 * time.Millisecond)}
	analysis := rest.Analyse(history, now)
	if analysis.allowed {
		t.Fatal("expected request to be restricted")
	}
	if analysis.wait != 600*time.Millisecond {
		t.Fatalf("wait = %v, want 600ms", analysis.wait)
	}
}

func TestRestrictionEmptyHistory(t *testing.T) {
	rest := Restriction{Requests: 1, Duration: time.Second}
	if analysis := rest.Analyse(nil, time.Now()); !analysis.allowed {
		t.Fatal("expected empty history to allow the request")
	}
}

func TestRateLimiterRejectsNonVital(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: time.Minute}}, time.Second)
	if !rl.Allowed(context.Background(), false) {
		t.Fatal("first request should be allowed")
	}
	if rl.Allowed(context.Background(), false) {
		t.Fatal("second non vital request should be rejected")
	}
}

func TestRateLimiterVitalWaits(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: 50 * time.Millisecond}}, time.Second)
	rl.Allowed(context.Background(), true)
	start := time.Now()
	if !rl.Allowed(context.Background(), true) {
		t.Fatal("vital request should eventually be allowed")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("vital request was not delayed (%v)", elapsed)
	}
}

func TestRateLimiterVitalHonoursContext(t *testing.T) {
	rl := NewRateLimiter([]Restriction{{Requests: 1, Duration: time.Minute}}, time.Second)
	rl.Allowed(context.Background(), true)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if rl.Allowed(ctx, true) {
		t.Fatal("expected cancellation to reject the request")
	}
	if len(rl.pendingVitalRequests) != 0 {
		t.Fatalf("pending vital requests not cleaned up: %d", len(rl.pendingVitalRequests))
	}
}

func TestRateLimiterBackoffAfter429(t *testing.T) {
	rl := NewRateLimiter(nil, time.Minute)
	rl.ReceivedRateLimit()
	if rl.Allowed(context.Background(), false) {
		t.Fatal("expected backoff to reject non vital requests")
	}
}

func TestTimedExecutor(t *testing.T) {
	runs := 0
	te := NewTimedExecutor(time.Hour, func() { runs++ })
	if !te.Execute() {
		t.Fatal("first call should run the task")
	}
	if te.Execute() {
		t.Fatal("second call inside the timeout should not run the task")
	}
	te.Reset()
	te.Execute()
	if runs != 2 {
		t.Fatalf("runs = %d, want 2", runs)
	}
}

func TestProxyRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		w.Write([]byte(`{"ok":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	proxy := NewProxy(map[string]string{"Authorization": "Bearer key"}, time.Second, nil)
	status, body, err := proxy.Request(context.Background(), http.MethodPost, srv.URL, []byte(`{}`), true)
	if err != nil {
		t.Fatalf("Request() error: %v", err)
	}
	if status != OK || string(body) != `{"ok":true}` {
		t.Fatalf("got %d %q", status, body)
	}
}

func TestProxyRateLimitedAnswerStartsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	proxy := NewProxy(nil, time.Second, nil)
	status, _, err := proxy.Request(context.Background(), http.MethodGet, srv.URL, nil, true)
	if err != nil || status != RATE_LIMIT_EXCEEDED {
		t.Fatalf("got %d, %v", status, err)
	}
	if _, _, err := proxy.Request(context.Background(), http.MethodGet, srv.URL, nil, false); err != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited during backoff, got %v", err)
	}
}
