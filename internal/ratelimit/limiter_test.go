package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledLimiterAlwaysAllows(t *testing.T) {
	l := New(Config{RequestsPerSecond: 0})
	for i := 0; i < 5; i++ {
		if res := l.Allow("any"); !res.Allowed {
			t.Fatal("expected disabled limiter to always allow")
		}
	}
}

func TestLimiterDeniesAfterBurstExhausted(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 2})
	key := "1.2.3.4"

	if !l.Allow(key).Allowed {
		t.Fatal("first request should be allowed")
	}
	if !l.Allow(key).Allowed {
		t.Fatal("second request (within burst) should be allowed")
	}
	denied := l.Allow(key)
	if denied.Allowed {
		t.Fatal("third immediate request should be denied")
	}
	if denied.Limit != 2 {
		t.Fatalf("expected Limit to report burst capacity 2, got %d", denied.Limit)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})

	if !l.Allow("a").Allowed {
		t.Fatal("key a should be allowed")
	}
	if !l.Allow("b").Allowed {
		t.Fatal("key b should be allowed independently of key a")
	}
	if l.Allow("a").Allowed {
		t.Fatal("key a should now be denied")
	}
}

func TestConfigKeyByIP(t *testing.T) {
	cfg := Config{Strategy: KeyByIP}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := cfg.Key("10.0.0.1", r); got != "10.0.0.1" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigKeyByHeader(t *testing.T) {
	cfg := Config{Strategy: KeyByHeader, HeaderName: "X-Api-Key"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Api-Key", "abc123")
	if got := cfg.Key("10.0.0.1", r); got != "abc123" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigKeyByRoute(t *testing.T) {
	cfg := Config{Strategy: KeyByRoute, RoutePath: "/api"}
	r := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	if got := cfg.Key("10.0.0.1", r); got != "/api" {
		t.Fatalf("got %q", got)
	}
}

func TestConfigKeyByCombination(t *testing.T) {
	cfg := Config{Strategy: KeyByCombination, HeaderName: "X-Api-Key"}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Api-Key", "abc123")
	if got := cfg.Key("10.0.0.1", r); got != "10.0.0.1|abc123" {
		t.Fatalf("got %q", got)
	}
}

func TestPeerIPStripsPort(t *testing.T) {
	if got := PeerIP("192.168.1.1:54321"); got != "192.168.1.1" {
		t.Fatalf("got %q", got)
	}
}

func TestPeerIPFallsBackWhenNoPort(t *testing.T) {
	if got := PeerIP("not-an-addr"); got != "not-an-addr" {
		t.Fatalf("got %q", got)
	}
}

func TestSweepRemovesIdleBuckets(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	l.Allow("stale")

	l.mu.Lock()
	l.buckets["stale"].lastSeen = time.Now().Add(-time.Hour)
	l.mu.Unlock()

	l.Sweep(time.Minute)

	l.mu.Lock()
	_, ok := l.buckets["stale"]
	l.mu.Unlock()
	if ok {
		t.Fatal("expected stale bucket to be swept")
	}
}

func TestWriteHeaders(t *testing.T) {
	h := make(http.Header)
	WriteHeaders(h, Result{Limit: 10, Remaining: 3, ResetSecs: 2})
	if h.Get("x-rate-limit-limit") != "10" {
		t.Fatalf("got limit header %q", h.Get("x-rate-limit-limit"))
	}
	if h.Get("x-rate-limit-remaining") != "3" {
		t.Fatalf("got remaining header %q", h.Get("x-rate-limit-remaining"))
	}
	if h.Get("x-ratelimit-reset") != "2" {
		t.Fatalf("got reset header %q", h.Get("x-ratelimit-reset"))
	}
}
