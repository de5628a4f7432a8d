// Package ratelimit implements the per-key request limiter referenced by
// the Connection Orchestrator (spec.md §4.D step 2). spec.md describes the
// production mechanism as a lock-free sliding-window count-min-sketch; this
// implementation approximates that with a per-key token bucket from
// golang.org/x/time/rate (see DESIGN.md Open Question 3), which gives the
// same steady-state admission behavior without the sketch's false-positive
// collision risk.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyStrategy selects what identifies a caller for rate-limiting purposes.
type KeyStrategy int

const (
	KeyByIP KeyStrategy = iota
	KeyByHeader
	KeyByRoute
	KeyByCombination // IP + header, joined
)

// Config describes one route's (or the global) rate-limit policy.
type Config struct {
	Strategy   KeyStrategy
	HeaderName string // used by KeyByHeader and KeyByCombination
	RoutePath  string // used by KeyByRoute

	RequestsPerSecond float64
	Burst             int
}

// Result carries the values the orchestrator writes into X-RateLimit-*
// response headers, per spec.md §6.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetSecs int
}

// entry pairs a token bucket with the last time it was touched, so idle
// keys can be swept instead of growing the map forever.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds one token bucket per resolved key. Buckets are created
// lazily on first use and reclaimed by Sweep.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*entry
	cfg     Config
	now     func() time.Time
}

// New constructs a Limiter for cfg. RequestsPerSecond <= 0 disables limiting
// (Allow always reports allowed).
func New(cfg Config) *Limiter {
	return &Limiter{
		buckets: make(map[string]*entry),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Key resolves the rate-limit bucket key for a request, per cfg.Strategy.
// peerIP is the already-stripped host portion of the remote address.
func (cfg Config) Key(peerIP string, r *http.Request) string {
	switch cfg.Strategy {
	case KeyByHeader:
		return r.Header.Get(cfg.HeaderName)
	case KeyByRoute:
		return cfg.RoutePath
	case KeyByCombination:
		return peerIP + "|" + r.Header.Get(cfg.HeaderName)
	default:
		return peerIP
	}
}

// PeerIP strips the port from a net.Addr-style "host:port" string, falling
// back to the whole string if it does not parse.
func PeerIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// Allow consumes one token for key and reports the outcome. A disabled
// limiter (RequestsPerSecond <= 0) always allows.
func (l *Limiter) Allow(key string) Result {
	if l.cfg.RequestsPerSecond <= 0 {
		return Result{Allowed: true, Limit: 0, Remaining: 0, ResetSecs: 0}
	}

	now := l.now()
	b := l.bucketFor(key, now)

	reservation := b.ReserveN(now, 1)
	limit := l.cfg.Burst
	if limit <= 0 {
		limit = 1
	}
	if !reservation.OK() {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetSecs: 1}
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		return Result{
			Allowed:   false,
			Limit:     limit,
			Remaining: 0,
			ResetSecs: int(delay/time.Second) + 1,
		}
	}

	remaining := int(b.TokensAt(now))
	return Result{Allowed: true, Limit: limit, Remaining: remaining, ResetSecs: 1}
}

func (l *Limiter) bucketFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.buckets[key]
	if !ok {
		burst := l.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Sweep removes buckets idle for longer than maxIdle, bounding memory
// growth under a high-cardinality key strategy (e.g. per-header values).
func (l *Limiter) Sweep(maxIdle time.Duration) {
	cutoff := l.now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// WriteHeaders sets the X-RateLimit-* headers spec.md §6 names, using its
// exact (inconsistently hyphenated) header names.
func WriteHeaders(h http.Header, res Result) {
	h.Set("x-rate-limit-limit", strconv.Itoa(res.Limit))
	h.Set("x-rate-limit-remaining", strconv.Itoa(res.Remaining))
	h.Set("x-ratelimit-reset", strconv.Itoa(res.ResetSecs))
}
