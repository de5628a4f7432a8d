package proxy

import (
	"fmt"
	"sync/atomic"

	"github.com/huginn-proxy/huginn/internal/config"
)

// RoundRobin selects backends in rotation using a relaxed atomic counter,
// per spec.md §5 ("Round-robin backend selection uses a relaxed atomic
// counter") and grounded on original_source's
// huginn-proxy-lib/src/load_balancing/round_robin.rs, which keeps the same
// wrap-on-overflow counter but without the synchronization a true
// AtomicUsize::fetch_add(1, Relaxed) needs in Go: atomic.Uint64 gives the
// same guarantee here.
type RoundRobin struct {
	backends []config.Backend
	next     atomic.Uint64
}

// NewRoundRobin builds a balancer over backends. backends must be non-empty;
// config.Validate rejects an empty backend list before a RoundRobin is ever
// constructed.
func NewRoundRobin(backends []config.Backend) *RoundRobin {
	cp := make([]config.Backend, len(backends))
	copy(cp, backends)
	return &RoundRobin{backends: cp}
}

// Next returns the next backend in rotation.
func (r *RoundRobin) Next() config.Backend {
	i := r.next.Add(1) - 1
	return r.backends[i%uint64(len(r.backends))]
}

// ByAddress returns the configured backend matching addr, used when a route
// pins a specific backend rather than rotating across the whole pool.
func (r *RoundRobin) ByAddress(addr string) (config.Backend, error) {
	for _, b := range r.backends {
		if b.Address == addr {
			return b, nil
		}
	}
	return config.Backend{}, fmt.Errorf("proxy: no backend configured for address %q", addr)
}
