package proxy

import (
	"strings"

	"github.com/huginn-proxy/huginn/internal/config"
	"github.com/huginn-proxy/huginn/internal/ratelimit"
)

// ratelimitConfig adapts the TOML rate-limit document (internal/config) to
// the runtime policy internal/ratelimit consumes. The two packages are kept
// separate so the wire format can evolve without touching the limiter.
func ratelimitConfig(rl config.RateLimit) ratelimit.Config {
	cfg := ratelimit.Config{
		HeaderName:        rl.LimitByHeader,
		RequestsPerSecond: float64(rl.RequestsPerSecond),
		Burst:             int(rl.Burst),
	}
	switch strings.ToLower(rl.LimitBy) {
	case "header":
		cfg.Strategy = ratelimit.KeyByHeader
	case "route":
		cfg.Strategy = ratelimit.KeyByRoute
	case "combined":
		cfg.Strategy = ratelimit.KeyByCombination
	default:
		cfg.Strategy = ratelimit.KeyByIP
	}
	if !rl.Enabled {
		cfg.RequestsPerSecond = 0
	}
	return cfg
}

// routeRatelimitConfig resolves a route's rate-limit override onto the
// global policy; any zero field on the override inherits the global value.
func routeRatelimitConfig(global config.RateLimit, route *config.RouteRateLimit) ratelimit.Config {
	if route == nil {
		return ratelimitConfig(global)
	}
	merged := global
	if route.Enabled != nil {
		merged.Enabled = *route.Enabled
	}
	if route.RequestsPerSecond != 0 {
		merged.RequestsPerSecond = route.RequestsPerSecond
	}
	if route.Burst != 0 {
		merged.Burst = route.Burst
	}
	if route.LimitBy != "" {
		merged.LimitBy = route.LimitBy
	}
	if route.LimitByHeader != "" {
		merged.LimitByHeader = route.LimitByHeader
	}
	return ratelimitConfig(merged)
}
