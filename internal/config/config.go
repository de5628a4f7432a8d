// Package config loads and validates Huginn's TOML configuration document,
// modeled on original_source/huginn-proxy-lib/src/config/*.rs (see
// SPEC_FULL.md's Ambient Stack "Configuration" section). Loading itself —
// and CLI/env override handling — remains a named collaborator per
// spec.md §1; this package only parses and validates the document.
package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
)

// Backend is one upstream server in the load-balancing pool.
type Backend struct {
	Address     string `toml:"address"`
	HTTPVersion string `toml:"http_version"` // "http11", "http2", "preserve" (default)
}

// CustomHeader is a single name/value pair for header add rules.
type CustomHeader struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// HeaderGroup is one direction (request or response) of header add/remove
// rules, per headers.rs's HeaderManipulationGroup.
type HeaderGroup struct {
	Add    []CustomHeader `toml:"add"`
	Remove []string       `toml:"remove"`
}

// HeaderManipulation bundles request- and response-side header rules.
type HeaderManipulation struct {
	Request  HeaderGroup `toml:"request"`
	Response HeaderGroup `toml:"response"`
}

// RouteRateLimit overrides the global rate-limit policy for one route; any
// zero-value field inherits the global setting (resolved by the proxy when
// it builds each route's limiter).
type RouteRateLimit struct {
	Enabled           *bool  `toml:"enabled"`
	RequestsPerSecond uint32 `toml:"requests_per_second"`
	Burst             uint32 `toml:"burst"`
	LimitBy           string `toml:"limit_by"`
	LimitByHeader     string `toml:"limit_by_header"`
}

// Route is one path-prefix routing rule, per backend.rs's Route.
type Route struct {
	Prefix             string          `toml:"prefix"`
	Backend            string          `toml:"backend"`
	Fingerprinting     *bool           `toml:"fingerprinting"` // default true
	ForceNewConnection bool            `toml:"force_new_connection"`
	ReplacePath        *string         `toml:"replace_path"`
	RateLimit          *RouteRateLimit `toml:"rate_limit"`
	Headers            *HeaderManipulation `toml:"headers"`
}

// TLS is the listener's TLS termination configuration, per tls.rs's
// TlsConfig (trimmed to what the Connection Orchestrator and TLS reloader
// consume — cipher-suite/curve preferences and mTLS are config surface the
// standard library's tls.Config also exposes but which THE CORE, per
// spec.md §1, does not need to drive fingerprinting).
type TLS struct {
	CertPath        string   `toml:"cert_path"`
	KeyPath         string   `toml:"key_path"`
	ALPN            []string `toml:"alpn"`
	WatchDelaySecs  uint32   `toml:"watch_delay_secs"`
}

// Fingerprinting holds the fingerprint settings, per fingerprinting.rs's
// FingerprintConfig. TCPEnabled decides whether SYN capture starts and
// MaxCapture bounds the HTTP/2 frame capture; TLSEnabled and HTTPEnabled
// are decoded and defaulted but not read by the proxy, which decides JA4
// and Akamai headers per route.
type Fingerprinting struct {
	TLSEnabled       bool    `toml:"tls_enabled"`
	HTTPEnabled      bool    `toml:"http_enabled"`
	TCPEnabled       bool    `toml:"tcp_enabled"`
	MaxCapture       int     `toml:"max_capture"`
	EBPFTCPInterface *string `toml:"ebpf_tcp_interface"`
}

// RateLimit is the global rate-limit policy, per security.rs's
// RateLimitConfig.
type RateLimit struct {
	Enabled           bool   `toml:"enabled"`
	RequestsPerSecond uint32 `toml:"requests_per_second"`
	Burst             uint32 `toml:"burst"`
	LimitBy           string `toml:"limit_by"` // "ip", "header", "route", "combined"
	LimitByHeader     string `toml:"limit_by_header"`
}

// IPFilter is the connection-level ACL, per security.rs's IpFilterConfig.
type IPFilter struct {
	Mode      string   `toml:"mode"` // "disabled", "allowlist", "denylist"
	Allowlist []string `toml:"allowlist"`
	Denylist  []string `toml:"denylist"`
}

// HSTS configures the Strict-Transport-Security response header.
type HSTS struct {
	Enabled           bool   `toml:"enabled"`
	MaxAge            uint64 `toml:"max_age"`
	IncludeSubdomains bool   `toml:"include_subdomains"`
}

// CSP configures the Content-Security-Policy response header.
type CSP struct {
	Enabled bool   `toml:"enabled"`
	Policy  string `toml:"policy"`
}

// SecurityHeaders bundles HSTS, CSP, and arbitrary custom response
// headers, per security.rs's SecurityHeaders.
type SecurityHeaders struct {
	Custom []CustomHeader `toml:"custom"`
	HSTS   HSTS           `toml:"hsts"`
	CSP    CSP            `toml:"csp"`
}

// Security bundles connection admission, header, ACL, and rate-limit
// policy, per security.rs's SecurityConfig.
type Security struct {
	MaxConnections int             `toml:"max_connections"`
	Headers        SecurityHeaders `toml:"headers"`
	IPFilter       IPFilter        `toml:"ip_filter"`
	RateLimit      RateLimit       `toml:"rate_limit"`
}

// Timeouts bundles every connection-lifetime timeout, per timeout.rs's
// TimeoutConfig.
type Timeouts struct {
	ConnectMS               uint64 `toml:"connect_ms"`
	IdleMS                  uint64 `toml:"idle_ms"`
	ShutdownSecs            uint64 `toml:"shutdown_secs"`
	TLSHandshakeSecs        uint64 `toml:"tls_handshake_secs"`
	ConnectionHandlingSecs  uint64 `toml:"connection_handling_secs"`
}

// Config is the root document, per root.rs's Config.
type Config struct {
	Listen       string              `toml:"listen"`
	Backends     []Backend           `toml:"backends"`
	Routes       []Route             `toml:"routes"`
	PreserveHost bool                `toml:"preserve_host"`
	TLS          *TLS                `toml:"tls"`
	Fingerprint  Fingerprinting      `toml:"fingerprint"`
	Timeout      Timeouts            `toml:"timeout"`
	Security     Security            `toml:"security"`
	Headers      *HeaderManipulation `toml:"headers"`

	// FallbackForwardedHostToHTTPHost is documented but inert (see
	// DESIGN.md Open Question 1): spec.md derives x-forwarded-host from
	// TLS SNI only and leaves a Host-header fallback to configuration
	// without mandating one exist. The field is accepted so a document
	// written against that language parses, but no code path reads it.
	FallbackForwardedHostToHTTPHost bool `toml:"fallback_forwarded_host_to_http_host"`
}

// Load reads and parses the TOML document at path, applies defaults for
// every field the document omits, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if !c.Fingerprint.set() {
		c.Fingerprint = Fingerprinting{TLSEnabled: true, HTTPEnabled: true, MaxCapture: 64 * 1024}
	}
	if c.Fingerprint.MaxCapture == 0 {
		c.Fingerprint.MaxCapture = 64 * 1024
	}
	if c.Security.MaxConnections == 0 {
		c.Security.MaxConnections = 512
	}
	if c.Security.Headers.HSTS.MaxAge == 0 {
		c.Security.Headers.HSTS.MaxAge = 31536000
	}
	if c.Security.Headers.CSP.Policy == "" {
		c.Security.Headers.CSP.Policy = "default-src 'self'"
	}
	if c.Security.RateLimit.RequestsPerSecond == 0 {
		c.Security.RateLimit.RequestsPerSecond = 1000
	}
	if c.Security.RateLimit.Burst == 0 {
		c.Security.RateLimit.Burst = 2 * c.Security.RateLimit.RequestsPerSecond
	}
	if c.Security.RateLimit.LimitBy == "" {
		c.Security.RateLimit.LimitBy = "ip"
	}
	if c.Security.IPFilter.Mode == "" {
		c.Security.IPFilter.Mode = "disabled"
	}
	if c.Timeout.ConnectMS == 0 {
		c.Timeout.ConnectMS = 5000
	}
	if c.Timeout.IdleMS == 0 {
		c.Timeout.IdleMS = 60000
	}
	if c.Timeout.ShutdownSecs == 0 {
		c.Timeout.ShutdownSecs = 30
	}
	if c.Timeout.TLSHandshakeSecs == 0 {
		c.Timeout.TLSHandshakeSecs = 15
	}
	if c.Timeout.ConnectionHandlingSecs == 0 {
		c.Timeout.ConnectionHandlingSecs = 300
	}
	if c.TLS != nil && c.TLS.WatchDelaySecs == 0 {
		c.TLS.WatchDelaySecs = 60
	}
	for i := range c.Routes {
		if c.Routes[i].Fingerprinting == nil {
			enabled := true
			c.Routes[i].Fingerprinting = &enabled
		}
	}
}

// set reports whether any field of Fingerprinting holds a non-zero value.
// A [fingerprint] table that sets every field to false or zero cannot be
// told apart from an omitted one, so applyDefaults replaces it with the
// defaults as well.
func (f Fingerprinting) set() bool {
	return f.MaxCapture != 0 || f.EBPFTCPInterface != nil || f.TCPEnabled || f.TLSEnabled || f.HTTPEnabled
}

// Validate checks structural requirements applyDefaults cannot itself
// guarantee: required fields, CIDR parseability, route prefix uniqueness.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen is required")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("config: listen %q: %w", c.Listen, err)
	}
	if len(c.Backends) == 0 {
		return fmt.Errorf("config: at least one backend is required")
	}

	backendAddrs := make(map[string]bool, len(c.Backends))
	for _, b := range c.Backends {
		if b.Address == "" {
			return fmt.Errorf("config: backend address must not be empty")
		}
		backendAddrs[b.Address] = true
	}

	seenPrefixes := make(map[string]bool, len(c.Routes))
	for _, r := range c.Routes {
		if r.Prefix == "" {
			return fmt.Errorf("config: route prefix must not be empty")
		}
		if seenPrefixes[r.Prefix] {
			return fmt.Errorf("config: duplicate route prefix %q", r.Prefix)
		}
		seenPrefixes[r.Prefix] = true
		if !backendAddrs[r.Backend] {
			return fmt.Errorf("config: route %q references unknown backend %q", r.Prefix, r.Backend)
		}
	}

	if c.TLS != nil {
		if c.TLS.CertPath == "" || c.TLS.KeyPath == "" {
			return fmt.Errorf("config: tls.cert_path and tls.key_path are required when [tls] is present")
		}
	}

	if err := validateCIDRs(c.Security.IPFilter.Allowlist); err != nil {
		return fmt.Errorf("config: security.ip_filter.allowlist: %w", err)
	}
	if err := validateCIDRs(c.Security.IPFilter.Denylist); err != nil {
		return fmt.Errorf("config: security.ip_filter.denylist: %w", err)
	}

	switch strings.ToLower(c.Security.IPFilter.Mode) {
	case "disabled", "allowlist", "denylist":
	default:
		return fmt.Errorf("config: security.ip_filter.mode %q is invalid", c.Security.IPFilter.Mode)
	}

	switch strings.ToLower(c.Security.RateLimit.LimitBy) {
	case "ip", "header", "route", "combined":
	default:
		return fmt.Errorf("config: security.rate_limit.limit_by %q is invalid", c.Security.RateLimit.LimitBy)
	}
	if strings.EqualFold(c.Security.RateLimit.LimitBy, "header") && c.Security.RateLimit.LimitByHeader == "" {
		return fmt.Errorf("config: security.rate_limit.limit_by_header is required when limit_by = \"header\"")
	}

	return nil
}

func validateCIDRs(entries []string) error {
	for _, e := range entries {
		if _, _, err := net.ParseCIDR(e); err != nil {
			if ip := net.ParseIP(e); ip == nil {
				return fmt.Errorf("invalid entry %q: %w", e, err)
			}
		}
	}
	return nil
}
