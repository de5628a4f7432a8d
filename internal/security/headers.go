// Package security implements the response-header hardening referenced in
// spec.md §4.D step 7, grounded in
// original_source/.../security/headers.rs (see SPEC_FULL.md Supplemented
// Features).
package security

import (
	"fmt"
	"net/http"
)

// Config describes the security headers to apply to every proxied
// response.
type Config struct {
	// HSTSMaxAge, when > 0, enables Strict-Transport-Security on TLS
	// connections only (spec.md: "HSTS iff TLS").
	HSTSMaxAge        int
	HSTSIncludeSubdomains bool

	// ContentSecurityPolicy, when non-empty, is written verbatim.
	ContentSecurityPolicy string

	// Custom is an arbitrary set of additional response headers applied
	// after HSTS/CSP, so a custom entry can override either.
	Custom map[string]string
}

// Apply writes Config's headers onto h. isTLS gates HSTS per spec.md's
// "HSTS iff TLS" rule; HSTS is never written on a plaintext connection
// even if MaxAge is configured, since the header would be meaningless
// (and actively wrong) advice to a client that did not negotiate TLS.
func (c Config) Apply(h http.Header, isTLS bool) {
	if isTLS && c.HSTSMaxAge > 0 {
		v := fmt.Sprintf("max-age=%d", c.HSTSMaxAge)
		if c.HSTSIncludeSubdomains {
			v += "; includeSubDomains"
		}
		h.Set("Strict-Transport-Security", v)
	}
	if c.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", c.ContentSecurityPolicy)
	}
	for name, value := range c.Custom {
		h.Set(name, value)
	}
}
