// Package headers implements the Fingerprint Header Contract (spec.md
// §4.E): normalizing the three fingerprint artifacts into HTTP header
// values, overwriting anything the client supplied, and appending the
// deterministic X-Forwarded-* set.
package headers

import (
	"net/http"
	"strconv"

	"github.com/huginn-proxy/huginn/internal/fingerprint/tlsfp"
)

// Canonical fingerprint header names, per spec.md §3 FingerprintHeaderSet
// and §6's external-interface table.
const (
	HeaderJA4              = "tls-ja4"
	HeaderJA4R             = "tls-ja4r"
	HeaderJA4O             = "tls-ja4o"
	HeaderJA4OR            = "tls-ja4or"
	HeaderH2Akamai         = "h2-akamai"
	HeaderTCPSyn           = "tcp-syn"
	HeaderXForwardedFor    = "x-forwarded-for"
	HeaderXForwardedHost   = "x-forwarded-host"
	HeaderXForwardedPort   = "x-forwarded-port"
	HeaderXForwardedProto  = "x-forwarded-proto"
)

// overwriteHeaders is every fingerprint header name except
// x-forwarded-for, which is list-append instead of overwrite.
var overwriteHeaders = []string{
	HeaderJA4, HeaderJA4R, HeaderJA4O, HeaderJA4OR,
	HeaderH2Akamai, HeaderTCPSyn,
	HeaderXForwardedHost, HeaderXForwardedPort, HeaderXForwardedProto,
}

// StripClientSpoofed deletes any client-supplied value for every
// overwrite-not-append fingerprint header, so the proxy's own values (set
// later in the request lifecycle) can never be confused with attacker-
// controlled input. x-forwarded-for is untouched here; it is handled by
// AppendForwardedFor instead, per spec.md §4.E.
func StripClientSpoofed(h http.Header) {
	for _, name := range overwriteHeaders {
		h.Del(name)
	}
}

// WriteJA4 writes all four JA4 variants, per spec.md §3's "all four or
// none" invariant — callers only invoke this when art is non-nil.
func WriteJA4(h http.Header, art tlsfp.Ja4Artifact) {
	h.Set(HeaderJA4, art.Ja4)
	h.Set(HeaderJA4R, art.Ja4r)
	h.Set(HeaderJA4O, art.Ja4o)
	h.Set(HeaderJA4OR, art.Ja4or)
}

// WriteH2Akamai sets the Akamai ordering fingerprint header.
func WriteH2Akamai(h http.Header, signature string) {
	h.Set(HeaderH2Akamai, signature)
}

// WriteTCPSyn sets the p0f-raw TCP SYN fingerprint header.
func WriteTCPSyn(h http.Header, p0fRaw string) {
	h.Set(HeaderTCPSyn, p0fRaw)
}

// AppendForwardedFor appends peerIP as the last element of the existing
// x-forwarded-for list, per spec.md §4.E — the only list-append header in
// the fingerprint set.
func AppendForwardedFor(h http.Header, peerIP string) {
	existing := h.Get(HeaderXForwardedFor)
	if existing == "" {
		h.Set(HeaderXForwardedFor, peerIP)
		return
	}
	h.Set(HeaderXForwardedFor, existing+", "+peerIP)
}

// WriteForwardedHost sets x-forwarded-host from the TLS SNI value only,
// per spec.md §4.E — never from the incoming Host header or any
// client-supplied X-Forwarded-Host, both of which are client-controllable.
// A no-op when sni is empty: spec.md §4.E requires the header be absent
// (not written) for non-TLS or no-SNI connections, never stamped empty.
func WriteForwardedHost(h http.Header, sni string) {
	if sni == "" {
		return
	}
	h.Set(HeaderXForwardedHost, sni)
}

// WriteForwardedProtoAndPort sets x-forwarded-proto/-port from the
// proxy's own listen-socket knowledge, per spec.md §4.E.
func WriteForwardedProtoAndPort(h http.Header, isTLS bool, port int) {
	proto := "http"
	if isTLS {
		proto = "https"
	}
	h.Set(HeaderXForwardedProto, proto)
	h.Set(HeaderXForwardedPort, strconv.Itoa(port))
}
