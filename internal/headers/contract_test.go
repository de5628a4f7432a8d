package headers

import (
	"net/http"
	"testing"

	"github.com/huginn-proxy/huginn/internal/fingerprint/tlsfp"
)

func TestStripClientSpoofedRemovesOverwriteHeaders(t *testing.T) {
	h := make(http.Header)
	h.Set(HeaderJA4, "spoofed")
	h.Set(HeaderTCPSyn, "spoofed")
	h.Set(HeaderXForwardedFor, "1.1.1.1")

	StripClientSpoofed(h)

	if h.Get(HeaderJA4) != "" || h.Get(HeaderTCPSyn) != "" {
		t.Fatal("expected overwrite-not-append headers to be stripped")
	}
	if h.Get(HeaderXForwardedFor) != "1.1.1.1" {
		t.Fatal("x-forwarded-for must not be stripped by StripClientSpoofed")
	}
}

func TestWriteJA4WritesAllFourVariants(t *testing.T) {
	h := make(http.Header)
	WriteJA4(h, tlsfp.Ja4Artifact{Ja4: "a", Ja4r: "b", Ja4o: "c", Ja4or: "d"})

	if h.Get(HeaderJA4) != "a" || h.Get(HeaderJA4R) != "b" || h.Get(HeaderJA4O) != "c" || h.Get(HeaderJA4OR) != "d" {
		t.Fatalf("got headers %v", h)
	}
}

func TestAppendForwardedForOnEmptyHeader(t *testing.T) {
	h := make(http.Header)
	AppendForwardedFor(h, "203.0.113.5")
	if h.Get(HeaderXForwardedFor) != "203.0.113.5" {
		t.Fatalf("got %q", h.Get(HeaderXForwardedFor))
	}
}

func TestAppendForwardedForAppendsAsLastElement(t *testing.T) {
	h := make(http.Header)
	h.Set(HeaderXForwardedFor, "10.0.0.1, 10.0.0.2")
	AppendForwardedFor(h, "203.0.113.5")

	got := h.Get(HeaderXForwardedFor)
	want := "10.0.0.1, 10.0.0.2, 203.0.113.5"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteForwardedHostUsesSNIOnly(t *testing.T) {
	h := make(http.Header)
	h.Set("Host", "client-controlled.example")
	WriteForwardedHost(h, "sni.example.com")
	if h.Get(HeaderXForwardedHost) != "sni.example.com" {
		t.Fatalf("got %q", h.Get(HeaderXForwardedHost))
	}
}

func TestWriteForwardedHostEmptySNIIsNoop(t *testing.T) {
	h := make(http.Header)
	WriteForwardedHost(h, "")
	if _, ok := h[HeaderXForwardedHost]; ok {
		t.Fatalf("expected %s absent, got %q", HeaderXForwardedHost, h.Get(HeaderXForwardedHost))
	}
}

func TestWriteForwardedProtoAndPortTLS(t *testing.T) {
	h := make(http.Header)
	WriteForwardedProtoAndPort(h, true, 443)
	if h.Get(HeaderXForwardedProto) != "https" || h.Get(HeaderXForwardedPort) != "443" {
		t.Fatalf("got proto=%q port=%q", h.Get(HeaderXForwardedProto), h.Get(HeaderXForwardedPort))
	}
}

func TestWriteForwardedProtoAndPortPlaintext(t *testing.T) {
	h := make(http.Header)
	WriteForwardedProtoAndPort(h, false, 8080)
	if h.Get(HeaderXForwardedProto) != "http" || h.Get(HeaderXForwardedPort) != "8080" {
		t.Fatalf("got proto=%q port=%q", h.Get(HeaderXForwardedProto), h.Get(HeaderXForwardedPort))
	}
}
