package h2fp

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/http2/hpack"
)

func encodeHeaders(t *testing.T, fields []hpack.HeaderField) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := hpack.NewEncoder(&buf)
	for _, f := range fields {
		if err := enc.WriteField(f); err != nil {
			t.Fatalf("encode field: %v", err)
		}
	}
	return buf.Bytes()
}

func TestSignatureFullExample(t *testing.T) {
	settings := buildFrame(frameSettings, 0, 0, []byte{0, 3, 0, 0, 0, 100, 0, 4, 0, 0, 0xff, 0xff})
	window := buildFrame(frameWindowUpdate, 0, 0, []byte{0, 0, 0x40, 0})
	headerBlock := encodeHeaders(t, []hpack.HeaderField{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/"},
		{Name: ":authority", Value: "example.com"},
		{Name: ":scheme", Value: "https"},
	})
	headers := buildFrame(frameHeaders, flagEndHeaders, 1, headerBlock)

	data := append(append(append([]byte{}, settings...), window...), headers...)
	frames, consumed := parseFrames(data)
	if consumed != len(data) {
		t.Fatalf("expected full consumption, got %d of %d", consumed, len(data))
	}

	sig := signature(frames)
	parts := strings.Split(sig, "|")
	if len(parts) != 4 {
		t.Fatalf("expected 4 segments, got %d: %q", len(parts), sig)
	}
	if parts[0] != "3:100;4:65535" {
		t.Fatalf("got settings segment %q", parts[0])
	}
	if parts[1] != "16384" {
		t.Fatalf("got window-update segment %q", parts[1])
	}
	if parts[2] != "" {
		t.Fatalf("expected empty priority segment, got %q", parts[2])
	}
	if parts[3] != "m,p,a,s" {
		t.Fatalf("got pseudo-header order %q", parts[3])
	}
}

func TestSignatureIncludesPriority(t *testing.T) {
	priority := buildFrame(framePriority, 0, 3, []byte{0x80, 0, 0, 1, 16})
	frames, _ := parseFrames(priority)
	sig := signature(frames)
	parts := strings.Split(sig, "|")
	if parts[2] != "3:1:1:16" {
		t.Fatalf("got priority segment %q", parts[2])
	}
}

func TestSettingsACKIgnored(t *testing.T) {
	ack := buildFrame(frameSettings, flagACK, 0, nil)
	real := buildFrame(frameSettings, 0, 0, []byte{0, 1, 0, 0, 0x10, 0})
	frames, _ := parseFrames(append(ack, real...))
	got := settingsSegment(frames)
	if got != "1:4096" {
		t.Fatalf("got %q, want only the non-ACK SETTINGS entry", got)
	}
}
