package h2fp

import (
	"net"

	"github.com/huginn-proxy/huginn/internal/bytesown"
)

// DefaultMaxCapture is the default cap on captured bytes per spec.md §4.C.
const DefaultMaxCapture = 64 * 1024

// Observer is a transparent read-side wrapper installed between the TLS
// stream and the serving layer's HTTP/2 parser. Every read is passed
// through unchanged; until the fingerprint has been published, the
// observer additionally mirrors newly read bytes into an internal capture
// buffer and tries to advance its own frame parser over them.
type Observer struct {
	net.Conn

	latch      *bytesown.Latch[string]
	maxCapture int

	captured         []byte
	offset           int // bytes already handed to parseFrames
	seenClientSettings bool
	seenClientHeaders  bool
	extracted        bool

	// failed records that the connection closed (Read returned an error)
	// before the fingerprint was ever published — a non-fatal failure
	// reported by Failed.
	failed bool
}

// NewObserver wraps conn; signature, once both a client SETTINGS and a
// client HEADERS frame have been observed, is published into latch exactly
// once. maxCapture <= 0 uses DefaultMaxCapture.
func NewObserver(conn net.Conn, latch *bytesown.Latch[string], maxCapture int) *Observer {
	if maxCapture <= 0 {
		maxCapture = DefaultMaxCapture
	}
	return &Observer{Conn: conn, latch: latch, maxCapture: maxCapture}
}

// Read delegates to the wrapped connection. While the fingerprint has not
// yet been published it also mirrors the bytes read into the capture
// buffer and advances the frame parser; once published it is a pure
// pass-through, per spec.md §4.C.
func (o *Observer) Read(b []byte) (int, error) {
	n, err := o.Conn.Read(b)
	if n > 0 && !o.extracted {
		o.observe(b[:n])
	}
	if err != nil && !o.extracted {
		o.failed = true
	}
	return n, err
}

func (o *Observer) observe(chunk []byte) {
	room := o.maxCapture - len(o.captured)
	if room <= 0 {
		return
	}
	if len(chunk) > room {
		chunk = chunk[:room]
	}
	o.captured = append(o.captured, chunk...)

	frames, consumed := parseFrames(o.captured[o.offset:])
	o.offset += consumed

	for _, f := range frames {
		if f.typ == frameSettings && f.streamID == 0 && f.flags&flagACK == 0 {
			o.seenClientSettings = true
		}
		if f.typ == frameHeaders && f.streamID > 0 {
			o.seenClientHeaders = true
		}
	}

	if o.seenClientSettings && o.seenClientHeaders {
		o.publish()
	}
}

// publish re-parses the entire captured buffer once (a single incremental
// pass could miss SETTINGS values if SETTINGS and HEADERS arrived in
// different reads, per spec.md §4.C) and writes the result into the latch.
func (o *Observer) publish() {
	allFrames, _ := parseFrames(o.captured)
	sig := signature(allFrames)
	o.latch.Set(sig)
	o.extracted = true
	o.captured = nil // release the buffer; no further captures needed
}

// Failed reports whether the connection closed before a fingerprint was
// ever published. The proxy's h2-fingerprint-failure counter does not read
// it; that counter is incremented per request when no Akamai header is
// written.
func (o *Observer) Failed() bool {
	return o.failed && !o.extracted
}
