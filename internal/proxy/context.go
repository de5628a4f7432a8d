// Package proxy implements the Connection Orchestrator (spec.md §4.D): the
// per-accepted-connection state machine that admits a socket, peeks its
// ClientHello, completes the TLS handshake, installs the HTTP/2 frame
// observer, and drives HTTP request handling — joining the SYN, JA4, and
// Akamai artifacts into the forwarded request's fingerprint headers.
package proxy

import (
	"net"

	"github.com/google/uuid"
	"github.com/huginn-proxy/huginn/internal/bytesown"
	"github.com/huginn-proxy/huginn/internal/fingerprint/tlsfp"
	"github.com/huginn-proxy/huginn/internal/synprobe"
)

// ConnectionContext is the per-accepted-connection record spec.md §3
// describes: one instance is constructed on accept and lives for exactly
// one connection, threading its fingerprints through request handling.
type ConnectionContext struct {
	ID uuid.UUID

	PeerAddr string // host only, no port
	IsTLS    bool
	SNI      string

	JA4 *tlsfp.Ja4Artifact
	Syn *synprobe.SynObservation

	AkamaiLatch *bytesown.Latch[string]

	Guard *bytesown.Guard

	ListenPort int
}

// New constructs a ConnectionContext for a freshly accepted connection.
func New(conn net.Conn, listenPort int, guard *bytesown.Guard) *ConnectionContext {
	peerIP := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(peerIP); err == nil {
		peerIP = host
	}
	return &ConnectionContext{
		ID:         uuid.New(),
		PeerAddr:   peerIP,
		ListenPort: listenPort,
		Guard:      guard,
	}
}
