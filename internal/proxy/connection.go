package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/http2"

	"github.com/huginn-proxy/huginn/internal/aclip"
	"github.com/huginn-proxy/huginn/internal/bytesown"
	"github.com/huginn-proxy/huginn/internal/config"
	"github.com/huginn-proxy/huginn/internal/fingerprint/h2fp"
	"github.com/huginn-proxy/huginn/internal/fingerprint/tlsfp"
	"github.com/huginn-proxy/huginn/internal/headers"
	"github.com/huginn-proxy/huginn/internal/metrics"
	"github.com/huginn-proxy/huginn/internal/ratelimit"
	"github.com/huginn-proxy/huginn/internal/security"
	"github.com/huginn-proxy/huginn/internal/synprobe"
)

// handler is the per-listener shared state every accepted connection reads
// from: routing table, backend pool, policy objects, and collaborators.
// One handler instance is constructed in server.go and handed to every
// Connection.
type handler struct {
	cfg      *config.Config
	router   *Router
	pool     *BackendPool
	balancer *RoundRobin
	acl      *aclip.List
	security security.Config
	metrics  *metrics.Registry
	synTable *synprobe.Table

	limiters  map[string]*ratelimit.Limiter // keyed by route prefix, "" is global
	rlConfigs map[string]ratelimit.Config

	tlsConfig func(*tls.ClientHelloInfo) (*tls.Config, error)
	log       zerolog.Logger
}

func (h *handler) limiterFor(route *config.Route) (*ratelimit.Limiter, ratelimit.Config) {
	if l, ok := h.limiters[route.Prefix]; ok {
		return l, h.rlConfigs[route.Prefix]
	}
	return h.limiters[""], h.rlConfigs[""]
}

// Connection drives a single accepted socket through the states spec.md §4.D
// names: Accepted -> Admitted -> PeekHello -> TlsAccept -> Serving ->
// HandleRequest/Idle -> Closed. It is constructed fresh for every accept.
type Connection struct {
	h          *handler
	raw        net.Conn
	guard      *bytesown.Guard
	listenPort int
	ctx        *ConnectionContext
}

// newConnection transitions Accepted -> Admitted: the caller (server.go)
// has already checked the live-connection count against the configured
// maximum and obtained guard from ConnCounter.Admit().
func newConnection(h *handler, raw net.Conn, guard *bytesown.Guard, listenPort int) *Connection {
	return &Connection{
		h:          h,
		raw:        raw,
		guard:      guard,
		listenPort: listenPort,
		ctx:        New(raw, listenPort, guard),
	}
}

// Serve runs the connection to completion. It never returns an error; all
// failures are logged and the connection is closed.
func (c *Connection) Serve() {
	defer c.guard.Release()
	defer c.raw.Close()
	defer func() {
		if r := recover(); r != nil {
			c.h.log.Error().Interface("panic", r).Str("peer", c.ctx.PeerAddr).Msg("connection panicked")
		}
	}()

	if !c.h.acl.Allowed(c.ctx.PeerAddr) {
		c.h.metrics.ConnectionsRejected.Inc()
		return
	}

	// Total connection-handling timeout, per spec.md §4.D: independent of
	// the TLS-handshake deadline and the HTTP/1.1 idle-read deadline,
	// bounding how long any one connection (including a long-lived H2
	// session) may be served before it is forced closed.
	if secs := c.h.cfg.Timeout.ConnectionHandlingSecs; secs > 0 {
		timer := time.AfterFunc(time.Duration(secs)*time.Second, func() {
			c.h.metrics.ConnectionTimeouts.Inc()
			c.raw.Close()
		})
		defer timer.Stop()
	}

	conn, isTLS, err := c.acceptTLS(c.raw)
	if err != nil {
		c.h.log.Debug().Err(err).Str("peer", c.ctx.PeerAddr).Msg("tls accept failed")
		return
	}
	c.ctx.IsTLS = isTLS

	if tcpAddr, ok := c.raw.RemoteAddr().(*net.TCPAddr); ok {
		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			if obs, found := c.h.synTable.Lookup(be32(ip4), uint16(tcpAddr.Port)); found {
				c.ctx.Syn = &obs
			} else {
				c.h.metrics.SynLookupMisses.Inc()
			}
		}
	}

	negotiated := ""
	if isTLS {
		if ts, ok := conn.(*tls.Conn); ok {
			negotiated = ts.ConnectionState().NegotiatedProtocol
			c.ctx.SNI = ts.ConnectionState().ServerName
		}
	}

	c.h.metrics.ConnectionsAccepted.Inc()

	if negotiated == "h2" {
		c.serveH2(conn)
		return
	}
	c.serveH1(conn)
}

// acceptTLS performs PeekHello + TlsAccept: it peeks the ClientHello off
// the raw socket for JA4 derivation, replays the peeked bytes, and (when
// TLS is configured) completes the handshake within the configured
// deadline. A listener with no [tls] section serves plaintext HTTP/1.1
// only, per DESIGN.md's Open Question on plaintext listeners. The
// configured [tls] alpn list is offered on every handshake.
func (c *Connection) acceptTLS(raw net.Conn) (net.Conn, bool, error) {
	if c.h.tlsConfig == nil {
		return raw, false, nil
	}
	getConfig := c.h.tlsConfig
	if c.h.cfg.TLS != nil && len(c.h.cfg.TLS.ALPN) > 0 {
		alpn := c.h.cfg.TLS.ALPN
		getConfig = func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			base, err := c.h.tlsConfig(hello)
			if err != nil || base == nil {
				return base, err
			}
			withALPN := base.Clone()
			withALPN.NextProtos = alpn
			return withALPN, nil
		}
	}

	peek := tlsfp.Peek(raw)
	c.ctx.JA4 = peek.JA4
	replayed := bytesown.NewPrefixReplayConn(raw, peek.Prefix)

	deadline := time.Now().Add(time.Duration(c.h.cfg.Timeout.TLSHandshakeSecs) * time.Second)
	raw.SetDeadline(deadline)
	defer raw.SetDeadline(time.Time{})

	tlsConn := tls.Server(replayed, &tls.Config{GetConfigForClient: getConfig})
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		c.h.metrics.TLSHandshakeErrors.Inc()
		return nil, false, err
	}
	return tlsConn, true, nil
}

func be32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// serveH1 runs the HTTP/1.1 request loop, grounded on the gost-x sniffer
// example's http.ReadRequest pattern rather than the teacher's own
// byte-level parser.
func (c *Connection) serveH1(conn net.Conn) {
	br := bufio.NewReader(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(time.Duration(c.h.cfg.Timeout.IdleMS) * time.Millisecond))
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		req.RemoteAddr = c.raw.RemoteAddr().String()

		resp := c.handleRequest(req, false)
		resp.Write(conn)
		resp.Body.Close()
		if resp.Close || req.Close {
			return
		}
	}
}

// serveH2 installs the Akamai frame observer and serves HTTP/2, grounded
// on the gost-x sniffer example's http2.Server.ServeConn usage.
func (c *Connection) serveH2(conn net.Conn) {
	latch := bytesown.NewLatch[string]()
	obs := h2fp.NewObserver(conn, latch, c.h.cfg.Fingerprint.MaxCapture)
	c.ctx.AkamaiLatch = latch

	srv := &http2.Server{}
	srv.ServeConn(obs, &http2.ServeConnOpts{
		Context: context.Background(),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := c.handleRequest(r, true)
			defer resp.Body.Close()
			for k, vs := range resp.Header {
				for _, v := range vs {
					w.Header().Add(k, v)
				}
			}
			w.WriteHeader(resp.StatusCode)
			io.Copy(w, resp.Body)
		}),
	})
}

// handleRequest performs the core per-request pipeline: route match,
// rate-limit check, header rewriting, forwarding, and response header
// rewriting. The IP ACL is checked once per connection in Serve.
func (c *Connection) handleRequest(req *http.Request, isH2 bool) *http.Response {
	route, ok := c.h.router.Match(req.URL.Path)
	if !ok {
		return notFoundResponse()
	}

	fingerprintEnabled := route.Fingerprinting == nil || *route.Fingerprinting

	limiter, rlConfig := c.h.limiterFor(route)
	key := rlConfig.Key(c.ctx.PeerAddr, req)
	result := limiter.Allow(key)
	if !result.Allowed {
		c.h.metrics.RateLimitDenied.Inc()
		resp := tooManyRequestsResponse()
		ratelimit.WriteHeaders(resp.Header, result)
		return resp
	}

	headers.StripClientSpoofed(req.Header)
	if fingerprintEnabled {
		c.applyFingerprintHeaders(req.Header, isH2)
	}
	headers.AppendForwardedFor(req.Header, c.ctx.PeerAddr)
	if c.ctx.IsTLS && c.ctx.SNI != "" {
		headers.WriteForwardedHost(req.Header, c.ctx.SNI)
	}
	headers.WriteForwardedProtoAndPort(req.Header, c.ctx.IsTLS, c.listenPort)

	if route.Headers != nil {
		applyHeaderGroup(req.Header, route.Headers.Request)
	} else if c.h.cfg.Headers != nil {
		applyHeaderGroup(req.Header, c.h.cfg.Headers.Request)
	}

	if !c.h.cfg.PreserveHost {
		req.Host = route.Backend
	}
	req.URL.Path = RewritePath(route, req.URL.Path)
	req.RequestURI = ""
	if req.URL.Scheme == "" {
		req.URL.Scheme = "http"
	}
	req.URL.Host = route.Backend

	backend, err := c.h.balancer.ByAddress(route.Backend)
	if err != nil {
		return badGatewayResponse()
	}

	var rt http.RoundTripper
	if route.ForceNewConnection {
		var cleanup func()
		rt, cleanup, err = c.h.pool.OneShot(req.Context(), backend, isH2)
		if err != nil {
			c.h.metrics.BackendErrors.Inc()
			return badGatewayResponse()
		}
		defer cleanup()
	} else {
		rt = c.h.pool.RoundTripper(backend, isH2)
	}

	resp, err := rt.RoundTrip(req)
	if err != nil {
		c.h.metrics.BackendErrors.Inc()
		return badGatewayResponse()
	}

	if route.Headers != nil {
		applyHeaderGroup(resp.Header, route.Headers.Response)
	} else if c.h.cfg.Headers != nil {
		applyHeaderGroup(resp.Header, c.h.cfg.Headers.Response)
	}
	c.h.security.Apply(resp.Header, c.ctx.IsTLS)

	return resp
}

// applyFingerprintHeaders joins the three fingerprint artifacts captured
// for this connection onto the forwarded request, per the Fingerprint
// Header Contract. Per spec.md §4.D step 3 / §7 taxonomy item 4, a header
// that cannot be filled (e.g. an HTTP/1.1 connection, which has no Akamai
// ordering signature) counts a failure rather than being silently skipped.
func (c *Connection) applyFingerprintHeaders(h http.Header, isH2 bool) {
	if c.ctx.JA4 != nil {
		headers.WriteJA4(h, *c.ctx.JA4)
	}
	if c.ctx.Syn != nil {
		headers.WriteTCPSyn(h, headers.FormatTCPSyn(*c.ctx.Syn))
	}
	wroteAkamai := false
	if isH2 && c.ctx.AkamaiLatch != nil {
		if sig, ok := c.ctx.AkamaiLatch.Get(); ok {
			headers.WriteH2Akamai(h, sig)
			wroteAkamai = true
		}
	}
	if !wroteAkamai {
		c.h.metrics.H2FingerprintFail.Inc()
	}
}

func applyHeaderGroup(h http.Header, group config.HeaderGroup) {
	for _, remove := range group.Remove {
		h.Del(remove)
	}
	for _, add := range group.Add {
		if httpguts.ValidHeaderFieldName(add.Name) && httpguts.ValidHeaderFieldValue(add.Value) {
			h.Set(add.Name, add.Value)
		}
	}
}
