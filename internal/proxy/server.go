package proxy

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/huginn-proxy/huginn/internal/aclip"
	"github.com/huginn-proxy/huginn/internal/bytesown"
	"github.com/huginn-proxy/huginn/internal/config"
	"github.com/huginn-proxy/huginn/internal/metrics"
	"github.com/huginn-proxy/huginn/internal/ratelimit"
	"github.com/huginn-proxy/huginn/internal/security"
	"github.com/huginn-proxy/huginn/internal/synprobe"
)

// Server owns the listening socket and the accept loop, grounded on
// main.go's own "for { conn, err := listener.Accept(); go handleConnection
// (...) }" shape, generalized with bounded admission (spec.md §4.D
// "Admitted") and a drain-on-shutdown path main.go never had.
type Server struct {
	h        *handler
	listener net.Listener
	conns    *bytesown.ConnCounter
	tlsGuard *bytesown.TLSGuards
	maxConns int64
}

// NewServer builds the Connection Orchestrator's shared handler state from
// cfg and its collaborators, and binds cfg.Listen.
func NewServer(
	cfg *config.Config,
	synTable *synprobe.Table,
	reg *metrics.Registry,
	tlsConfigFn func(*tls.ClientHelloInfo) (*tls.Config, error),
	log zerolog.Logger,
) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}

	var aclMode aclip.Mode
	switch cfg.Security.IPFilter.Mode {
	case "allowlist":
		aclMode = aclip.Allowlist
	case "denylist":
		aclMode = aclip.Denylist
	default:
		aclMode = aclip.Disabled
	}
	entries := cfg.Security.IPFilter.Allowlist
	if aclMode == aclip.Denylist {
		entries = cfg.Security.IPFilter.Denylist
	}

	limiters := map[string]*ratelimit.Limiter{
		"": ratelimit.New(ratelimitConfig(cfg.Security.RateLimit)),
	}
	rlConfigs := map[string]ratelimit.Config{
		"": ratelimitConfig(cfg.Security.RateLimit),
	}
	for _, route := range cfg.Routes {
		if route.RateLimit != nil {
			rc := routeRatelimitConfig(cfg.Security.RateLimit, route.RateLimit)
			limiters[route.Prefix] = ratelimit.New(rc)
			rlConfigs[route.Prefix] = rc
		}
	}

	h := &handler{
		cfg:       cfg,
		router:    NewRouter(cfg.Routes),
		pool:      NewBackendPool(time.Duration(cfg.Timeout.ConnectMS) * time.Millisecond),
		balancer:  NewRoundRobin(cfg.Backends),
		acl:       aclip.New(aclMode, entries),
		security:  securityConfigFrom(cfg.Security.Headers),
		metrics:   reg,
		synTable:  synTable,
		limiters:  limiters,
		rlConfigs: rlConfigs,
		tlsConfig: tlsConfigFn,
		log:       log,
	}

	return &Server{
		h:        h,
		listener: listener,
		conns:    bytesown.NewConnCounter(),
		tlsGuard: bytesown.NewTLSGuards(),
		maxConns: int64(cfg.Security.MaxConnections),
	}, nil
}

// securityConfigFrom adapts the TOML security-headers document to the
// runtime security.Config the response pipeline applies.
func securityConfigFrom(sh config.SecurityHeaders) security.Config {
	custom := make(map[string]string, len(sh.Custom))
	for _, c := range sh.Custom {
		custom[c.Name] = c.Value
	}
	cfg := security.Config{Custom: custom}
	if sh.HSTS.Enabled {
		cfg.HSTSMaxAge = int(sh.HSTS.MaxAge)
		cfg.HSTSIncludeSubdomains = sh.HSTS.IncludeSubdomains
	}
	if sh.CSP.Enabled {
		cfg.ContentSecurityPolicy = sh.CSP.Policy
	}
	return cfg
}

// Serve runs the accept loop until the listener is closed (by Shutdown).
func (s *Server) Serve() error {
	listenPort := listenerPort(s.listener)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}

		if s.conns.Load() >= s.maxConns {
			s.h.metrics.ConnectionsRejected.Inc()
			conn.Close()
			continue
		}

		guard := s.conns.Admit()
		isTLS := s.h.tlsConfig != nil
		if isTLS {
			s.tlsGuard.Attach(guard)
			s.h.metrics.LiveTLSConnections.Inc()
		}
		s.h.metrics.LiveConnections.Inc()

		c := newConnection(s.h, conn, guard, listenPort)
		go func() {
			defer s.h.metrics.LiveConnections.Dec()
			if isTLS {
				defer s.h.metrics.LiveTLSConnections.Dec()
			}
			c.Serve()
		}()
	}
}

// Shutdown stops accepting new connections and blocks (up to
// shutdown_secs) for in-flight connections to drain, mirroring
// original_source's graceful-shutdown drain loop.
func (s *Server) Shutdown() {
	s.listener.Close()
	s.conns.BeginDrain()

	select {
	case <-s.conns.Done():
	case <-time.After(time.Duration(s.h.cfg.Timeout.ShutdownSecs) * time.Second):
	}
}

func listenerPort(l net.Listener) int {
	if tcpAddr, ok := l.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	_, portStr, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(portStr)
	return port
}
