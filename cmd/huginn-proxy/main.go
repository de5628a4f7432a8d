// Command huginn-proxy runs the fingerprinting reverse proxy: it loads a
// TOML configuration document, starts the SYN capture backend, serves TLS
// with hot-reloadable certificates, and forwards requests while tagging
// them with TLS/HTTP2/TCP fingerprint headers.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/huginn-proxy/huginn/internal/config"
	"github.com/huginn-proxy/huginn/internal/metrics"
	"github.com/huginn-proxy/huginn/internal/proxy"
	"github.com/huginn-proxy/huginn/internal/synprobe"
	"github.com/huginn-proxy/huginn/internal/tlsreload"
)

func main() {
	configPath := flag.String("config", "huginn.toml", "path to the TOML configuration document")
	iface := flag.String("iface", "", "network interface for SYN capture (overrides fingerprint.ebpf_tcp_interface)")
	disableTCP := flag.Bool("disable-tcp", false, "disable TCP/IP SYN fingerprint capture")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on (empty disables it)")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	reg := metrics.New(prometheus.DefaultRegisterer)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	synTable := synprobe.NewTable(synprobe.TableCapacity)
	if !*disableTCP && cfg.Fingerprint.TCPEnabled {
		startCapture(cfg, synTable, *iface, log)
	}

	var tlsConfigFn func(*tls.ClientHelloInfo) (*tls.Config, error)
	if cfg.TLS != nil {
		reloader, err := tlsreload.New(cfg.TLS.CertPath, cfg.TLS.KeyPath, log.With().Str("component", "tlsreload").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("loading TLS certificate")
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go reloader.Watch(time.Duration(cfg.TLS.WatchDelaySecs)*time.Second, ctx.Done())
		tlsConfigFn = reloader.GetConfigForClient
	}

	srv, err := proxy.NewServer(cfg, synTable, reg, tlsConfigFn, log.With().Str("component", "proxy").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("binding listener")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	log.Info().Str("listen", cfg.Listen).Msg("huginn-proxy started")

	select {
	case <-sig:
		log.Info().Msg("shutting down")
		srv.Shutdown()
	case err := <-serveErr:
		log.Error().Err(err).Msg("accept loop stopped")
	}
}

// startCapture resolves an interface (flag override, then config) and the
// destination port to filter on, then attaches the pcap-backed SYN
// capturer. A failure here is a warning, not fatal, per spec.md §7's
// taxonomy: fingerprinting degrades, the proxy keeps serving.
func startCapture(cfg *config.Config, table *synprobe.Table, iface string, log zerolog.Logger) {
	if iface == "" && cfg.Fingerprint.EBPFTCPInterface != nil {
		iface = *cfg.Fingerprint.EBPFTCPInterface
	}
	if iface == "" {
		log.Warn().Msg("TCP fingerprint capture disabled: no interface configured (pass -iface or fingerprint.ebpf_tcp_interface)")
		return
	}

	_, portStr, err := net.SplitHostPort(cfg.Listen)
	if err != nil {
		log.Warn().Err(err).Msg("TCP fingerprint capture disabled: could not parse listen port")
		return
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		log.Warn().Err(err).Msg("TCP fingerprint capture disabled: invalid listen port")
		return
	}

	capturer := &synprobe.PcapCapturer{}
	if err := capturer.Start(context.Background(), iface, 0, uint16(port), table); err != nil {
		log.Warn().Err(err).Msg("TCP fingerprint capture disabled: run with elevated privileges, or pass -disable-tcp")
	}
}
