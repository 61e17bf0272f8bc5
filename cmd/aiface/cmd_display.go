package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aiface/internal/config"
	"aiface/internal/discovery"
	"aiface/internal/display"
	"aiface/internal/logging"
	"aiface/internal/metrics"
)

var displayFlags struct {
	listen      string
	instance    string
	noAdvertise bool
}

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "Run a headless display runtime",
	Long: `Accepts authority connections over websocket, keeps the reduced scene and
serves it as JSON on /state. The endpoint is advertised over mDNS unless
--no-advertise is set. Prometheus metrics are served on /metrics.`,
	RunE: runDisplay,
}

func init() {
	f := displayCmd.Flags()
	f.StringVar(&displayFlags.listen, "listen", "", "Listen address (default :8765)")
	f.StringVar(&displayFlags.instance, "instance", "", "mDNS instance name")
	f.BoolVar(&displayFlags.noAdvertise, "no-advertise", false, "Do not advertise over mDNS")
}

func applyDisplayFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("listen") {
			cfg.Display.Listen = displayFlags.listen
		}
		if flags.Changed("instance") {
			cfg.Display.Instance = displayFlags.instance
		}
		if displayFlags.noAdvertise {
			cfg.Display.Advertise = false
		}
	}
}

func runDisplay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, applyDisplayFlags(cmd))
	if err != nil {
		return err
	}
	log := logging.New("display")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Display.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Display.Listen, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	m := metrics.New()
	rt := display.New(display.Options{
		Endpoint:    "ws://" + net.JoinHostPort(localIP(), strconv.Itoa(port)),
		ServiceType: cfg.Discovery.Service,
		Observer:    m,
	})
	defer rt.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", rt.Mux())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	if cfg.Display.Advertise {
		adv, err := discovery.Advertise(cfg.Display.Instance, cfg.Discovery.Service, cfg.Discovery.Domain, port, []string{"schema=ai-face.v1"})
		rt.SetAdvertising(err == nil, err)
		if err != nil {
			log.Warn("mdns advertise failed", slog.Any("error", err))
		} else {
			defer adv.Shutdown()
			log.Info("advertising display", slog.String("instance", cfg.Display.Instance), slog.Int("port", port))
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("display runtime listening", slog.String("endpoint", rt.Snapshot().Endpoint))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// localIP is the first non-loopback IPv4 address, or 0.0.0.0.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "0.0.0.0"
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return "0.0.0.0"
}
