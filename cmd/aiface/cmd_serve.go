package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"aiface/internal/agent"
	"aiface/internal/clock"
	"aiface/internal/config"
	"aiface/internal/discovery"
	"aiface/internal/logging"
	mcpserver "aiface/internal/mcp"
	"aiface/internal/metrics"
	"aiface/internal/ticker"
	"aiface/internal/transport"
	"aiface/internal/wire"
)

var serveFlags struct {
	displays       []string
	tickInterval   time.Duration
	redialInterval time.Duration
	noDiscovery    bool
	metricsAddr    string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP authority over stdio",
	Long: `Starts an MCP server over stdin/stdout. Tool calls set or push emotions;
the resulting face is pushed to every connected display, with micro-movement
updates on each tick.

Displays come from --display addresses and, unless disabled, from mDNS.
The server exits when its parent process dies.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringSliceVar(&serveFlags.displays, "display", nil, "Display address host:port (repeatable)")
	f.DurationVar(&serveFlags.tickInterval, "tick-interval", 0, "Micro-movement tick period")
	f.DurationVar(&serveFlags.redialInterval, "redial-interval", 0, "Reconnect period for dropped displays (0 keeps config)")
	f.BoolVar(&serveFlags.noDiscovery, "no-discovery", false, "Disable mDNS display discovery")
	f.StringVar(&serveFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func applyServeFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("display") {
			cfg.Displays = serveFlags.displays
		}
		if flags.Changed("tick-interval") {
			cfg.TickInterval = serveFlags.tickInterval
		}
		if flags.Changed("redial-interval") {
			cfg.RedialInterval = serveFlags.redialInterval
		}
		if serveFlags.noDiscovery {
			cfg.Discovery.Enabled = false
		}
		if flags.Changed("metrics-addr") {
			cfg.MetricsAddr = serveFlags.metricsAddr
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, applyServeFlags(cmd))
	if err != nil {
		return err
	}
	log := logging.New("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	av := agent.New(agent.WithObserver(m))
	defer av.Close()

	hub := transport.NewHub(transport.HubOptions{
		DialTimeout: cfg.DialTimeout,
		QueueSize:   cfg.QueueSize,
		Observer:    m,
		OnConnect: func(c *transport.Client) {
			frame, err := wire.EncodeSetScene(av.Scene(), clock.Millis(time.Now()))
			if err != nil {
				log.Error("encode initial scene", slog.Any("error", err))
				return
			}
			c.Send(frame)
		},
	})
	defer hub.Close()

	srv := mcpserver.NewServer(av, hub, mcpserver.Options{Name: cfg.Name, Version: cfg.Version})
	sched := ticker.New(av, hub, ticker.Options{Interval: cfg.TickInterval, Observer: m})

	mcpserver.WatchParent(ctx, os.Getppid, cancel, logging.New("mcp"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})
	g.Go(func() error { return sched.Run(gctx) })

	for _, addr := range cfg.Displays {
		g.Go(func() error {
			// Failures are retried by Maintain.
			_ = hub.Connect(gctx, addr, addr)
			return nil
		})
	}
	if cfg.RedialInterval > 0 {
		g.Go(func() error { return hub.Maintain(gctx, cfg.RedialInterval) })
	}
	if cfg.Discovery.Enabled {
		g.Go(func() error {
			b := discovery.Browser{Service: cfg.Discovery.Service, Domain: cfg.Discovery.Domain}
			err := b.Run(gctx, func(f discovery.Found) {
				if f.Lost {
					hub.Forget(f.Instance)
					return
				}
				go func() { _ = hub.Connect(gctx, f.Instance, f.Addr) }()
			})
			if err != nil {
				log.Warn("display discovery unavailable", slog.Any("error", err))
			}
			return nil
		})
	}
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return m.Serve(gctx, cfg.MetricsAddr) })
	}

	log.Info("starting ai-face MCP server over stdio",
		slog.String("name", cfg.Name),
		slog.String("version", cfg.Version),
		slog.Int("static_displays", len(cfg.Displays)),
		slog.Bool("discovery", cfg.Discovery.Enabled))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
