// Package discovery finds displays on the local network over mDNS and
// lets a display runtime advertise itself.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"

	"aiface/internal/logging"
)

const (
	DefaultService = "_ai-face._tcp"
	DefaultDomain  = "local."
	DefaultPort    = 8765
)

// Found is a display seen on the network. Lost is set when the entry was
// a goodbye record.
type Found struct {
	Instance string
	Addr     string
	Lost     bool
}

// Browser watches for display service announcements.
type Browser struct {
	Service string
	Domain  string
	Logger  *slog.Logger
}

// Run browses until ctx is done, calling fn for every usable entry. fn runs
// on a single goroutine owned by the resolver's entry stream.
func (b Browser) Run(ctx context.Context, fn func(Found)) error {
	if b.Service == "" {
		b.Service = DefaultService
	}
	if b.Domain == "" {
		b.Domain = DefaultDomain
	}
	log := b.Logger
	if log == nil {
		log = logging.New("discovery")
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("mdns resolver: %w", err)
	}
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for e := range entries {
			f, ok := FromEntry(e)
			if !ok {
				log.Debug("skipping entry without address", slog.String("instance", e.Instance))
				continue
			}
			if f.Lost {
				log.Info("display removed", slog.String("instance", f.Instance))
			} else {
				log.Info("display discovered", slog.String("instance", f.Instance), slog.String("addr", f.Addr))
			}
			fn(f)
		}
	}()

	log.Info("mdns browse started", slog.String("service", b.Service), slog.String("domain", b.Domain))
	if err := resolver.Browse(ctx, b.Service, b.Domain, entries); err != nil {
		return fmt.Errorf("mdns browse %s: %w", b.Service, err)
	}
	<-ctx.Done()
	log.Info("mdns browse stopped")
	return nil
}

// FromEntry picks the dialable address of an entry, preferring IPv4.
func FromEntry(e *zeroconf.ServiceEntry) (Found, bool) {
	if e == nil || e.Port <= 0 {
		return Found{}, false
	}
	var ip net.IP
	switch {
	case len(e.AddrIPv4) > 0:
		ip = e.AddrIPv4[0]
	case len(e.AddrIPv6) > 0:
		ip = e.AddrIPv6[0]
	default:
		return Found{}, false
	}
	return Found{
		Instance: e.Instance,
		Addr:     net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
		Lost:     e.TTL == 0,
	}, true
}

// Advertisement is a registered display service.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise announces instance on port until Shutdown.
func Advertise(instance, service, domain string, port int, txt []string) (*Advertisement, error) {
	if service == "" {
		service = DefaultService
	}
	if domain == "" {
		domain = DefaultDomain
	}
	server, err := zeroconf.Register(instance, service, domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register %s: %w", instance, err)
	}
	return &Advertisement{server: server}, nil
}

func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
