package transport

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aiface/internal/clock"
	"aiface/internal/logging"
	"aiface/internal/wire"
)

var ErrNotConnected = errors.New("display not connected")

// Display is the public view of a known display.
type Display struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
}

// Observer receives hub counters. Implementations must be cheap.
type Observer interface {
	ClientsChanged(n int)
	FrameDropped(addr string)
}

type nopObserver struct{}

func (nopObserver) ClientsChanged(int) {}
func (nopObserver) FrameDropped(string) {}

// DialFunc opens a client. Tests replace it.
type DialFunc func(ctx context.Context, addr string, opts DialOptions) (*Client, error)

// HubOptions configures a Hub. Zero values take defaults. OnConnect runs
// after a client joins, with the hello already queued.
type HubOptions struct {
	DialTimeout time.Duration
	QueueSize   int
	Logger      *slog.Logger
	Clock       clock.Clock
	Observer    Observer
	Dial        DialFunc
	OnConnect   func(*Client)
}

// Hub is the set of connected displays plus every display ever tracked,
// so dropped displays can be redialed.
type Hub struct {
	opts HubOptions
	log  *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
	known   map[string]string
	dialing map[string]bool
}

func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = logging.New("transport")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	return &Hub{
		opts:    opts,
		log:     opts.Logger,
		clients: make(map[string]*Client),
		known:   make(map[string]string),
		dialing: make(map[string]bool),
	}
}

// Track records a display so Maintain keeps trying to reach it.
func (h *Hub) Track(name, addr string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if name == "" {
		name = addr
	}
	h.known[addr] = name
}

// Connect tracks and dials addr unless it is already connected or being
// dialed. On success the hello frame is queued before OnConnect runs.
func (h *Hub) Connect(ctx context.Context, name, addr string) error {
	h.Track(name, addr)

	h.mu.Lock()
	if _, ok := h.clients[addr]; ok || h.dialing[addr] {
		h.mu.Unlock()
		return nil
	}
	h.dialing[addr] = true
	name = h.known[addr]
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.dialing, addr)
		h.mu.Unlock()
	}()

	c, err := h.opts.Dial(ctx, addr, DialOptions{
		Name:      name,
		Timeout:   h.opts.DialTimeout,
		QueueSize: h.opts.QueueSize,
		Logger:    h.log,
	})
	if err != nil {
		h.log.Warn("display dial failed", slog.String("display", name), slog.String("addr", addr), slog.Any("error", err))
		return err
	}
	hello, err := wire.EncodeHello(clock.Millis(h.opts.Clock.Now()))
	if err != nil {
		c.Close()
		return err
	}
	c.Send(hello)
	h.Add(c)
	h.log.Info("display connected", slog.String("display", name), slog.String("addr", addr))
	if h.opts.OnConnect != nil {
		h.opts.OnConnect(c)
	}
	return nil
}

// Add registers a connected client. It leaves the hub when it shuts down.
// A client already registered at the same address is replaced and closed.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	prev := h.clients[c.addr]
	h.clients[c.addr] = c
	if _, ok := h.known[c.addr]; !ok {
		h.known[c.addr] = c.name
	}
	n := len(h.clients)
	h.mu.Unlock()

	if prev != nil && prev != c {
		prev.Close()
	}
	h.opts.Observer.ClientsChanged(n)

	go func() {
		<-c.Done()
		h.drop(c)
	}()
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if h.clients[c.addr] != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.addr)
	n := len(h.clients)
	h.mu.Unlock()
	h.opts.Observer.ClientsChanged(n)
	h.log.Info("display disconnected", slog.String("display", c.name), slog.String("addr", c.addr))
}

// Remove forgets addr and closes its client if connected.
func (h *Hub) Remove(addr string) {
	h.mu.Lock()
	c := h.clients[addr]
	delete(h.known, addr)
	h.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// Forget removes every display tracked under name.
func (h *Hub) Forget(name string) {
	h.mu.Lock()
	var addrs []string
	for addr, n := range h.known {
		if n == name {
			addrs = append(addrs, addr)
		}
	}
	h.mu.Unlock()
	for _, addr := range addrs {
		h.Remove(addr)
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast queues frame on every connected display and returns how many
// accepted it. It never blocks.
func (h *Hub) Broadcast(frame []byte) int {
	sent := 0
	for _, c := range h.snapshot() {
		if c.Send(frame) {
			sent++
			continue
		}
		h.opts.Observer.FrameDropped(c.addr)
		h.log.Debug("frame dropped", slog.String("display", c.name))
	}
	return sent
}

// Send queues frame on one display.
func (h *Hub) Send(addr string, frame []byte) error {
	h.mu.Lock()
	c := h.clients[addr]
	h.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	if !c.Send(frame) {
		h.opts.Observer.FrameDropped(addr)
	}
	return nil
}

// Len is the number of connected displays.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Displays lists every tracked display, sorted by name.
func (h *Hub) Displays() []Display {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Display, 0, len(h.known))
	for addr, name := range h.known {
		_, ok := h.clients[addr]
		out = append(out, Display{Name: name, Address: addr, Connected: ok})
	}
	slices.SortFunc(out, func(a, b Display) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Address, b.Address))
	})
	return out
}

// Maintain redials tracked displays that are not connected, once per
// interval, until ctx is done.
func (h *Hub) Maintain(ctx context.Context, interval time.Duration) error {
	t := h.opts.Clock.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for _, d := range h.Displays() {
				if d.Connected {
					continue
				}
				_ = h.Connect(ctx, d.Name, d.Address)
			}
		}
	}
}

// Close disconnects every display.
func (h *Hub) Close() error {
	var g errgroup.Group
	for _, c := range h.snapshot() {
		g.Go(c.Close)
	}
	return g.Wait()
}
