// Package transport pushes encoded envelopes to display websockets. Each
// display gets its own bounded queue and writer goroutine so a slow display
// never stalls the others.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"
)

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultQueueSize   = 16
)

// URL turns a host:port address into the display websocket URL.
func URL(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/"
}

// Client is one connected display.
type Client struct {
	name string
	addr string
	conn *websocket.Conn
	log  *slog.Logger

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	dropped   atomic.Int64
	onReply   func(string)
}

// DialOptions tunes Dial. Zero values take the package defaults.
type DialOptions struct {
	Name      string
	Timeout   time.Duration
	QueueSize int
	Logger    *slog.Logger
	OnReply   func(msg string)
}

// Dial connects to the display at addr and starts its reader and writer.
func Dial(ctx context.Context, addr string, opts DialOptions) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDialTimeout
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = addr
	}

	cfg, err := websocket.NewConfig(URL(addr), "http://localhost/")
	if err != nil {
		return nil, fmt.Errorf("display %s: %w", addr, err)
	}
	deadline := time.Now().Add(opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	cfg.Dialer = &net.Dialer{Deadline: deadline}
	conn, err := websocket.DialConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("dial display %s: %w", addr, err)
	}

	c := &Client{
		name:    opts.Name,
		addr:    addr,
		conn:    conn,
		log:     opts.Logger.With(slog.String("display", opts.Name), slog.String("addr", addr)),
		out:     make(chan []byte, opts.QueueSize),
		done:    make(chan struct{}),
		onReply: opts.OnReply,
	}
	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Addr() string { return c.addr }

// Done is closed once the client has shut down for any reason.
func (c *Client) Done() <-chan struct{} { return c.done }

// Dropped counts frames discarded because the queue was full.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Send queues frame without blocking. It reports false when the frame was
// dropped because the queue is full or the client is closed.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- frame:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// Close shuts the connection and waits for both goroutines.
func (c *Client) Close() error {
	c.shutdown(nil)
	c.wg.Wait()
	return nil
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		if cause != nil {
			c.log.Warn("display connection lost", slog.Any("error", cause))
		}
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.out:
			if err := websocket.Message.Send(c.conn, string(frame)); err != nil {
				c.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	for {
		var msg string
		if err := websocket.Message.Receive(c.conn, &msg); err != nil {
			select {
			case <-c.done:
			default:
				c.shutdown(fmt.Errorf("read: %w", err))
			}
			return
		}
		c.log.Debug("display reply", slog.String("body", msg))
		if c.onReply != nil {
			c.onReply(msg)
		}
	}
}
