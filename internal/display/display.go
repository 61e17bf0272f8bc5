// Package display is a headless display runtime: it accepts authority
// connections over websocket, reduces incoming messages into a cached
// scene and exposes the resulting UI state.
package display

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"aiface/internal/discovery"
	"aiface/internal/logging"
	"aiface/internal/scene"
	"aiface/internal/wire"
)

const (
	// ErrInvalidMessage is the LastError text for any rejected message.
	ErrInvalidMessage = "unsupported or invalid message"

	ackBody = `{"status": "ok"}`
	banner  = "AIFace display endpoint"
)

// UIState is what a renderer would draw from.
type UIState struct {
	Scene            []scene.Shape `json:"scene"`
	Advertising      bool          `json:"isAdvertising"`
	ConnectedClients int           `json:"connectedClients"`
	LastMessageType  string        `json:"lastMessageType"`
	Endpoint         string        `json:"endpoint"`
	ServiceType      string        `json:"serviceType"`
	LastError        string        `json:"lastError,omitempty"`
}

type Observer interface {
	MessageHandled(msgType string, ok bool)
}

type nopObserver struct{}

func (nopObserver) MessageHandled(string, bool) {}

type Options struct {
	Endpoint    string
	ServiceType string
	Logger      *slog.Logger
	Observer    Observer
}

// Runtime is safe for concurrent use by any number of connections.
type Runtime struct {
	log *slog.Logger
	obs Observer

	mu    sync.Mutex
	state UIState
}

func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = logging.New("display")
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.ServiceType == "" {
		opts.ServiceType = discovery.DefaultService
	}
	if opts.Endpoint == "" {
		opts.Endpoint = fmt.Sprintf("ws://0.0.0.0:%d", discovery.DefaultPort)
	}
	return &Runtime{
		log: opts.Logger,
		obs: opts.Observer,
		state: UIState{
			Scene:           scene.NeutralScene().Scene,
			LastMessageType: "none",
			Endpoint:        opts.Endpoint,
			ServiceType:     opts.ServiceType,
		},
	}
}

// Handle reduces one raw message into the cached scene. A message that
// fails to parse leaves the scene alone and sets LastError.
func (r *Runtime) Handle(raw []byte) (wire.Type, error) {
	msg, err := wire.Parse(raw)
	if err != nil {
		r.mu.Lock()
		r.state.LastError = ErrInvalidMessage
		r.mu.Unlock()
		r.obs.MessageHandled("invalid", false)
		r.log.Debug("message rejected", slog.Any("error", err))
		return "", err
	}

	r.mu.Lock()
	switch m := msg.(type) {
	case wire.SetScene:
		r.state.Scene = scene.Sanitize(m.Scene.Scene)
	case wire.ApplyMutations:
		r.state.Scene = scene.ApplyMutations(r.state.Scene, m.Mutations)
	case wire.Reset:
		r.state.Scene = scene.NeutralScene().Scene
	}
	r.state.LastMessageType = string(msg.MessageType())
	r.state.LastError = ""
	r.mu.Unlock()

	r.obs.MessageHandled(string(msg.MessageType()), true)
	return msg.MessageType(), nil
}

// Snapshot returns a copy of the UI state.
func (r *Runtime) Snapshot() UIState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Scene = slices.Clone(s.Scene)
	return s
}

// SetAdvertising records the mDNS advertiser status.
func (r *Runtime) SetAdvertising(on bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Advertising = on
	if err != nil {
		r.state.LastError = err.Error()
	}
}

// Stop marks the runtime as no longer serving.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Advertising = false
	r.state.ConnectedClients = 0
	r.state.LastMessageType = "stopped"
}

func (r *Runtime) clientDelta(d int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.ConnectedClients = max(0, r.state.ConnectedClients+d)
}

// Handler accepts authority websockets. Every handled message is acked to
// its sender.
func (r *Runtime) Handler() http.Handler {
	return websocket.Server{Handler: r.serveConn}
}

func (r *Runtime) serveConn(conn *websocket.Conn) {
	defer conn.Close()
	r.clientDelta(1)
	defer r.clientDelta(-1)
	r.log.Info("authority connected", slog.String("remote", conn.Request().RemoteAddr))

	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Debug("connection closed", slog.Any("error", err))
			}
			return
		}
		if _, err := r.Handle(raw); err != nil {
			continue
		}
		if err := websocket.Message.Send(conn, ackBody); err != nil {
			r.log.Debug("ack failed", slog.Any("error", err))
			return
		}
	}
}

// StateHandler serves the UI state as JSON.
func (r *Runtime) StateHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(r.Snapshot())
	})
}

// Mux routes "/" to the websocket (or a banner for plain GETs) and
// "/state" to the JSON state.
func (r *Runtime) Mux() http.Handler {
	ws := r.Handler()
	mux := http.NewServeMux()
	mux.Handle("/state", r.StateHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
			ws.ServeHTTP(w, req)
			return
		}
		_, _ = w.Write([]byte(banner))
	})
	return mux
}
