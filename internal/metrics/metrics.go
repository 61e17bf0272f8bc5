// Package metrics exposes prometheus counters for the arbiter, the tick
// scheduler, the display hub and the display runtime.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aiface/internal/emotion"
)

const namespace = "aiface"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	intents      *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	displays     prometheus.Gauge
	dropped      *prometheus.CounterVec
	ticks        prometheus.Counter
	tickSkips    prometheus.Counter
	tickFailures prometheus.Counter
	messages     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Emotion intents by source and arbitration outcome.",
		}, []string{"source", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mood_transitions_total",
			Help:      "Mood changes by origin and destination.",
		}, []string{"from", "to"}),
		displays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "displays_connected",
			Help:      "Displays currently connected to the hub.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames discarded because a display queue was full.",
		}, []string{"display"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduler fires that sent mutations.",
		}),
		tickSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Scheduler fires skipped because no display was connected.",
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_failures_total",
			Help:      "Scheduler fires that failed or panicked.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_messages_total",
			Help:      "Messages handled by the display runtime by type and result.",
		}, []string{"type", "result"}),
	}
	m.reg.MustRegister(
		m.intents, m.transitions, m.displays, m.dropped,
		m.ticks, m.tickSkips, m.tickFailures, m.messages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// IntentOutcome counts an arbitration result.
func (m *Metrics) IntentOutcome(src emotion.Source, o emotion.Outcome) {
	m.intents.WithLabelValues(string(src), o.String()).Inc()
}

// Transition counts a mood change.
func (m *Metrics) Transition(from, to emotion.Mood) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ClientsChanged sets the connected display gauge.
func (m *Metrics) ClientsChanged(n int) { m.displays.Set(float64(n)) }

// FrameDropped counts a frame lost to a full queue.
func (m *Metrics) FrameDropped(addr string) { m.dropped.WithLabelValues(addr).Inc() }

func (m *Metrics) TickSent() { m.ticks.Inc() }

func (m *Metrics) TickSkipped() { m.tickSkips.Inc() }

func (m *Metrics) TickFailed() { m.tickFailures.Inc() }

// MessageHandled counts one inbound display message.
func (m *Metrics) MessageHandled(msgType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.messages.WithLabelValues(msgType, result).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
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
}
