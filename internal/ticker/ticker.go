// Package ticker drives the periodic micro-motion broadcast: each fire
// advances the agent and pushes the moving shapes to every display.
package ticker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aiface/internal/clock"
	"aiface/internal/logging"
	"aiface/internal/scene"
	"aiface/internal/wire"
)

const DefaultInterval = 200 * time.Millisecond

// Source ticks the avatar and returns its moving shapes.
type Source interface {
	TickShapes() []scene.Shape
}

// Sink is where frames go.
type Sink interface {
	Len() int
	Broadcast(frame []byte) int
}

type Observer interface {
	TickSent()
	TickSkipped()
	TickFailed()
}

type nopObserver struct{}

func (nopObserver) TickSent() {}
func (nopObserver) TickSkipped() {}
func (nopObserver) TickFailed() {}

type Options struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
	Observer Observer
}

// Scheduler runs one fire at a time. Beats that arrive while a fire is
// still running are dropped by the underlying ticker.
type Scheduler struct {
	src  Source
	sink Sink
	opts Options
	log  *slog.Logger
}

func New(src Source, sink Sink, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("ticker")
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Scheduler{src: src, sink: sink, opts: opts, log: opts.Logger}
}

// Run fires every interval until ctx is done. Fire errors are logged and
// never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	t := s.opts.Clock.NewTicker(s.opts.Interval)
	defer t.Stop()
	s.log.Info("tick loop started", slog.Duration("interval", s.opts.Interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("tick loop stopped")
			return nil
		case <-t.C:
			if err := s.Step(); err != nil {
				s.log.Error("tick failed", slog.Any("error", err))
			}
		}
	}
}

// Step performs one fire. It does nothing while no display is connected.
// A panic inside the fire comes back as an error.
func (s *Scheduler) Step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
		if err != nil {
			s.opts.Observer.TickFailed()
		}
	}()

	if s.sink.Len() == 0 {
		s.opts.Observer.TickSkipped()
		return nil
	}
	shapes := s.src.TickShapes()
	mutations := make([]scene.Mutation, len(shapes))
	for i, sh := range shapes {
		mutations[i] = scene.Update(sh)
	}
	frame, err := wire.EncodeApplyMutations(mutations, clock.Millis(s.opts.Clock.Now()))
	if err != nil {
		return err
	}
	s.sink.Broadcast(frame)
	s.opts.Observer.TickSent()
	return nil
}
