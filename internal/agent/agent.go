// Package agent owns the single avatar: it serialises intents and ticks
// through the emotion arbiter and compiles the result into scenes.
package agent

import (
	"errors"
	"log/slog"
	"sync"

	"aiface/internal/clock"
	"aiface/internal/compiler"
	"aiface/internal/emotion"
	"aiface/internal/logging"
	"aiface/internal/scene"
)

const (
	AvatarID   = "default"
	AvatarName = "Agent"
)

var ErrClosed = errors.New("agent closed")

// Avatar is the public view of the avatar.
type Avatar struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Mood      emotion.Mood `json:"mood"`
	Intensity float64      `json:"intensity"`
}

// Observer is notified of arbitration results. Implementations must not
// call back into the Agent.
type Observer interface {
	IntentOutcome(src emotion.Source, outcome emotion.Outcome)
	Transition(from, to emotion.Mood)
}

type nopObserver struct{}

func (nopObserver) IntentOutcome(emotion.Source, emotion.Outcome) {}
func (nopObserver) Transition(emotion.Mood, emotion.Mood) {}

// Agent is safe for concurrent use. Every operation holds one mutex for
// its whole duration.
type Agent struct {
	mu     sync.Mutex
	clock  clock.Clock
	log    *slog.Logger
	obs    Observer
	state  emotion.State
	closed bool
}

type Option func(*Agent)

func WithClock(c clock.Clock) Option { return func(a *Agent) { a.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(a *Agent) { a.log = l } }

func WithObserver(o Observer) Option { return func(a *Agent) { a.obs = o } }

// New creates the avatar at rest.
func New(opts ...Option) *Agent {
	a := &Agent{clock: clock.Real(), obs: nopObserver{}}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = logging.New("agent")
	}
	a.state = emotion.NewState(a.now())
	return a
}

func (a *Agent) now() int64 { return clock.Millis(a.clock.Now()) }

// SetMood applies a direct INLINE intent at full confidence. A nil
// intensity is 0 for neutral, else the current intensity if positive,
// else emotion.DefaultIntensity.
func (a *Agent) SetMood(mood emotion.Mood, intensity *float64) (Avatar, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Avatar{}, ErrClosed
	}
	var i float64
	switch {
	case intensity != nil:
		i = emotion.Clamp01(*intensity)
	case mood == emotion.Neutral:
		i = 0
	case a.state.Intensity > 0:
		i = a.state.Intensity
	default:
		i = emotion.DefaultIntensity
	}
	now := a.now()
	a.applyLocked(emotion.Intent{
		Source:     emotion.Inline,
		Mood:       mood,
		Intensity:  i,
		Confidence: 1,
		Timestamp:  now,
	}, now)
	return a.avatarLocked(), nil
}

// PushIntent arbitrates an intent from any source.
func (a *Agent) PushIntent(in emotion.Intent) (Avatar, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Avatar{}, ErrClosed
	}
	a.applyLocked(in, a.now())
	return a.avatarLocked(), nil
}

func (a *Agent) applyLocked(in emotion.Intent, now int64) {
	prev := a.state
	next, out := emotion.Apply(prev, in, now)
	a.state = next
	a.obs.IntentOutcome(in.Source, out)

	switch out {
	case emotion.RejectedConfidence, emotion.RejectedCooldown:
		a.log.Debug("intent rejected",
			slog.String("reason", out.String()),
			slog.String("source", string(in.Source)),
			slog.String("mood", string(in.Mood)),
			slog.Float64("confidence", in.Confidence))
		return
	case emotion.BudgetExceeded:
		a.log.Warn("transition budget exceeded, forcing calm",
			slog.String("from", string(prev.Mood)),
			slog.String("requested", string(in.Mood)))
	}
	if prev.Mood != next.Mood {
		a.transitionLocked(prev.Mood, next.Mood, "intent")
	}
}

func (a *Agent) transitionLocked(from, to emotion.Mood, cause string) {
	a.obs.Transition(from, to)
	a.log.Info("fsm transition",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("cause", cause))
}

// Avatar returns the current mood and intensity.
func (a *Agent) Avatar() Avatar {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.avatarLocked()
}

func (a *Agent) avatarLocked() Avatar {
	return Avatar{ID: AvatarID, Name: AvatarName, Mood: a.state.Mood, Intensity: a.state.Intensity}
}

// Tick advances timers to the clock's now.
func (a *Agent) Tick() emotion.TickEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tickLocked()
}

func (a *Agent) tickLocked() emotion.TickEvent {
	if a.closed {
		return emotion.TickEvent{From: a.state.Mood, To: a.state.Mood}
	}
	next, ev := emotion.Tick(a.state, a.now())
	a.state = next
	if ev.Transitioned() {
		cause := "decay"
		if ev.AngryExpired {
			cause = "angry_expired"
		}
		a.transitionLocked(ev.From, ev.To, cause)
	}
	return ev
}

// TickShapes ticks and compiles the moving shapes under one lock, so the
// shapes always match the state they were ticked to.
func (a *Agent) TickShapes() []scene.Shape {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tickLocked()
	return compiler.MutationShapes(a.poseLocked())
}

// Scene compiles the full scene for the current pose.
func (a *Agent) Scene() scene.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return compiler.Scene(a.poseLocked())
}

// MutationShapes compiles the moving shapes for the current pose.
func (a *Agent) MutationShapes() []scene.Shape {
	a.mu.Lock()
	defer a.mu.Unlock()
	return compiler.MutationShapes(a.poseLocked())
}

func (a *Agent) poseLocked() compiler.Pose { return compiler.PoseAt(a.state, a.now()) }

// State returns a snapshot of the raw arbiter state.
func (a *Agent) State() emotion.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Close stops the agent accepting intents. Reads keep working.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
