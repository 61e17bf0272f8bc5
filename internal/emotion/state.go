package emotion

import (
	"math"
	"slices"
)

const (
	ConfidenceFloor    = 0.2
	CooldownMs         = 1000
	DecaySeconds       = 75.0
	ToCalmThreshold    = 0.05
	ToNeutralThreshold = 0.02
	MaxTransitions     = 6
	TransitionWindowMs = 60_000
	AngryMaxMs         = 8000
	AngryConfidence    = 0.8
	ForcedCalmCeiling  = 0.35
	AngryCeiling       = 0.6
	CalmCeiling        = 0.5
	DefaultIntensity   = 0.7

	BlinkMs       = 140
	BlinkBaseMs   = 2500
	BlinkJitterMs = 3000
	breathRate    = 2 * math.Pi * 0.18
)

// Intent is one request to change the mood. It is never stored.
type Intent struct {
	Source     Source
	Mood       Mood
	Intensity  float64
	Confidence float64
	Timestamp  int64
}

// Fingerprint is what the arbiter remembers of the last accepted intent.
type Fingerprint struct {
	Source     Source
	Confidence float64
	Timestamp  int64
}

// State is the full avatar state. Values are treated as immutable: Apply and
// Tick return a new State and never write through shared slices.
type State struct {
	Mood      Mood
	Intensity float64

	LastAccepted  *Fingerprint
	MoodEnteredAt int64
	AngryUntil    int64
	Transitions   []int64
	LastIntentAt  int64
	LastTickAt    int64

	BreathPhase float64
	BlinkUntil  int64
	NextBlinkAt int64
}

// NewState is neutral at rest with the first blink due BlinkBaseMs from now.
func NewState(now int64) State {
	return State{
		Mood:          Neutral,
		MoodEnteredAt: now,
		LastTickAt:    now,
		NextBlinkAt:   now + BlinkBaseMs,
	}
}

// Blinking reports whether the eyes are closed at now.
func (s State) Blinking(now int64) bool { return now < s.BlinkUntil }

func (s State) clone() State {
	s.Transitions = slices.Clone(s.Transitions)
	if s.LastAccepted != nil {
		fp := *s.LastAccepted
		s.LastAccepted = &fp
	}
	return s
}

// BlinkJitter maps now onto [0, BlinkJitterMs) deterministically.
func BlinkJitter(now int64) int64 {
	j := int64(math.Floor((math.Sin(float64(now)/731) + 1) / 2 * BlinkJitterMs))
	return min(max(j, 0), BlinkJitterMs-1)
}
