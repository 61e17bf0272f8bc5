package emotion

import "math"

// TickEvent reports what a Tick changed.
type TickEvent struct {
	From, To     Mood
	Blinked      bool
	AngryExpired bool
}

// Transitioned reports whether the mood changed during the tick.
func (e TickEvent) Transitioned() bool { return e.From != e.To }

// Tick advances breathing, blinking, angry expiry and decay to now.
func Tick(s State, now int64) (State, TickEvent) {
	next := s
	ev := TickEvent{From: s.Mood}
	dt := float64(max(0, now-s.LastTickAt)) / 1000
	next.LastTickAt = now

	next.BreathPhase = math.Mod(s.BreathPhase+dt*breathRate, 2*math.Pi)

	if now >= s.NextBlinkAt {
		next.BlinkUntil = now + BlinkMs
		next.NextBlinkAt = now + BlinkBaseMs + BlinkJitter(now)
		ev.Blinked = true
	}

	if next.Mood == Angry && next.AngryUntil > 0 && now >= next.AngryUntil {
		next.Mood = Calm
		next.Intensity = math.Min(next.Intensity, ForcedCalmCeiling)
		next.AngryUntil = 0
		next.MoodEnteredAt = now
		ev.AngryExpired = true
	}

	if next.Intensity > 0 {
		next.Intensity = math.Max(0, next.Intensity-dt/DecaySeconds)
	}

	if next.Intensity <= ToCalmThreshold {
		switch {
		case !next.Mood.Safe():
			next.Mood = Calm
			next.MoodEnteredAt = now
		case next.Mood == Calm && next.Intensity <= ToNeutralThreshold:
			next.Mood = Neutral
			next.Intensity = 0
			next.MoodEnteredAt = now
		}
	}

	ev.To = next.Mood
	return next, ev
}
