package emotion

import (
	"math"
	"slices"
)

// Outcome says what Apply did with an intent.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedConfidence
	RejectedCooldown
	BudgetExceeded
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedConfidence:
		return "rejected_confidence"
	case RejectedCooldown:
		return "rejected_cooldown"
	case BudgetExceeded:
		return "budget_exceeded"
	}
	return "unknown"
}

// Apply arbitrates one intent against s at now (unix ms). A rejected intent
// returns s unchanged.
func Apply(s State, in Intent, now int64) (State, Outcome) {
	confidence := Clamp01(in.Confidence)
	if confidence < ConfidenceFloor {
		return s, RejectedConfidence
	}
	if s.LastAccepted != nil && now-s.LastIntentAt < CooldownMs && !overrides(*s.LastAccepted, in.Source, confidence) {
		return s, RejectedCooldown
	}

	next := s.clone()
	mood := GuardTransition(s.Mood, in.Mood, in)
	intensity := GuardIntensity(mood, Clamp01(in.Intensity))

	if mood != s.Mood {
		next.Transitions = slices.DeleteFunc(next.Transitions, func(ts int64) bool {
			return now-ts >= TransitionWindowMs
		})
		if len(next.Transitions) >= MaxTransitions {
			next.Mood = Calm
			next.Intensity = math.Min(s.Intensity, ForcedCalmCeiling)
			next.AngryUntil = 0
			next.MoodEnteredAt = now
			return next, BudgetExceeded
		}
		next.Transitions = append(next.Transitions, now)
		next.MoodEnteredAt = now
	}

	next.Mood = mood
	next.Intensity = intensity
	if mood == Angry {
		next.AngryUntil = now + AngryMaxMs
	} else {
		next.AngryUntil = 0
	}
	ts := in.Timestamp
	if ts == 0 {
		ts = now
	}
	next.LastAccepted = &Fingerprint{Source: in.Source, Confidence: confidence, Timestamp: ts}
	next.LastIntentAt = now
	return next, Accepted
}

func overrides(prev Fingerprint, src Source, confidence float64) bool {
	pp, np := prev.Source.Priority(), src.Priority()
	if np > pp {
		return true
	}
	return np == pp && confidence > Clamp01(prev.Confidence)
}

// GuardTransition resolves the mood the avatar may actually move to. Any
// edge not on the legal graph lands on Calm.
func GuardTransition(from, to Mood, in Intent) Mood {
	if to == from || to.Safe() {
		return to
	}
	if to == Angry {
		if in.Source == Inline && Clamp01(in.Confidence) >= AngryConfidence &&
			(from.Safe() || from == Nervous || from == Sad) {
			return Angry
		}
		return Calm
	}
	switch from {
	case Neutral, Calm:
		switch to {
		case Happy, Amused, Nervous, Sad:
			return to
		}
	case Happy:
		if to == Amused {
			return to
		}
	case Amused:
		if to == Happy {
			return to
		}
	}
	return Calm
}

// GuardIntensity applies the per-mood intensity caps.
func GuardIntensity(m Mood, intensity float64) float64 {
	switch m {
	case Neutral:
		return 0
	case Angry:
		return math.Min(intensity, AngryCeiling)
	case Calm:
		return math.Min(intensity, CalmCeiling)
	}
	return intensity
}
