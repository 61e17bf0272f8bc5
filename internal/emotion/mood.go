// Package emotion implements the intent arbiter: the pure state machine
// that gates, guards and decays the avatar's mood.
package emotion

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrUnknownMood   = errors.New("unknown mood")
	ErrUnknownSource = errors.New("unknown intent source")
)

// Mood is the closed set of expressible moods.
type Mood string

const (
	Neutral Mood = "neutral"
	Calm    Mood = "calm"
	Happy   Mood = "happy"
	Amused  Mood = "amused"
	Nervous Mood = "nervous"
	Sad     Mood = "sad"
	Angry   Mood = "angry"
)

// Moods lists every mood in declaration order.
var Moods = []Mood{Neutral, Calm, Happy, Amused, Nervous, Sad, Angry}

// ParseMood resolves a mood name, case-insensitively.
func ParseMood(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Moods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMood, s)
}

// Safe reports whether m belongs to the calm/neutral basin.
func (m Mood) Safe() bool { return m == Neutral || m == Calm }

// Source says where an intent came from. Higher priority wins cooldown ties.
type Source string

const (
	Inline Source = "INLINE"
	Hybrid Source = "HYBRID"
	Post   Source = "POST"
)

// ParseSource resolves a source name. An empty string means Post.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToUpper(strings.TrimSpace(s))); src {
	case "":
		return Post, nil
	case Inline, Hybrid, Post:
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Priority is INLINE 3, HYBRID 2, anything else 1.
func (s Source) Priority() int {
	switch s {
	case Inline:
		return 3
	case Hybrid:
		return 2
	}
	return 1
}

// Clamp01 clamps v to [0, 1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
