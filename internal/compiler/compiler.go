// Package compiler turns an emotional pose into face shapes.
package compiler

import (
	"math"

	"aiface/internal/emotion"
	"aiface/internal/scene"
)

const (
	black     = "#000000"
	faceFill  = "#FFD8B0"
	paperFill = "#FFFFFF"

	browWidth   = 4
	breathAmp   = 2.5
	mouthY      = 35
	eyeY        = -20
	eyeX        = 30
	eyeOpen     = 9.0
	eyeCalm     = 6.5
	eyeRest     = 7.5
	blinkRadius = 1.2
	browTilt    = 15
)

// Pose is everything the compiler needs from the avatar at one instant.
type Pose struct {
	Mood        emotion.Mood
	Intensity   float64
	BreathPhase float64
	Blink       bool
}

// PoseAt reads the pose out of s at now.
func PoseAt(s emotion.State, now int64) Pose {
	return Pose{
		Mood:        s.Mood,
		Intensity:   s.Intensity,
		BreathPhase: s.BreathPhase,
		Blink:       s.Blinking(now),
	}
}

func (p Pose) breath() float64 { return math.Sin(p.BreathPhase) * breathAmp }

func (p Pose) intensity() float64 { return emotion.Clamp01(p.Intensity) }

// Scene is the full document: background, face base, then the features.
// The features carry the pose's breath offset and blink, so a full scene
// matches the tick deltas sent for the same pose.
func Scene(p Pose) scene.Document {
	shapes := []scene.Shape{
		{
			ID:    scene.IDBackground,
			Type:  scene.TypeRect,
			Style: scene.Style{Fill: scene.Color(paperFill), Opacity: 1},
			Props: scene.RectProps{Width: 200, Height: 200},
		},
		{
			ID:    scene.ProtectedShapeID,
			Type:  scene.TypeCircle,
			Style: scene.Style{Fill: scene.Color(faceFill), Opacity: 1},
			Props: scene.CircleProps{Radius: 90},
		},
	}
	return scene.NewDocument(append(shapes, MutationShapes(p)...))
}

// MutationShapes are the shapes that move from tick to tick.
func MutationShapes(p Pose) []scene.Shape {
	return []scene.Shape{
		Brow(true, p),
		Brow(false, p),
		Eye(true, p),
		Eye(false, p),
		Mouth(p),
	}
}

func strokeStyle() scene.Style {
	return scene.Style{Stroke: scene.Color(black), StrokeWidth: browWidth, Opacity: 1}
}

func browProps(left bool, m emotion.Mood) scene.LineProps {
	y := -38.0
	switch m {
	case emotion.Calm, emotion.Happy, emotion.Amused:
		y = -44
	}
	if left {
		return scene.LineProps{X1: -40, Y1: y, X2: -15, Y2: y}
	}
	return scene.LineProps{X1: 15, Y1: y, X2: 40, Y2: y}
}

func browRotation(left bool, m emotion.Mood) float64 {
	var r float64
	switch m {
	case emotion.Angry:
		r = browTilt
	case emotion.Sad, emotion.Nervous:
		r = -browTilt
	default:
		return 0
	}
	if !left {
		r = -r
	}
	return r
}

// Brow lerps the level neutral brow toward the mood's brow and tilts it.
func Brow(left bool, p Pose) scene.Shape {
	id := scene.IDRightBrow
	if left {
		id = scene.IDLeftBrow
	}
	t := p.intensity()
	return scene.Shape{
		ID:   id,
		Type: scene.TypeLine,
		Transform: scene.Transform{
			Y:        p.breath(),
			Rotation: browRotation(left, p.Mood) * t,
		},
		Style: strokeStyle(),
		Props: scene.LerpProps(browProps(left, emotion.Neutral), browProps(left, p.Mood), t),
	}
}

// Eye is a filled circle that widens with intensity and collapses on blink.
func Eye(left bool, p Pose) scene.Shape {
	id, x := scene.IDRightEye, float64(eyeX)
	if left {
		id, x = scene.IDLeftEye, -eyeX
	}
	base := eyeRest
	if p.Mood == emotion.Calm {
		base = eyeCalm
	}
	r := scene.Lerp(base, eyeOpen, p.intensity())
	if p.Blink {
		r = blinkRadius
	}
	return scene.Shape{
		ID:        id,
		Type:      scene.TypeCircle,
		Transform: scene.Transform{X: x, Y: eyeY + p.breath()},
		Style:     scene.Style{Fill: scene.Color(black), Opacity: 1},
		Props:     scene.CircleProps{Radius: r},
	}
}

type mouthTarget struct {
	arc    bool
	width  float64
	height float64
	sweep  float64
}

var mouths = map[emotion.Mood]mouthTarget{
	emotion.Happy:   {arc: true, width: 60, height: 40, sweep: 180},
	emotion.Amused:  {arc: true, width: 70, height: 50, sweep: 180},
	emotion.Calm:    {arc: true, width: 40, height: 10, sweep: 180},
	emotion.Nervous: {arc: true, width: 40, height: 15, sweep: -180},
	emotion.Sad:     {arc: true, width: 45, height: 25, sweep: -180},
	emotion.Angry:   {arc: true, width: 55, height: 35, sweep: -180},
	emotion.Neutral: {width: 50, sweep: 180},
}

func (m mouthTarget) props() scene.ArcProps {
	return scene.ArcProps{
		Width:      m.width,
		Height:     m.height,
		SweepAngle: m.sweep,
		X1:         -25,
		X2:         25,
	}
}

// Mouth lerps a flat arc toward the mood's arc. The flat baseline shares the
// target's sweep so the curve never flips direction mid-lerp. Below half
// intensity the mouth is drawn as its chord.
func Mouth(p Pose) scene.Shape {
	target, ok := mouths[p.Mood]
	if !ok {
		target = mouths[emotion.Neutral]
	}
	base := mouths[emotion.Neutral].props()
	base.StartAngle, base.SweepAngle, base.Height = 0, target.sweep, 0

	t := p.intensity()
	arc := scene.LerpProps(base, target.props(), t).(scene.ArcProps)

	shape := scene.Shape{
		ID:        scene.IDMouth,
		Type:      scene.TypeLine,
		Transform: scene.Transform{Y: mouthY + p.breath()},
		Style:     strokeStyle(),
		Props:     arc.Chord(),
	}
	if target.arc && t > 0.5 {
		shape.Type = scene.TypeArc
		shape.Props = arc
	}
	return shape
}
