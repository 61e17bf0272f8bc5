package scene

import (
	"bytes"
	"encoding/json"
)

// Field is one named numeric geometry field of a props variant.
type Field struct {
	Name  string
	Value float64
}

// Props is the sealed union of per-type geometry. Each variant lists its
// named numeric fields so they can be interpolated generically.
type Props interface {
	Kind() Type
	Fields() []Field
	mapFields(fn func(name string, v float64) float64) Props
}

type CircleProps struct {
	Radius float64 `json:"radius"`
}

func (CircleProps) Kind() Type { return TypeCircle }

func (p CircleProps) Fields() []Field { return []Field{{"radius", p.Radius}} }

func (p CircleProps) mapFields(fn func(string, float64) float64) Props {
	return CircleProps{Radius: fn("radius", p.Radius)}
}

type EllipseProps struct {
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
}

func (EllipseProps) Kind() Type { return TypeEllipse }

func (p EllipseProps) Fields() []Field { return []Field{{"rx", p.RX}, {"ry", p.RY}} }

func (p EllipseProps) mapFields(fn func(string, float64) float64) Props {
	return EllipseProps{RX: fn("rx", p.RX), RY: fn("ry", p.RY)}
}

type RectProps struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (RectProps) Kind() Type { return TypeRect }

func (p RectProps) Fields() []Field { return []Field{{"width", p.Width}, {"height", p.Height}} }

func (p RectProps) mapFields(fn func(string, float64) float64) Props {
	return RectProps{Width: fn("width", p.Width), Height: fn("height", p.Height)}
}

type LineProps struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (LineProps) Kind() Type { return TypeLine }

func (p LineProps) Fields() []Field {
	return []Field{{"x1", p.X1}, {"y1", p.Y1}, {"x2", p.X2}, {"y2", p.Y2}}
}

func (p LineProps) mapFields(fn func(string, float64) float64) Props {
	return LineProps{X1: fn("x1", p.X1), Y1: fn("y1", p.Y1), X2: fn("x2", p.X2), Y2: fn("y2", p.Y2)}
}

type TriangleProps struct {
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
	BX float64 `json:"bx"`
	BY float64 `json:"by"`
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
}

func (TriangleProps) Kind() Type { return TypeTriangle }

func (p TriangleProps) Fields() []Field {
	return []Field{{"ax", p.AX}, {"ay", p.AY}, {"bx", p.BX}, {"by", p.BY}, {"cx", p.CX}, {"cy", p.CY}}
}

func (p TriangleProps) mapFields(fn func(string, float64) float64) Props {
	return TriangleProps{
		AX: fn("ax", p.AX), AY: fn("ay", p.AY),
		BX: fn("bx", p.BX), BY: fn("by", p.BY),
		CX: fn("cx", p.CX), CY: fn("cy", p.CY),
	}
}

// ArcProps is an elliptical arc inside a width x height box. The chord
// endpoints travel with it so a renderer can morph to and from a line.
type ArcProps struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	StartAngle float64 `json:"startAngle"`
	SweepAngle float64 `json:"sweepAngle"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

func (ArcProps) Kind() Type { return TypeArc }

func (p ArcProps) Fields() []Field {
	return []Field{
		{"width", p.Width}, {"height", p.Height},
		{"startAngle", p.StartAngle}, {"sweepAngle", p.SweepAngle},
		{"x1", p.X1}, {"y1", p.Y1}, {"x2", p.X2}, {"y2", p.Y2},
	}
}

func (p ArcProps) mapFields(fn func(string, float64) float64) Props {
	return ArcProps{
		Width: fn("width", p.Width), Height: fn("height", p.Height),
		StartAngle: fn("startAngle", p.StartAngle), SweepAngle: fn("sweepAngle", p.SweepAngle),
		X1: fn("x1", p.X1), Y1: fn("y1", p.Y1), X2: fn("x2", p.X2), Y2: fn("y2", p.Y2),
	}
}

// Chord returns the arc's endpoints as a line.
func (p ArcProps) Chord() LineProps {
	return LineProps{X1: p.X1, Y1: p.Y1, X2: p.X2, Y2: p.Y2}
}

func decodeProps(t Type, raw json.RawMessage) (Props, error) {
	empty := len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	decode := func(v any) error {
		if empty {
			return nil
		}
		return json.Unmarshal(raw, v)
	}
	switch t {
	case TypeCircle:
		var p CircleProps
		err := decode(&p)
		return p, err
	case TypeEllipse:
		var p EllipseProps
		err := decode(&p)
		return p, err
	case TypeRect:
		var p RectProps
		err := decode(&p)
		return p, err
	case TypeLine:
		var p LineProps
		err := decode(&p)
		return p, err
	case TypeTriangle:
		var p TriangleProps
		err := decode(&p)
		return p, err
	case TypeArc:
		var p ArcProps
		err := decode(&p)
		return p, err
	}
	return nil, ErrUnknownShapeType
}
