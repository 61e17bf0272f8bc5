// Package scene defines the declarative face scene shared by the authority
// and the displays: shapes, scene documents, mutations, the geometry
// helpers used to build them, and the consumer-side reducer.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// SchemaV1 tags every scene document and wire envelope.
	SchemaV1 = "ai-face.v1"
	// ProtectedShapeID is the base face shape. It is never removed.
	ProtectedShapeID = "face_base"
	// MaxShapes caps the number of shapes a scene may hold.
	MaxShapes = 20
)

// Mandatory shape ids present in every compiled scene.
const (
	IDBackground = "background"
	IDLeftBrow   = "left_brow"
	IDRightBrow  = "right_brow"
	IDLeftEye    = "left_eye"
	IDRightEye   = "right_eye"
	IDMouth      = "mouth"
)

var (
	ErrUnknownShapeType = errors.New("unknown shape type")
	ErrUnknownOp        = errors.New("unknown mutation op")
	ErrMissingID        = errors.New("shape id is required")
)

// Type is the renderable primitive kind of a shape.
type Type string

const (
	TypeCircle   Type = "circle"
	TypeEllipse  Type = "ellipse"
	TypeRect     Type = "rect"
	TypeLine     Type = "line"
	TypeTriangle Type = "triangle"
	TypeArc      Type = "arc"
)

// Valid reports whether t is one of the six known primitives.
func (t Type) Valid() bool {
	switch t {
	case TypeCircle, TypeEllipse, TypeRect, TypeLine, TypeTriangle, TypeArc:
		return true
	}
	return false
}

// Transform positions a shape in world coordinates ([-100, 100] on both axes).
// Rotation is in degrees.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// Style is the paint of a shape. Nil Fill or Stroke means "none". A Go
// zero Style is fully transparent; only JSON that omits opacity decodes
// as opaque.
type Style struct {
	Fill        *string `json:"fill"`
	Stroke      *string `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

// UnmarshalJSON defaults Opacity to 1 when the field is absent.
func (s *Style) UnmarshalJSON(data []byte) error {
	type plain Style
	p := plain{Opacity: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Style(p)
	return nil
}

// Color returns a pointer to hex for use in Style.
func Color(hex string) *string { return &hex }

// Shape is one renderable primitive. Props must be the variant matching Type.
type Shape struct {
	ID        string
	Type      Type
	Transform Transform
	Style     Style
	Props     Props
}

type shapeJSON struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Transform Transform       `json:"transform"`
	Style     Style           `json:"style"`
	Props     json.RawMessage `json:"props"`
}

// MarshalJSON writes the shape with its props variant inline. Nil props
// are written as the zero variant of the shape's type, which is also what
// decoding them yields.
func (s Shape) MarshalJSON() ([]byte, error) {
	props := []byte("{}")
	if p := s.normalProps(); p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s props: %w", s.ID, err)
		}
		props = b
	}
	return json.Marshal(shapeJSON{
		ID:        s.ID,
		Type:      s.Type,
		Transform: s.Transform,
		Style:     s.Style,
		Props:     props,
	})
}

// UnmarshalJSON decodes props into the variant selected by type. Unknown
// prop keys are ignored; unknown shape types are an error.
func (s *Shape) UnmarshalJSON(data []byte) error {
	raw := shapeJSON{Style: Style{Opacity: 1}}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return ErrMissingID
	}
	if !raw.Type.Valid() {
		return fmt.Errorf("shape %s: %w: %q", raw.ID, ErrUnknownShapeType, raw.Type)
	}
	props, err := decodeProps(raw.Type, raw.Props)
	if err != nil {
		return fmt.Errorf("shape %s props: %w", raw.ID, err)
	}
	*s = Shape{
		ID:        raw.ID,
		Type:      raw.Type,
		Transform: raw.Transform,
		Style:     raw.Style,
		Props:     props,
	}
	return nil
}

// Document is a complete scene.
type Document struct {
	Schema string  `json:"schema"`
	Scene  []Shape `json:"scene"`
}

// normalProps returns the props, or the type's zero variant when unset.
func (s Shape) normalProps() Props {
	if s.Props != nil {
		return s.Props
	}
	p, err := decodeProps(s.Type, nil)
	if err != nil {
		return nil
	}
	return p
}

// NewDocument wraps shapes in a v1 document. Shapes with nil props get the
// zero variant of their type, so the document survives a JSON round trip.
func NewDocument(shapes []Shape) Document {
	out := make([]Shape, len(shapes))
	for i, sh := range shapes {
		sh.Props = sh.normalProps()
		out[i] = sh
	}
	return Document{Schema: SchemaV1, Scene: out}
}

// Has reports whether the document holds a shape with id.
func (d Document) Has(id string) bool {
	return indexOf(d.Scene, id) >= 0
}

// Op is a mutation kind.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// Mutation is one incremental change against a cached scene.
type Mutation struct {
	Op    Op     `json:"op"`
	ID    string `json:"id"`
	Shape *Shape `json:"shape,omitempty"`
}

// UnmarshalJSON rejects unknown ops.
func (m *Mutation) UnmarshalJSON(data []byte) error {
	type plain Mutation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	switch p.Op {
	case OpAdd, OpUpdate, OpRemove:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, p.Op)
	}
	*m = Mutation(p)
	return nil
}

// Update wraps shape as an update mutation keyed by its own id.
func Update(shape Shape) Mutation {
	return Mutation{Op: OpUpdate, ID: shape.ID, Shape: &shape}
}
