package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"aiface/internal/scene"
)

// Num prints v rounded to two decimals without trailing zeros.
func Num(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Geometry lists a props variant as name=value pairs.
func Geometry(p scene.Props) string {
	if p == nil {
		return "-"
	}
	fields := p.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + "=" + Num(f.Value)
	}
	return strings.Join(parts, " ")
}

// Paint summarizes a style. Missing colors print as "none".
func Paint(s scene.Style) string {
	color := func(c *string) string {
		if c == nil {
			return "none"
		}
		return *c
	}
	return fmt.Sprintf("fill=%s stroke=%s w=%s a=%s", color(s.Fill), color(s.Stroke), Num(s.StrokeWidth), Num(s.Opacity))
}

// Position prints a transform as "(x, y)" with "@deg" when rotated.
func Position(tr scene.Transform) string {
	pos := "(" + Num(tr.X) + ", " + Num(tr.Y) + ")"
	if tr.Rotation != 0 {
		pos += " @" + Num(tr.Rotation)
	}
	return pos
}

// Shapes renders one row per shape in draw order.
func Shapes(m Mode, shapes []scene.Shape) string {
	t := NewTable(m)
	t.Header("#", "ID", "Type", "Position", "Paint", "Geometry")
	for i, s := range shapes {
		t.Row(i, s.ID, string(s.Type), Position(s.Transform), Paint(s.Style), Geometry(s.Props))
	}
	t.Columns(Column{Number: 1, Align: AlignRight})
	t.Footer("", fmt.Sprintf("%d shapes", len(shapes)))
	return t.String()
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
