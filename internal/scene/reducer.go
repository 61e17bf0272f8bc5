package scene

import "slices"

// Sanitize enforces the scene limits: at most MaxShapes entries, unique ids
// (a later shape replaces an earlier one in place) and a surviving protected
// shape. If truncation dropped the protected shape, its last occurrence
// takes the final slot.
func Sanitize(shapes []Shape) []Shape {
	if len(shapes) == 0 {
		return []Shape{}
	}
	limit := min(len(shapes), MaxShapes)
	out := make([]Shape, 0, limit)
	index := make(map[string]int, limit)
	for _, s := range shapes[:limit] {
		if i, ok := index[s.ID]; ok {
			out[i] = s
			continue
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	if _, ok := index[ProtectedShapeID]; ok {
		return out
	}
	rest := shapes[limit:]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i].ID != ProtectedShapeID {
			continue
		}
		if len(out) < MaxShapes {
			return append(out, rest[i])
		}
		out[len(out)-1] = rest[i]
		return out
	}
	return out
}

// ApplyMutations folds mutations over current in order and sanitizes the
// result. Invalid mutations are skipped without error. current is not
// modified.
func ApplyMutations(current []Shape, mutations []Mutation) []Shape {
	if len(mutations) == 0 {
		return current
	}
	next := slices.Clone(current)
	for _, m := range mutations {
		switch m.Op {
		case OpAdd:
			if m.Shape == nil || len(next) >= MaxShapes {
				continue
			}
			if i := indexOf(next, m.Shape.ID); i >= 0 {
				next[i] = *m.Shape
			} else {
				next = append(next, *m.Shape)
			}
		case OpUpdate:
			if m.Shape == nil || m.Shape.ID != m.ID {
				continue
			}
			if i := indexOf(next, m.ID); i >= 0 {
				next[i] = *m.Shape
			}
		case OpRemove:
			if m.ID == ProtectedShapeID {
				continue
			}
			next = slices.DeleteFunc(next, func(s Shape) bool { return s.ID == m.ID })
		}
	}
	return Sanitize(next)
}

func indexOf(shapes []Shape, id string) int {
	return slices.IndexFunc(shapes, func(s Shape) bool { return s.ID == id })
}
