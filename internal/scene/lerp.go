package scene

// Lerp interpolates linearly from a to b.
func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

// LerpProps interpolates two props variants field by field. The result has
// the target's variant; a field missing on one side takes the other side's
// value.
func LerpProps(from, to Props, t float64) Props {
	if to == nil {
		return from
	}
	if from == nil {
		from = to
	}
	base := make(map[string]float64, len(from.Fields()))
	for _, f := range from.Fields() {
		base[f.Name] = f.Value
	}
	return to.mapFields(func(name string, v float64) float64 {
		a, ok := base[name]
		if !ok {
			a = v
		}
		return Lerp(a, v, t)
	})
}
