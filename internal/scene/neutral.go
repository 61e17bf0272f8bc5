package scene

const (
	colorBackground = "#FFFFFF"
	colorFace       = "#FFD8B0"
	colorFeature    = "#000000"
)

// NeutralScene is the scene a display shows before any authority has
// spoken and after a reset.
func NeutralScene() Document {
	feature := Style{Stroke: Color(colorFeature), StrokeWidth: 4, Opacity: 1}
	eye := Style{Fill: Color(colorFeature), Opacity: 1}
	return NewDocument([]Shape{
		{
			ID:    IDBackground,
			Type:  TypeRect,
			Style: Style{Fill: Color(colorBackground), Opacity: 1},
			Props: RectProps{Width: 200, Height: 200},
		},
		{
			ID:    ProtectedShapeID,
			Type:  TypeCircle,
			Style: Style{Fill: Color(colorFace), Opacity: 1},
			Props: CircleProps{Radius: 90},
		},
		{ID: IDLeftBrow, Type: TypeLine, Style: feature, Props: LineProps{X1: -40, Y1: -35, X2: -15, Y2: -35}},
		{ID: IDRightBrow, Type: TypeLine, Style: feature, Props: LineProps{X1: 15, Y1: -35, X2: 40, Y2: -35}},
		{ID: IDLeftEye, Type: TypeCircle, Transform: Transform{X: -30, Y: -20}, Style: eye, Props: CircleProps{Radius: 8}},
		{ID: IDRightEye, Type: TypeCircle, Transform: Transform{X: 30, Y: -20}, Style: eye, Props: CircleProps{Radius: 8}},
		{ID: IDMouth, Type: TypeLine, Style: feature, Props: LineProps{X1: -25, Y1: 35, X2: 25, Y2: 35}},
	})
}
