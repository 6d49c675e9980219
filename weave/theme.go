package weave

// DefaultThreadColor is the grey both thread sets start with.
const DefaultThreadColor = "#8c8c8c"

// Stop is one colour stop of a gradient running across the stroke.
type Stop struct {
	Offset float64
	Color  string
}

// Paint describes how a stroke is coloured. Stops are optional; without
// them the stroke is the flat Color.
type Paint struct {
	Color string
	Stops []Stop
}

// Side identifies which selvage a connector curve bends around.
type Side int8

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

// Theme chooses the paint for every stroke the renderer emits.
type Theme interface {
	Paint(layer Layer, side Side) Paint
}

// Palette is the two-colour theme of the browser tool: a highlight band
// near the lower edge of each thread gives it a rounded look.
type Palette struct {
	Warp string
	Weft string
}

// DefaultPalette returns grey warp and weft.
func DefaultPalette() Palette {
	return Palette{Warp: DefaultThreadColor, Weft: DefaultThreadColor}
}

func (p Palette) Paint(layer Layer, side Side) Paint {
	switch layer {
	case LayerWarp:
		return threadPaint(p.Warp)
	case LayerSelvage:
		if side == SideRight {
			return Paint{Color: p.Weft, Stops: []Stop{
				{0, p.Weft}, {0.2, "#ffffff"}, {0.25, "#ffffff"}, {1, p.Weft},
			}}
		}
		return Paint{Color: p.Weft, Stops: []Stop{
			{0, p.Weft}, {0.75, "#ffffff"}, {0.8, "#ffffff"}, {1, p.Weft + "ab"},
		}}
	default:
		return threadPaint(p.Weft)
	}
}

func threadPaint(base string) Paint {
	return Paint{Color: base, Stops: []Stop{
		{0, base}, {0.70, "#ffffff"}, {0.75, "#ffffff"}, {1, base},
	}}
}
