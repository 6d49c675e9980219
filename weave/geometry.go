package weave

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Layout holds the canvas constants every thread position is derived from.
type Layout struct {
	Width       float64 // canvas width in px
	Height      float64 // canvas height in px
	Inset       float64 // fraction of the canvas left blank on each side
	Content     float64 // fraction of the canvas the grid spans
	Tolerance   float64 // distance between the content edge and the first crossing
	ThreadWidth float64 // stroke width of every thread
}

// DefaultLayout mirrors the proportions of the browser canvas.
func DefaultLayout() Layout {
	return Layout{
		Width:       800,
		Height:      800,
		Inset:       0.1,
		Content:     0.8,
		Tolerance:   30,
		ThreadWidth: 40,
	}
}

// ThreadWidthFor returns the stroke width that keeps crossings legible at size n.
func ThreadWidthFor(n int) float64 {
	switch {
	case n > 12:
		return 25
	case n > 10:
		return 35
	default:
		return 40
	}
}

// Thread is one row or column of the grid. Start is where the pen lands
// before the first anchor; Anchors always has 2N+1 entries.
type Thread struct {
	Start   r2.Vec
	Anchors []r2.Vec
}

// End returns the lead-out point of the thread.
func (t Thread) End() r2.Vec {
	return t.Anchors[len(t.Anchors)-1]
}

// Geometry is the read-only point layout for one grid size.
type Geometry struct {
	N       int
	Layout  Layout
	Gap     float64 // distance between neighbouring crossings
	Rows    []Thread
	Columns []Thread
}

// BuildGeometry lays out the N row threads and N column threads of an N×N grid.
func BuildGeometry(n int, l Layout) (*Geometry, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrGridTooSmall, n)
	}

	w := l.ThreadWidth
	gap := (l.Content*l.Width - l.Tolerance*2 - w/float64(n-1)) / float64(n-1)
	left := l.Inset * l.Width
	top := l.Inset * l.Height

	g := &Geometry{
		N:       n,
		Layout:  l,
		Gap:     gap,
		Rows:    make([]Thread, n),
		Columns: make([]Thread, n),
	}

	// Row threads run left to right, columns top to bottom. Both share the
	// same anchor rhythm: lead-in, crossing edges, lead-out.
	startX := left + l.Tolerance
	startY := top + l.Tolerance
	for idx := 0; idx < n; idx++ {
		y := startY + gap*float64(idx)
		g.Rows[idx] = Thread{
			Start:   r2.Vec{X: left, Y: y},
			Anchors: anchorRun(startX, gap, w, n, (1-l.Inset)*l.Width, func(v float64) r2.Vec { return r2.Vec{X: v, Y: y} }),
		}

		x := left + l.Tolerance + gap*float64(idx)
		g.Columns[idx] = Thread{
			Start:   r2.Vec{X: x, Y: top},
			Anchors: anchorRun(startY, gap, w, n, (1-l.Inset)*l.Height, func(v float64) r2.Vec { return r2.Vec{X: x, Y: v} }),
		}
	}
	return g, nil
}

// anchorRun produces the 2n+1 positions along one axis: both edges of every
// crossing followed by the lead-out.
func anchorRun(start, gap, width float64, n int, end float64, at func(float64) r2.Vec) []r2.Vec {
	pts := make([]r2.Vec, 0, 2*n+1)
	for k := 0; k < n; k++ {
		c := start + gap*float64(k)
		pts = append(pts, at(c-width/2), at(c+width/2))
	}
	return append(pts, at(end))
}

// CellPoint returns the crossing midpoint a renderer colours for a linear
// cell index. Row thread t holds cells N²−tN−1 down to N²−tN−N, left to right.
func (g *Geometry) CellPoint(index int) (r2.Vec, bool) {
	n := g.N
	if index < 0 || index >= n*n {
		return r2.Vec{}, false
	}
	t := n - 1 - index/n
	pos := n - 1 - index%n
	row := g.Rows[t]
	return r2.Scale(0.5, r2.Add(row.Anchors[2*pos], row.Anchors[2*pos+1])), true
}
