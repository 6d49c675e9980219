package weave

import "gonum.org/v1/gonum/spatial/r2"

// Op is the kind of a draw instruction.
type Op int8

const (
	OpMove  Op = iota // lift the pen and place it at To
	OpLine            // straight stroke From → To
	OpCurve           // cubic stroke From → To through C1, C2
)

func (o Op) String() string {
	switch o {
	case OpLine:
		return "line"
	case OpCurve:
		return "curve"
	default:
		return "move"
	}
}

// Layer tells a backend which thread set a stroke belongs to.
type Layer int8

const (
	LayerWarp Layer = iota
	LayerWeft
	LayerSelvage
)

func (l Layer) String() string {
	switch l {
	case LayerWeft:
		return "weft"
	case LayerSelvage:
		return "selvage"
	default:
		return "warp"
	}
}

// Instruction is one step of the drawing. Lines and curves carry their own
// start point so backends never track pen state.
type Instruction struct {
	Op     Op
	Layer  Layer
	Side   Side
	From   r2.Vec
	To     r2.Vec
	C1, C2 r2.Vec
	Width  float64
	Paint  Paint
}

type pen struct {
	out   []Instruction
	at    r2.Vec
	layer Layer
	width float64
	paint Paint
}

func (p *pen) move(v r2.Vec) {
	p.out = append(p.out, Instruction{Op: OpMove, Layer: p.layer, To: v})
	p.at = v
}

func (p *pen) line(v r2.Vec) {
	p.out = append(p.out, Instruction{
		Op: OpLine, Layer: p.layer, From: p.at, To: v, Width: p.width, Paint: p.paint,
	})
	p.at = v
}

// Render walks the geometry against the cell array and returns the
// instructions for warp threads, then weft threads, then selvage curves.
// The output depends only on its inputs. A nil theme paints with
// DefaultPalette.
func Render(s *State, g *Geometry, t Theme) []Instruction {
	if s == nil || g == nil || s.n != g.N {
		return nil
	}
	if t == nil {
		t = DefaultPalette()
	}
	n := g.N
	p := &pen{
		out:   make([]Instruction, 0, 4*n*(2*n+2)),
		width: g.Layout.ThreadWidth,
	}

	// The warp is always present.
	p.layer, p.paint = LayerWarp, t.Paint(LayerWarp, SideNone)
	for _, col := range g.Columns {
		p.move(col.Start)
		for _, pt := range col.Anchors {
			p.line(pt)
		}
	}

	p.layer, p.paint = LayerWeft, t.Paint(LayerWeft, SideNone)
	for ti, row := range g.Rows {
		renderWeft(p, s, row, ti, n)
	}

	renderSelvages(p, s, g, t)
	return p.out
}

// renderWeft draws row thread ti. Its cells are stored right to left:
// anchor i belongs to cell N²−ti·N−1−i/2.
func renderWeft(p *pen, s *State, row Thread, ti, n int) {
	last := 2 * n
	// Rows walked against the column sweep draw one anchor ahead so the
	// thread stays visible in the gap between crossings.
	reversingRow := (n-ti)%2 == 0

	p.move(row.Start)
	for i := 0; i <= last; i++ {
		pt := row.Anchors[i]
		idx := n*n - ti*n - 1 - i/2

		if i == last {
			// The lead-out needs this row's first stored cell and, when the
			// row has a predecessor, that row's last cell.
			if s.Cell(idx+1) == Gap || (idx >= 0 && s.Cell(idx) == Gap) {
				p.move(pt)
				continue
			}
			p.line(pt)
			continue
		}

		if s.Cell(idx) == Gap {
			p.move(pt)
			continue
		}

		// Continuation from the row woven before this one.
		if i == 0 && s.Cell(idx-n) == Over {
			p.line(pt)
			continue
		}

		reversing := reversingRow && i > 0
		if i%2 == 1 && s.Cell(idx) == Under {
			// Hidden behind the warp at this crossing.
			p.move(pt)
			if reversing {
				p.line(row.Anchors[i+1])
				i++
			}
			continue
		}

		p.line(pt)
		if reversing {
			p.line(row.Anchors[i+1])
			i++
		}
	}
}

func connected(s *State, idx int) bool {
	c := s.Cell(idx)
	return c == Over || c == Under
}

// renderSelvages adds the arcs where a weft pass turns into the next row.
// Rows walked backward turn on the left edge, the others on the right.
func renderSelvages(p *pen, s *State, g *Geometry, t Theme) {
	n := g.N
	offset := g.Gap/2 + g.Layout.ThreadWidth/2

	for ti := 0; ti < n-1; ti++ {
		var (
			idx        int
			side       Side
			start, end r2.Vec
			bend       float64
		)
		if (n-ti)%2 == 0 {
			idx = n*n - n*ti - 1
			side, bend = SideLeft, -offset
			start, end = g.Rows[ti].Start, g.Rows[ti+1].Start
		} else {
			idx = n*n - n*ti - n
			side, bend = SideRight, offset
			start, end = g.Rows[ti].End(), g.Rows[ti+1].End()
		}
		if !connected(s, idx) || !connected(s, idx-n) {
			continue
		}
		p.out = append(p.out, Instruction{
			Op:    OpCurve,
			Layer: LayerSelvage,
			Side:  side,
			From:  start,
			To:    end,
			C1:    r2.Vec{X: start.X + bend, Y: start.Y},
			C2:    r2.Vec{X: end.X + bend, Y: end.Y},
			Width: g.Layout.ThreadWidth,
			Paint: t.Paint(LayerSelvage, side),
		})
	}
}
