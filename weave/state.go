// Package weave models a plain-weave pattern built one over/under decision
// at a time: the boustrophedon cursor, its undo/redo history, replay, and
// the traversal that turns the cell array into draw instructions.
package weave

import (
	"fmt"
	"strings"
)

// Cell is the decision recorded at one grid intersection.
type Cell int8

const (
	Under Cell = -1
	Gap   Cell = 0
	Over  Cell = 1
)

func (c Cell) String() string {
	switch c {
	case Over:
		return "over"
	case Under:
		return "under"
	default:
		return "gap"
	}
}

// Direction is the sweep direction of the cursor along the current row.
type Direction int8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Origin selects how a fresh state is seeded.
type Origin int8

const (
	// Seeded starts with cell 0 already Over and the cursor on it.
	Seeded Origin = iota
	// Blank starts with every cell Gap and the cursor one before cell 0,
	// so N² decisions fill the grid exactly.
	Blank
)

// State is the N×N cell array plus the cursor that decides where the next
// decision lands. The zero value is not usable; call NewState.
type State struct {
	n      int
	origin Origin
	cells  []Cell
	cursor int
	dir    Direction
}

// NewState returns a reset state for an n×n grid.
func NewState(n int, origin Origin) (*State, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrGridTooSmall, n)
	}
	s := &State{n: n, origin: origin, cells: make([]Cell, n*n)}
	s.Reset()
	return s, nil
}

// Reset clears every decision and returns the cursor to its origin.
func (s *State) Reset() {
	clear(s.cells)
	s.dir = Forward
	s.cursor = s.originCursor()
	if s.origin == Seeded {
		s.cells[0] = Over
	}
}

func (s *State) originCursor() int {
	if s.origin == Blank {
		return -1
	}
	return 0
}

func (s *State) N() int               { return s.n }
func (s *State) Origin() Origin       { return s.origin }
func (s *State) Cursor() int          { return s.cursor }
func (s *State) Direction() Direction { return s.dir }

// Cell returns the decision at index, or Gap outside the grid.
func (s *State) Cell(index int) Cell {
	if index < 0 || index >= len(s.cells) {
		return Gap
	}
	return s.cells[index]
}

// Cells returns a copy of the cell array in row-major order.
func (s *State) Cells() []Cell {
	out := make([]Cell, len(s.cells))
	copy(out, s.cells)
	return out
}

// next is the index the following decision would be written to.
func (s *State) next() int {
	if s.dir == Forward {
		return s.cursor + 1
	}
	return s.cursor - 1
}

// Complete reports whether every reachable cell has been decided.
func (s *State) Complete() bool {
	if s.cursor > s.n*s.n {
		return true
	}
	nx := s.next()
	return nx < 0 || nx >= len(s.cells)
}

// Step writes decision at the next cursor slot and advances the cursor,
// flipping direction at row boundaries. It reports false, leaving the state
// untouched, once the grid is complete.
func (s *State) Step(decision Cell) bool {
	if s.Complete() {
		return false
	}
	n := s.n
	nx := s.next()
	s.cells[nx] = decision

	switch {
	case s.dir == Forward && nx != 0 && (nx+1)%n == 0:
		// The next row is walked right to left; park the cursor one past
		// its last cell.
		s.dir = Backward
		s.cursor = nx + n + 1
	case s.dir == Backward && nx != 0 && nx%n == 0:
		s.dir = Forward
		s.cursor = nx + n - 1
	default:
		s.cursor = nx
	}
	return true
}

// Unstep undoes the most recent Step, clearing the cell it wrote. It is a
// no-op at the origin cursor.
func (s *State) Unstep() bool {
	c := s.cursor
	if c == s.originCursor() {
		return false
	}
	n := s.n
	written, cursor, dir := c, c, s.dir
	switch {
	case s.dir == Backward && c%n == 0:
		// Arrived here by the forward row-end jump.
		written, cursor, dir = c-n-1, c-n-2, Forward
	case s.dir == Forward && c%n == n-1:
		// Arrived here by the backward row-end jump.
		written, cursor, dir = c-n+1, c-n+2, Backward
	case s.dir == Forward:
		cursor = c - 1
	default:
		cursor = c + 1
	}
	if written < 0 || written >= len(s.cells) {
		return false
	}
	s.cells[written] = Gap
	s.cursor, s.dir = cursor, dir
	return true
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	cp := *s
	cp.cells = s.Cells()
	return &cp
}

// Equal reports whether two states hold the same cells, cursor and direction.
func (s *State) Equal(o *State) bool {
	if s.n != o.n || s.cursor != o.cursor || s.dir != o.dir {
		return false
	}
	for i := range s.cells {
		if s.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// String prints the grid top row first, matching the rendered orientation.
func (s *State) String() string {
	var b strings.Builder
	for r := s.n - 1; r >= 0; r-- {
		for c := s.n - 1; c >= 0; c-- {
			switch s.cells[r*s.n+c] {
			case Over:
				b.WriteByte('+')
			case Under:
				b.WriteByte('-')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "cursor=%d dir=%s", s.cursor, s.dir)
	return b.String()
}
