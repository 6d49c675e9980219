package weave

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Session is the single owner of one pattern: geometry, state, history and
// the input gate that replay holds while it drives the state machine.
// A Session is not safe for concurrent use.
type Session struct {
	layout    Layout
	autoWidth bool
	maxN      int
	geom      *Geometry
	state     *State
	hist      History
	inputOK   bool
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLayout overrides the canvas constants.
func WithLayout(l Layout) Option {
	return func(s *Session) { s.layout = l }
}

// WithAutoWidth sizes threads from the grid size on every resize.
func WithAutoWidth(on bool) Option {
	return func(s *Session) { s.autoWidth = on }
}

// WithClock sets the source of command timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMaxSize caps the grid size of NewSession, Resize and Load. Zero
// means no cap.
func WithMaxSize(n int) Option {
	return func(s *Session) { s.maxN = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession builds geometry and a seeded state for an n×n grid.
func NewSession(n int, opts ...Option) (*Session, error) {
	s := &Session{
		layout:  DefaultLayout(),
		inputOK: true,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.rebuild(n, Seeded); err != nil {
		return nil, err
	}
	return s, nil
}

// rebuild replaces geometry and state; on error the session is unchanged.
func (s *Session) rebuild(n int, origin Origin) error {
	if s.maxN > 0 && n > s.maxN {
		return fmt.Errorf("%w: got %d, max %d", ErrGridTooLarge, n, s.maxN)
	}
	l := s.layout
	if s.autoWidth {
		l.ThreadWidth = ThreadWidthFor(n)
	}
	g, err := BuildGeometry(n, l)
	if err != nil {
		return err
	}
	st, err := NewState(n, origin)
	if err != nil {
		return err
	}
	s.geom, s.state = g, st
	return nil
}

func (s *Session) N() int               { return s.state.n }
func (s *Session) Geometry() *Geometry  { return s.geom }
func (s *Session) InputEnabled() bool   { return s.inputOK }
func (s *Session) History() *History    { return &s.hist }
func (s *Session) Snapshot() *State     { return s.state.Clone() }
func (s *Session) Logger() *slog.Logger { return s.logger }

// Raise records a "thread over" decision.
func (s *Session) Raise() bool { return s.Apply(Raise) }

// Lower records a "thread under" decision.
func (s *Session) Lower() bool { return s.Apply(Lower) }

// Apply records and executes a new decision. It is a no-op while input is
// disabled or once the grid is complete.
func (s *Session) Apply(k Kind) bool {
	if !s.inputOK || s.state.Complete() {
		return false
	}
	s.hist.Push(Command{Kind: k, Timestamp: s.now()})
	return Apply(s.state, k)
}

// Undo reverts the most recent decision and makes it available to Redo.
func (s *Session) Undo() bool {
	if !s.inputOK {
		return false
	}
	if _, ok := s.hist.PopDone(); !ok {
		return false
	}
	s.state.Unstep()
	return true
}

// Redo re-applies the most recently undone decision under a fresh timestamp.
func (s *Session) Redo() bool {
	if !s.inputOK {
		return false
	}
	c, ok := s.hist.PopRedo()
	if !ok {
		return false
	}
	Apply(s.state, c.Kind)
	s.hist.Restore(Command{Kind: c.Kind, Timestamp: s.now()})
	return true
}

// Resize starts a fresh pattern on an n×n grid, discarding the history.
// It does nothing while input is disabled.
func (s *Session) Resize(n int) error {
	if !s.inputOK {
		s.logger.Debug("resize ignored while input is disabled", slog.Int("n", n))
		return nil
	}
	if err := s.rebuild(n, Seeded); err != nil {
		return err
	}
	s.hist.Clear()
	return nil
}

// Reset clears the cells and cursor while keeping grid size and history.
func (s *Session) Reset() {
	s.state.Reset()
}

// Load installs a foreign command log without executing it. The grid is
// resized to the size implied by the log length and left blank so that a
// full log fills it exactly. It returns the number of commands installed.
func (s *Session) Load(records []Record) (int, error) {
	if !s.inputOK {
		return 0, nil
	}
	cmds := Deserialize(records, s.logger)
	if len(cmds) == 0 {
		s.logger.Warn("no valid commands to load", slog.Int("records", len(records)))
		return 0, ErrEmptyLog
	}
	n := int(math.Sqrt(float64(len(cmds))))
	if n*n != len(cmds) {
		s.logger.Warn("command count is not a perfect square",
			slog.Int("commands", len(cmds)),
			slog.Int("grid", n))
	}
	if err := s.rebuild(n, Blank); err != nil {
		return 0, fmt.Errorf("load %d commands: %w", len(cmds), err)
	}
	s.hist.Replace(cmds)
	s.logger.Info("loaded command log", slog.Int("commands", len(cmds)), slog.Int("grid", n))
	return len(cmds), nil
}

// ApplyAll executes the whole history from a reset state without pacing.
// It is the reference result replay must reproduce.
func (s *Session) ApplyAll() *State {
	s.state.Reset()
	for _, c := range s.hist.done {
		Apply(s.state, c.Kind)
	}
	return s.state.Clone()
}

// Render produces the draw instructions for the current state.
func (s *Session) Render(t Theme) []Instruction {
	return Render(s.state, s.geom, t)
}

func (s *Session) setInput(on bool) { s.inputOK = on }
