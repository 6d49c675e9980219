package weave

import (
	"context"
	"log/slog"
	"time"
)

// Replay steps a command log through a session one command at a time. While
// a Replay is open the session refuses user input. Callers that pace the
// animation themselves (a UI tick, a frame exporter) drive Next directly;
// Replayer wraps it with sleeps.
type Replay struct {
	sess *Session
	cmds []Command
	pos  int
	open bool
}

// NewReplay resets the session's state, keeping its grid size, and takes
// the input gate. Undone commands are discarded: after a replay the pattern
// no longer matches the point they were undone from.
func NewReplay(sess *Session, cmds []Command) *Replay {
	sess.state.Reset()
	sess.hist.ClearRedo()
	sess.setInput(false)
	return &Replay{sess: sess, cmds: append([]Command(nil), cmds...), open: true}
}

// Next applies the next command. It returns false once the log is exhausted.
func (r *Replay) Next() bool {
	if !r.open || r.pos >= len(r.cmds) {
		return false
	}
	Apply(r.sess.state, r.cmds[r.pos].Kind)
	r.pos++
	return true
}

// Pos is the number of commands applied so far.
func (r *Replay) Pos() int { return r.pos }

func (r *Replay) Len() int { return len(r.cmds) }

func (r *Replay) Done() bool { return r.pos >= len(r.cmds) }

// Abort empties the pattern and releases the input gate.
func (r *Replay) Abort() {
	r.sess.state.Reset()
	r.Close()
}

// Close releases the input gate. It is safe to call more than once.
func (r *Replay) Close() {
	if r.open {
		r.open = false
		r.sess.setInput(true)
	}
}

// Replayer paces a Replay with real delays.
type Replayer struct {
	Pace   time.Duration // delay after each command
	Settle time.Duration // delay between the last command and the reset

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnFrame observes the state after every applied command.
	OnFrame func(step int, s *State)

	Logger *slog.Logger
}

// DefaultReplayer uses the browser tool's timings.
func DefaultReplayer() *Replayer {
	return &Replayer{Pace: 250 * time.Millisecond, Settle: time.Second}
}

// Run replays cmds on sess and returns the fully applied state. After the
// settle delay the session is reset to an empty pattern. If ctx is cancelled
// the pattern is emptied, input is re-enabled and ctx.Err() is returned.
func (rp *Replayer) Run(ctx context.Context, sess *Session, cmds []Command) (*State, error) {
	sleep := rp.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := rp.Logger
	if logger == nil {
		logger = sess.logger
	}

	r := NewReplay(sess, cmds)
	if err := ctx.Err(); err != nil {
		r.Abort()
		return nil, err
	}
	logger.Debug("replay started", slog.Int("commands", r.Len()), slog.Int("grid", sess.N()))
	for r.Next() {
		if rp.OnFrame != nil {
			rp.OnFrame(r.Pos(), sess.state)
		}
		if err := sleep(ctx, rp.Pace); err != nil {
			logger.Info("replay aborted", slog.Int("applied", r.Pos()), slog.Any("error", err))
			r.Abort()
			return nil, err
		}
	}
	final := sess.state.Clone()
	r.Close()

	if err := sleep(ctx, rp.Settle); err != nil {
		sess.state.Reset()
		return final, err
	}
	sess.state.Reset()
	logger.Debug("replay finished", slog.Int("commands", r.Len()))
	return final, nil
}

// Frames replays cmds without pacing and returns a snapshot after every
// command. The session is left holding the fully applied pattern.
func Frames(sess *Session, cmds []Command) []*State {
	r := NewReplay(sess, cmds)
	defer r.Close()
	frames := make([]*State, 0, len(cmds)+1)
	frames = append(frames, sess.state.Clone())
	for r.Next() {
		frames = append(frames, sess.state.Clone())
	}
	return frames
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
