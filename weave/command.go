package weave

import "time"

// Kind is one of the two decisions a user can make.
type Kind int8

const (
	Raise Kind = iota // thread over
	Lower             // thread under
)

// Wire names used by serialized logs.
const (
	ActionUp   = "UP"
	ActionDown = "DOWN"
)

func (k Kind) String() string {
	if k == Lower {
		return ActionDown
	}
	return ActionUp
}

// Cell returns the decision k writes.
func (k Kind) Cell() Cell {
	if k == Lower {
		return Under
	}
	return Over
}

// ParseKind maps a wire action name to its Kind.
func ParseKind(action string) (Kind, bool) {
	switch action {
	case ActionUp:
		return Raise, true
	case ActionDown:
		return Lower, true
	}
	return 0, false
}

// Command is one recorded decision. Commands are values and never mutated
// after creation.
type Command struct {
	Kind      Kind
	Timestamp time.Time
}

// Apply executes k against s.
func Apply(s *State, k Kind) bool {
	return s.Step(k.Cell())
}

// History is the ordered log of applied commands plus the commands undone
// since the last new decision.
type History struct {
	done []Command
	redo []Command
}

// Push records a new decision and invalidates the redo log.
func (h *History) Push(c Command) {
	h.done = append(h.done, c)
	h.redo = h.redo[:0]
}

// PopDone removes the most recent command and parks it on the redo log.
func (h *History) PopDone() (Command, bool) {
	if len(h.done) == 0 {
		return Command{}, false
	}
	c := h.done[len(h.done)-1]
	h.done = h.done[:len(h.done)-1]
	h.redo = append(h.redo, c)
	return c, true
}

// PopRedo removes the most recently undone command. The caller re-records
// it with a fresh timestamp via Restore.
func (h *History) PopRedo() (Command, bool) {
	if len(h.redo) == 0 {
		return Command{}, false
	}
	c := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	return c, true
}

// Restore appends c to the done log without touching the redo log.
func (h *History) Restore(c Command) {
	h.done = append(h.done, c)
}

// Replace installs cmds as the done log and clears the redo log.
func (h *History) Replace(cmds []Command) {
	h.done = append(h.done[:0:0], cmds...)
	h.redo = nil
}

// ClearRedo drops the undone commands.
func (h *History) ClearRedo() {
	h.redo = nil
}

func (h *History) Clear() {
	h.done = nil
	h.redo = nil
}

func (h *History) Len() int     { return len(h.done) }
func (h *History) RedoLen() int { return len(h.redo) }

// Commands returns a copy of the done log, oldest first.
func (h *History) Commands() []Command {
	out := make([]Command, len(h.done))
	copy(out, h.done)
	return out
}
