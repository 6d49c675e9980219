package weave

import "errors"

var (
	// ErrGridTooSmall is returned when a grid narrower than two threads is requested.
	ErrGridTooSmall = errors.New("weave: grid size must be at least 2")

	// ErrGridTooLarge is returned when a grid exceeds the session's size limit.
	ErrGridTooLarge = errors.New("weave: grid size above limit")

	// ErrEmptyLog is returned when a command log holds no usable records.
	ErrEmptyLog = errors.New("weave: no valid commands in log")

	// ErrUnknownAction marks a record whose action is neither UP nor DOWN.
	ErrUnknownAction = errors.New("weave: unknown action")

	ErrTransport = errors.New("weave: malformed transport payload")
)
