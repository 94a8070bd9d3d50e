package selection

import "errors"

// Domain errors for the selection package.
var (
	// ErrSnapshotNotFound is returned when no persisted snapshot exists under a name.
	ErrSnapshotNotFound = errors.New("selection: snapshot not found")

	// ErrFilterNotFound is returned when no saved filter exists under a name.
	ErrFilterNotFound = errors.New("selection: filter not found")

	// ErrInvalidName is returned when a snapshot or filter name is empty.
	ErrInvalidName = errors.New("selection: invalid name")

	// ErrInvalidTag is returned when a persisted tag cannot be parsed.
	ErrInvalidTag = errors.New("selection: invalid tag")
)

// Errors returned when building action intents.
var (
	ErrEmptySelection = errors.New("selection: nothing selected")
	ErrInvalidAction  = errors.New("selection: invalid action name")
)
