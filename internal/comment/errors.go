package comment

import "errors"

// Domain errors for the comment package.
var (
	// ErrCommentNotFound is returned when a comment id does not exist for a device.
	ErrCommentNotFound = errors.New("comment: not found")

	// ErrInvalidComment is returned when a request misses its device, id or text.
	ErrInvalidComment = errors.New("comment: invalid")
)
