package repositories

import "errors"

// Storage-level failures. Backends wrap these with fmt.Errorf("%w: ...") so
// callers can test with errors.Is and still see which row was involved.
var (
	ErrNotFound    = errors.New("record not found")
	ErrConflict    = errors.New("record already exists")
	ErrReferential = errors.New("referenced record does not exist")
)
