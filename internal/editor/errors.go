package editor

import "errors"

var (
	// ErrLastPage is returned when deleting the only page left in the book.
	ErrLastPage     = errors.New("at least one page must remain")
	ErrNoActivePage = errors.New("no active page")
	ErrNotFound     = errors.New("not found")

	errNoSurface = errors.New("no surface attached")
)
