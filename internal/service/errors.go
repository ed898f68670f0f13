package service

import "errors"

var (
	// ErrEmptyQuery is returned when a ranking or expansion query is blank.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrImageNotFound is returned when an image id does not exist.
	ErrImageNotFound = errors.New("image not found")

	// ErrNoConcepts is returned when an operation needs the concept vocabulary
	// but none is loaded.
	ErrNoConcepts = errors.New("no concepts loaded")
)
