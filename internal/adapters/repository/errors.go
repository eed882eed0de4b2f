package repository

import "errors"

// Sentinel kinds for project store errors.
var (
	ErrNotFound = errors.New("project store not found")
	ErrCorrupt  = errors.New("project store corrupt")
	ErrClosed   = errors.New("project store closed")
)
