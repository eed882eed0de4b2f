package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrNoSource        = errors.New("project has no source video")
	ErrExportRunning   = errors.New("export already running")
)
