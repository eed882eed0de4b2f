package export

import "errors"

// Encoder errors surfaced through Result.Err and the status error slot.
var (
	ErrCancelled     = errors.New("export: cancelled")
	ErrEncoderFailed = errors.New("export: encoder failed")
	ErrNoSource      = errors.New("export: source handle unavailable")
)
