package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalid = errors.New("invalid model")
)
