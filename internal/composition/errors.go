package composition

import "errors"

// Validation errors, raised before any encoder exists.
var (
	ErrMissingVideoTrack = errors.New("composition: source has no video track")
	ErrMissingAsset      = errors.New("composition: source asset cannot be opened")
)
