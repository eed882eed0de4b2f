package overlay

import "errors"

// ErrEmptyCanvas is returned when the target canvas has no area.
var ErrEmptyCanvas = errors.New("overlay: empty canvas")
