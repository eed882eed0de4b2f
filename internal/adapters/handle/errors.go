package handle

import "errors"

// Resource errors.
var (
	ErrEmptyHandle  = errors.New("handle: empty")
	ErrUnresolvable = errors.New("handle: unresolvable")
)
