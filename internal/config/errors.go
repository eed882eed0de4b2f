package config

import "errors"

// ErrInvalidConfig marks a configuration that loaded but failed Validate.
var ErrInvalidConfig = errors.New("config: invalid value")

// ErrLoadConfig marks a file, env or unmarshal failure while loading.
var ErrLoadConfig = errors.New("config: cannot load")
