package model

import "errors"

// ErrValidation means malformed input, rejected before any store access.
var ErrValidation = errors.New("validation failed")
