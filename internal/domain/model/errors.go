package model

import "errors"

// Sentinel errors for event validation. All validation failures wrap ErrInvalidEvent.
var (
	ErrInvalidEvent    = errors.New("invalid event")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrUnknownAction   = errors.New("unknown action")
	ErrMissingField    = errors.New("missing field")
)
