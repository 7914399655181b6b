package simulate

import "errors"

// Sentinel errors for simulation runs.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrUnexpected    = errors.New("unexpected response")
	ErrVerification  = errors.New("verification failed")
	ErrNotSettled    = errors.New("service did not settle")
)
