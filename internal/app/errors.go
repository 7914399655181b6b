package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrBackpressure       = errors.New("ingest queue full")
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrInvalidWallet      = errors.New("invalid wallet address")
	ErrDisbursementFailed = errors.New("disbursement failed")
	ErrNoDisburser        = errors.New("no disburser configured")
)
