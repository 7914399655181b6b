package repository

import "errors"

// Sentinel kinds for score store and leaderboard errors.
var (
	ErrNotFound     = errors.New("user not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
