package domain

import "errors"

var (
	ErrGenesisRequired    = errors.New("genesis path is required")
	ErrBootNodeRequired   = errors.New("boot node address is required")
	ErrInvalidGenesis     = errors.New("invalid genesis document")
	ErrInvalidBootNode    = errors.New("invalid boot node address")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionUnavailable = errors.New("session unavailable")
	ErrStreamTerminated   = errors.New("response stream terminated")
	ErrResubscribeFailed  = errors.New("resubscribe failed")
)
