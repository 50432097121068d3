package service

import (
	"errors"
	"fmt"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrInvalidName      = errors.New("invalid player name")
	ErrInvalidMatch     = errors.New("invalid match")
	ErrSamePlayer       = errors.New("a player cannot play against themselves")
	ErrWinnerNotInMatch = errors.New("winner did not play in the match")
	ErrDuplicate        = errors.New("duplicate match submission")
)

// DuplicateError reports a reused idempotency key. MatchID is the match the
// key produced, or empty while that submission is still being processed.
type DuplicateError struct {
	Key     string
	MatchID string
}

func (e *DuplicateError) Error() string {
	if e.MatchID == "" {
		return fmt.Sprintf("idempotency key %q is being processed", e.Key)
	}
	return fmt.Sprintf("idempotency key %q already produced match %s", e.Key, e.MatchID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
