package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrPlayerNotInMatch is returned when a match has no participant for the requested PUUID.
	ErrPlayerNotInMatch = errors.New("player not found in match")
	// ErrEmptyDataset is returned when a season has no feature records to aggregate.
	ErrEmptyDataset = errors.New("no match features to aggregate")
)

// PlayerNotInMatchError carries the match and player that failed to resolve.
// It matches ErrPlayerNotInMatch under errors.Is.
type PlayerNotInMatchError struct {
	MatchID string
	PUUID   string
}

func (e *PlayerNotInMatchError) Error() string {
	if e.MatchID == "" {
		return fmt.Sprintf("player %s not found: no match document", e.PUUID)
	}
	return fmt.Sprintf("player %s not found in match %s", e.PUUID, e.MatchID)
}

func (e *PlayerNotInMatchError) Is(target error) bool {
	return target == ErrPlayerNotInMatch
}
