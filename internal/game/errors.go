package game

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlayerNotFound  = errors.New("player not found in session")
	ErrSessionFull     = errors.New("session already has two players")
	ErrStartFailed     = errors.New("failed to start session")
	ErrNotInProgress   = errors.New("session is not in progress")
	ErrNotYourTurn     = errors.New("not this player's turn")
	ErrInvalidRank     = errors.New("invalid rank")
)

// ErrInvalidPlayer is returned for an empty player id or one reserved for the computer opponent.
var ErrInvalidPlayer = errors.New("invalid player id")
