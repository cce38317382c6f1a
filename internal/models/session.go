// internal/models/session.go
package models

import "github.com/google/uuid"

// Phase is derived from a session's Started and Winner fields.
type Phase string

const (
	PhaseWaiting    Phase = "WAITING"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinished   Phase = "FINISHED"
)

// Session is the full state of one Go Fish game. It is what gets broadcast to clients
// in stateUpdate events and what the snapshot backends persist.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Players   []*Player `json:"players"` // seat order
	Started   bool      `json:"started"`
	Turn      string    `json:"turn,omitempty"`
	DeckID    string    `json:"deckId,omitempty"`
	Remaining int       `json:"remaining"`
	Winner    string    `json:"winner,omitempty"`
	VsAI      bool      `json:"vsAI"`
}

// Phase reports where the session is in its lifecycle.
func (s *Session) Phase() Phase {
	switch {
	case s.Winner != "":
		return PhaseFinished
	case s.Started:
		return PhaseInProgress
	default:
		return PhaseWaiting
	}
}

// Player returns the player with the given id, or nil.
func (s *Session) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Seat returns the seat index of the player, or -1.
func (s *Session) Seat(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Opponent returns the first player that is not id.
func (s *Session) Opponent(id string) *Player {
	for _, p := range s.Players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

// HasHuman reports whether any seat is held by a non-AI player.
func (s *Session) HasHuman() bool {
	for _, p := range s.Players {
		if !p.IsAI {
			return true
		}
	}
	return false
}

// TotalSets counts completed sets across all players.
func (s *Session) TotalSets() int {
	n := 0
	for _, p := range s.Players {
		n += len(p.Sets)
	}
	return n
}

// CardsAccounted returns hand sizes plus four per completed set plus the undrawn remainder.
// For a started session it always equals DeckSize.
func (s *Session) CardsAccounted() int {
	n := s.Remaining
	for _, p := range s.Players {
		n += len(p.Hand) + 4*len(p.Sets)
	}
	return n
}

// Clone deep-copies the session so the copy can be handed to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	return &cp
}
