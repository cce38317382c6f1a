// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/models"
)

// GameEventType names an event broadcast to the clients of one session.
type GameEventType string

const (
	EventStateUpdate    GameEventType = "stateUpdate"  // Full session snapshot.
	EventGameMessage    GameEventType = "gameMessage"  // Free-text description of what just happened.
	EventSetCompleted   GameEventType = "setCompleted" // A player completed four of a kind.
	EventGameCreated    GameEventType = "gameCreated"
	EventGameFinished   GameEventType = "gameFinished" // Emitted once per game; PlayerID is the winner.
	EventPlayerJoined   GameEventType = "playerJoined"
	EventPlayerLeft     GameEventType = "playerLeft"
	EventSessionDeleted GameEventType = "gameDeleted"
)

// GameEvent is a typed domain event. Seq increases by one per event within a session.
type GameEvent struct {
	Type      GameEventType   `json:"type"`
	SessionID uuid.UUID       `json:"gameId"`
	Seq       int             `json:"seq"`
	PlayerID  string          `json:"playerId,omitempty"`
	Rank      string          `json:"rank,omitempty"`
	Text      string          `json:"text,omitempty"`
	State     *models.Session `json:"state,omitempty"`
}

// Dispatcher receives events after the mutation that produced them has committed.
// Dispatch is called with the session lock held, so it must not block or call back into the Store.
type Dispatcher interface {
	Dispatch(ev GameEvent)
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(ev GameEvent)

func (f DispatcherFunc) Dispatch(ev GameEvent) { f(ev) }

// MultiDispatcher fans every event out to each dispatcher in order.
type MultiDispatcher []Dispatcher

func (m MultiDispatcher) Dispatch(ev GameEvent) {
	for _, d := range m {
		if d != nil {
			d.Dispatch(ev)
		}
	}
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(GameEvent) {}
