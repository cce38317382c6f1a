package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/game"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	*wsClient
	closed bool
}

func newFakeConn(h *Hub, playerID string) *fakeConn {
	fc := &fakeConn{}
	fc.wsClient = newWSClient(playerID, "test", func() { fc.closed = true })
	h.Register(fc.wsClient)
	return fc
}

// drain returns the types of every queued message.
func (fc *fakeConn) drain(t *testing.T) []string {
	t.Helper()
	var types []string
	for {
		select {
		case data := <-fc.send:
			var ev struct {
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(data, &ev))
			types = append(types, ev.Type)
		default:
			return types
		}
	}
}

func TestHubRoutesBySeat(t *testing.T) {
	h := NewHub(logrus.New())
	alice := newFakeConn(h, "alice")
	aliceTab := newFakeConn(h, "alice")
	bob := newFakeConn(h, "bob")
	carol := newFakeConn(h, "carol")
	id := uuid.New()

	h.Dispatch(game.GameEvent{Type: game.EventGameCreated, SessionID: id, PlayerID: "alice"})
	assert.Equal(t, []string{"gameCreated"}, alice.drain(t))
	assert.Equal(t, []string{"gameCreated"}, aliceTab.drain(t), "every connection of the player joins the room")
	assert.Empty(t, bob.drain(t))

	h.Dispatch(game.GameEvent{Type: game.EventPlayerJoined, SessionID: id, PlayerID: "bob"})
	h.Dispatch(game.GameEvent{Type: game.EventStateUpdate, SessionID: id})
	assert.Equal(t, []string{"playerJoined", "stateUpdate"}, bob.drain(t))
	assert.Equal(t, []string{"playerJoined", "stateUpdate"}, alice.drain(t))
	assert.Empty(t, carol.drain(t), "other sessions' players hear nothing")

	h.Dispatch(game.GameEvent{Type: game.EventPlayerLeft, SessionID: id, PlayerID: "bob"})
	h.Dispatch(game.GameEvent{Type: game.EventStateUpdate, SessionID: id})
	assert.Equal(t, []string{"playerLeft"}, bob.drain(t), "the leaver hears their own leave and nothing after")
	assert.Equal(t, []string{"playerLeft", "stateUpdate"}, alice.drain(t))

	h.Dispatch(game.GameEvent{Type: game.EventSessionDeleted, SessionID: id})
	assert.Equal(t, []string{"gameDeleted"}, alice.drain(t))
	assert.Zero(t, h.RoomSize(id))
	aliceTab.drain(t)

	h.Dispatch(game.GameEvent{Type: game.EventStateUpdate, SessionID: id})
	assert.Empty(t, alice.drain(t))
}

func TestHubUnregister(t *testing.T) {
	h := NewHub(logrus.New())
	alice := newFakeConn(h, "alice")
	id := uuid.New()
	h.Dispatch(game.GameEvent{Type: game.EventGameCreated, SessionID: id, PlayerID: "alice"})
	require.Equal(t, 1, h.RoomSize(id))

	h.Unregister(alice.wsClient)
	assert.Zero(t, h.RoomSize(id))

	// a later join finds no connection to subscribe
	h.Dispatch(game.GameEvent{Type: game.EventPlayerJoined, SessionID: id, PlayerID: "alice"})
	assert.Zero(t, h.RoomSize(id))
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	h := NewHub(logrus.New())
	slow := newFakeConn(h, "slow")
	id := uuid.New()
	h.Subscribe(id, slow.wsClient)

	for i := 0; i < cap(slow.send)+1; i++ {
		h.Dispatch(game.GameEvent{Type: game.EventGameMessage, SessionID: id, Seq: i + 1})
	}
	assert.True(t, slow.closed)
	assert.Len(t, slow.drain(t), cap(slow.send))
}
