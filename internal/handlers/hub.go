// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/game"
	"github.com/sirupsen/logrus"
)

// wsClient is one websocket connection. Everything written to it goes through send,
// which a single writePump drains, so messages reach the client in dispatch order.
type wsClient struct {
	playerID string
	remote   string
	send     chan []byte
	cancel   context.CancelFunc

	closeOnce sync.Once
}

func newWSClient(playerID, remote string, cancel context.CancelFunc) *wsClient {
	return &wsClient{
		playerID: playerID,
		remote:   remote,
		send:     make(chan []byte, 64),
		cancel:   cancel,
	}
}

// enqueue hands data to the writer without blocking. A client that cannot keep up is
// disconnected; it resyncs with getState after reconnecting.
func (c *wsClient) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		c.close()
		return false
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(c.cancel)
}

// Hub is the notification bus: one room per session, holding the connections of the
// players seated in it plus any connection that asked for the session's state.
// It implements game.Dispatcher.
type Hub struct {
	mu       sync.RWMutex
	byPlayer map[string]map[*wsClient]struct{}
	rooms    map[uuid.UUID]map[*wsClient]struct{}
	logger   logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		byPlayer: make(map[string]map[*wsClient]struct{}),
		rooms:    make(map[uuid.UUID]map[*wsClient]struct{}),
		logger:   logger,
	}
}

// Register tracks a new connection for its player.
func (h *Hub) Register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byPlayer[c.playerID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.byPlayer[c.playerID] = set
	}
	set[c] = struct{}{}
}

// Unregister drops the connection from every room.
func (h *Hub) Unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.byPlayer[c.playerID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byPlayer, c.playerID)
		}
	}
	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// Subscribe adds a single connection to a session room.
func (h *Hub) Subscribe(sessionID uuid.UUID, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.room(sessionID)[c] = struct{}{}
}

// Unsubscribe removes a single connection from a session room.
func (h *Hub) Unsubscribe(sessionID uuid.UUID, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
}

// room returns the room, creating it. Assumes h.mu is held for writing.
func (h *Hub) room(sessionID uuid.UUID) map[*wsClient]struct{} {
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*wsClient]struct{})
		h.rooms[sessionID] = room
	}
	return room
}

func (h *Hub) subscribePlayer(sessionID uuid.UUID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.byPlayer[playerID]
	if len(conns) == 0 {
		return
	}
	room := h.room(sessionID)
	for c := range conns {
		room[c] = struct{}{}
	}
}

func (h *Hub) unsubscribePlayer(sessionID uuid.UUID, playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	for c := range room {
		if c.playerID == playerID {
			delete(room, c)
		}
	}
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

func (h *Hub) closeRoom(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, sessionID)
}

// RoomSize reports how many connections are subscribed to a session.
func (h *Hub) RoomSize(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Dispatch keeps room membership in line with the session's seats and fans the event
// out to the room. It never blocks on a connection.
func (h *Hub) Dispatch(ev game.GameEvent) {
	switch ev.Type {
	case game.EventGameCreated, game.EventPlayerJoined:
		h.subscribePlayer(ev.SessionID, ev.PlayerID)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).WithField("type", ev.Type).Error("failed to marshal event")
		return
	}
	h.broadcast(ev.SessionID, data)

	switch ev.Type {
	case game.EventPlayerLeft:
		h.unsubscribePlayer(ev.SessionID, ev.PlayerID)
	case game.EventSessionDeleted:
		h.closeRoom(ev.SessionID)
	}
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		if !c.enqueue(data) {
			h.logger.WithFields(logrus.Fields{"session": sessionID, "player": c.playerID}).Warn("client send buffer full, disconnecting")
		}
	}
}

// sendTo queues a message for one connection only.
func (h *Hub) sendTo(c *wsClient, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal websocket message")
		return
	}
	if !c.enqueue(data) {
		h.logger.WithField("player", c.playerID).Warn("client send buffer full, disconnecting")
	}
}
