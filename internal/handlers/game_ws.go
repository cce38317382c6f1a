// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/game"
	"github.com/jason-s-yu/gofish/internal/middleware"
	"github.com/sirupsen/logrus"
)

// GameMessage is an inbound websocket message. Which fields are used depends on Type.
type GameMessage struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
	Name   string `json:"name,omitempty"`
	VsAI   bool   `json:"vsAI,omitempty"`
	To     string `json:"to,omitempty"`
	Rank   string `json:"rank,omitempty"`
}

// GameWSHandler upgrades the connection and serves one player's websocket. The player
// is identified by their token; all session events for sessions they sit in arrive on
// this connection.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := gs.Logger

		// identity must be settled before the upgrade so a new cookie can go out with it
		playerID, err := gs.ensurePlayer(w, r)
		if err != nil {
			logger.WithError(err).Error("failed to establish player identity")
			http.Error(w, "failed to establish identity", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "game" {
			c.Close(BadSubprotocolError, "client must speak the game subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		client := newWSClient(playerID, r.RemoteAddr, cancel)
		gs.Hub.Register(client)
		defer gs.Hub.Unregister(client)

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)
		go writePump(ctx, c, client, logger)

		gs.Hub.sendTo(client, map[string]interface{}{"type": "identity", "playerId": playerID})
		err = readGameMessages(ctx, c, gs, client)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	}
}

// readGameMessages reads until the connection closes or ctx is cancelled. A normal
// closure returns nil.
func readGameMessages(ctx context.Context, c *websocket.Conn, gs *GameServer, client *wsClient) error {
	log := gs.Logger.WithField("player", client.playerID)
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warnf("Invalid JSON received: %v", err)
			gs.sendWsError(client, "Invalid JSON format.")
			continue
		}
		log.Debugf("Received '%s'", msg.Type)
		gs.handleGameMessage(ctx, client, msg)
	}
}

// handleGameMessage routes one message to the store. The acting player is always the
// connection's identity. Results reach the client through the hub's session events;
// only failures and direct replies are written here.
func (gs *GameServer) handleGameMessage(ctx context.Context, client *wsClient, msg GameMessage) {
	playerID := client.playerID

	switch msg.Type {
	case "createGame":
		s, err := gs.Store.Create(ctx, playerID, msg.Name, msg.VsAI)
		if err != nil {
			gs.sendWsError(client, errorText(err))
			return
		}
		if msg.VsAI {
			if _, err := gs.Store.Join(ctx, s.ID, playerID, msg.Name); err != nil {
				gs.sendWsError(client, errorText(err))
			}
		}

	case "joinGame":
		id, ok := gs.parseGameID(client, msg.GameID)
		if !ok {
			return
		}
		if _, err := gs.Store.Join(ctx, id, playerID, msg.Name); err != nil {
			gs.sendWsError(client, errorText(err))
		}

	case "leaveGame":
		id, ok := gs.parseGameID(client, msg.GameID)
		if !ok {
			return
		}
		_, err := gs.Store.Leave(ctx, id, playerID)
		gs.Hub.Unsubscribe(id, client)
		if err != nil {
			gs.sendWsError(client, errorText(err))
		}

	case "ask":
		id, ok := gs.parseGameID(client, msg.GameID)
		if !ok {
			return
		}
		to := msg.To
		if to == "" {
			s, err := gs.Store.Get(id)
			if err != nil {
				gs.sendWsError(client, errorText(err))
				return
			}
			if opp := s.Opponent(playerID); opp != nil {
				to = opp.ID
			}
		}
		if _, err := gs.Store.Ask(ctx, id, playerID, to, msg.Rank); err != nil {
			gs.sendWsError(client, errorText(err))
		}

	case "getState":
		id, ok := gs.parseGameID(client, msg.GameID)
		if !ok {
			return
		}
		s, err := gs.Store.Get(id)
		if err != nil {
			gs.sendWsError(client, errorText(err))
			return
		}
		gs.Hub.Subscribe(id, client)
		gs.Hub.sendTo(client, game.GameEvent{Type: game.EventStateUpdate, SessionID: id, State: s})

	case "updateName":
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			gs.sendWsError(client, "Name must not be empty.")
			return
		}
		res := gs.Store.RenamePlayer(playerID, name)
		if !res.Found {
			gs.sendWsError(client, "You are not in any game.")
			return
		}
		gs.Logger.WithFields(logrus.Fields{"player": playerID, "sessions": len(res.SessionIDs)}).Info("player renamed")

	case "ping":
		gs.Hub.sendTo(client, map[string]string{"type": "pong"})

	default:
		gs.sendWsError(client, fmt.Sprintf("Unknown action type: %s", msg.Type))
	}
}

func (gs *GameServer) parseGameID(client *wsClient, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		gs.sendWsError(client, "Invalid gameId format.")
		return uuid.Nil, false
	}
	return id, true
}

// sendWsError sends a structured error message to the client.
func (gs *GameServer) sendWsError(client *wsClient, errorMsg string) {
	gs.Hub.sendTo(client, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}

// errorText turns store errors into client-facing messages.
func errorText(err error) string {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		return "Game not found."
	case errors.Is(err, game.ErrSessionFull):
		return "Game is full."
	case errors.Is(err, game.ErrStartFailed):
		return "Could not start the game. Join again to retry."
	case errors.Is(err, game.ErrNotYourTurn):
		return "It is not your turn."
	case errors.Is(err, game.ErrNotInProgress):
		return "Game is not in progress."
	case errors.Is(err, game.ErrInvalidRank):
		return "Invalid rank."
	case errors.Is(err, game.ErrPlayerNotFound):
		return "Player not found in this game."
	case errors.Is(err, game.ErrInvalidPlayer):
		return "Invalid player."
	default:
		return err.Error()
	}
}

// writePump drains the client's send queue onto the socket and pings periodically.
// A failed write cancels the connection so the read loop exits too.
func writePump(ctx context.Context, c *websocket.Conn, client *wsClient, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer client.close()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-client.send:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithError(err).WithField("player", client.playerID).Warn("failed to write to websocket")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithError(err).WithField("player", client.playerID).Warn("failed to ping, assuming disconnect")
				return
			}
		}
	}
}
