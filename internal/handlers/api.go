// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gofish/internal/game"
)

type tokenResponse struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// PlayerTokenHandler issues a player identity. A caller that already holds a valid token
// keeps its player id and receives a fresh token for it.
func PlayerTokenHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var playerID, token string
		if existing := requestToken(r); existing != "" {
			if id, err := gs.Signer.AuthenticateJWT(existing); err == nil {
				playerID = id
			}
		}

		var err error
		if playerID == "" {
			playerID, token, err = gs.issueIdentity()
		} else {
			token, err = gs.Signer.CreateJWT(playerID)
		}
		if err != nil {
			gs.Logger.WithError(err).Error("failed to issue identity")
			http.Error(w, "failed to issue identity", http.StatusInternalServerError)
			return
		}

		setAuthCookie(w, token)
		writeJSON(w, http.StatusOK, tokenResponse{PlayerID: playerID, Token: token})
	}
}

// GameStateHandler returns the current state of one session, for clients resyncing
// outside the websocket.
func GameStateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}
		s, err := gs.Store.Get(id)
		if errors.Is(err, game.ErrSessionNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// HealthzHandler reports liveness and the number of live sessions.
func HealthzHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": len(gs.Store.Snapshot()),
		})
	}
}

// Routes registers every HTTP and websocket endpoint on mux.
func (gs *GameServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /player/token", PlayerTokenHandler(gs))
	mux.HandleFunc("GET /game/state/{id}", GameStateHandler(gs))
	mux.HandleFunc("GET /game/ws", GameWSHandler(gs))
	mux.HandleFunc("GET /healthz", HealthzHandler(gs))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
