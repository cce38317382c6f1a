// internal/handlers/game_server.go
package handlers

import (
	"github.com/jason-s-yu/gofish/internal/auth"
	"github.com/jason-s-yu/gofish/internal/game"
	"github.com/sirupsen/logrus"
)

// GameServer is a high-level struct that holds the session store and the pieces the
// HTTP and websocket handlers share.
type GameServer struct {
	Store  *game.Store
	Hub    *Hub
	Signer *auth.Signer
	Logger *logrus.Logger
}

func NewGameServer(store *game.Store, hub *Hub, signer *auth.Signer, logger *logrus.Logger) *GameServer {
	return &GameServer{
		Store:  store,
		Hub:    hub,
		Signer: signer,
		Logger: logger,
	}
}
