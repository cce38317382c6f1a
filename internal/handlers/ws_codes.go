// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Identity could not be established for the connection.
)
