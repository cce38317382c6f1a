package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jason-s-yu/gofish/internal/auth"
)

// authCookieName holds the player's identity token.
const authCookieName = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == cookieName {
			return value
		}
	}
	return ""
}

// requestToken finds an identity token in the Authorization header, the token query
// parameter or the auth cookie, in that order.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return extractCookieToken(r.Header.Get("Cookie"), authCookieName)
}

// ensurePlayer returns the player id carried by the request's token. A request without
// a valid token gets a fresh guest identity, set as a cookie on w.
func (gs *GameServer) ensurePlayer(w http.ResponseWriter, r *http.Request) (string, error) {
	if token := requestToken(r); token != "" {
		playerID, err := gs.Signer.AuthenticateJWT(token)
		if err == nil {
			return playerID, nil
		}
		gs.Logger.WithError(err).WithField("remote", r.RemoteAddr).Debug("rejected identity token, issuing a new one")
	}

	playerID, token, err := gs.issueIdentity()
	if err != nil {
		return "", err
	}
	setAuthCookie(w, token)
	return playerID, nil
}

func (gs *GameServer) issueIdentity() (string, string, error) {
	playerID := auth.NewPlayerID()
	token, err := gs.Signer.CreateJWT(playerID)
	if err != nil {
		return "", "", fmt.Errorf("failed to create identity token: %w", err)
	}
	return playerID, token, nil
}

func setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}
