// internal/handlers/session.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/auth"
)

const sessionCookieName = "auth_token"

// EnsureSession returns the caller's session id, issuing a new session cookie when
// the request carries no valid token. It must run before a websocket upgrade so the
// cookie reaches the client.
func EnsureSession(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if sessionID, err := sessionFromRequest(r); err == nil {
		return sessionID, nil
	}

	sessionID := uuid.New()
	token, err := auth.CreateSessionToken(sessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID, nil
}

// sessionFromRequest validates the session cookie without issuing a new one.
func sessionFromRequest(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("missing %s cookie", sessionCookieName)
	}
	return auth.ParseSessionToken(cookie.Value)
}
