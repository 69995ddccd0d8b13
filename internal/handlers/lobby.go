// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type createLobbyRequest struct {
	Messages        []models.MessageRecord `json:"messages"`
	SecondsPerRound int                    `json:"secondsPerRound"`
	OptionCount     int                    `json:"optionCount"`
}

// CreateLobbyHandler creates an in-memory lobby owned by the caller's session.
func (s *LobbyServer) CreateLobbyHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID, err := EnsureSession(w, r)
	if err != nil {
		s.Logger.Errorf("create lobby: %v", err)
		writeError(w, err)
		return
	}

	var req createLobbyRequest
	body := http.MaxBytesReader(w, r.Body, s.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperrors.Validation("bad lobby request payload"))
		return
	}
	if err := validatePool(req.Messages); err != nil {
		writeError(w, err)
		return
	}

	l, err := s.Store.Create(sessionID, req.Messages, models.LobbySettings{
		SecondsPerRound: req.SecondsPerRound,
		OptionCount:     req.OptionCount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l.Snapshot())
}

// ListLobbiesHandler returns a snapshot of every lobby for debugging.
func (s *LobbyServer) ListLobbiesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, err := sessionFromRequest(r); err != nil {
		http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.Store.List())
}

// LobbyQRHandler renders a PNG QR code of the lobby's join URL.
func (s *LobbyServer) LobbyQRHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lobbyID, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		http.Error(w, "invalid lobby id", http.StatusBadRequest)
		return
	}
	if _, ok := s.Store.Peek(lobbyID); !ok {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}

	url := s.joinURL(r, lobbyID)
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		s.Logger.WithFields(logrus.Fields{"lobby_id": lobbyID, "url": url}).Errorf("qr generation failed: %v", err)
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// joinURL derives the page URL a player opens to join lobbyID.
func (s *LobbyServer) joinURL(r *http.Request, lobbyID uuid.UUID) string {
	if s.PublicURL != "" {
		return strings.TrimRight(s.PublicURL, "/") + "/lobby/" + lobbyID.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/lobby/" + lobbyID.String()
}

// validatePool rejects messages that cannot be turned into a round.
func validatePool(pool []models.MessageRecord) error {
	for i, m := range pool {
		if strings.TrimSpace(m.ID) == "" {
			return apperrors.Validation("message %d has no id", i)
		}
		if strings.TrimSpace(m.AuthorID) == "" {
			return apperrors.Validation("message %s has no authorId", m.ID)
		}
	}
	return nil
}
