// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/lobby"
	"github.com/jason-s-yu/whosaid/internal/metrics"
	"github.com/jason-s-yu/whosaid/internal/middleware"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/julienschmidt/httprouter"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// LobbyWSHandler attaches a websocket to a lobby. Disconnecting does not leave the
// lobby; idle lobbies are reclaimed by the reaper.
func (s *LobbyServer) LobbyWSHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lobbyID, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		http.Error(w, "invalid lobby_id", http.StatusBadRequest)
		return
	}

	// Session cookie must be set before the upgrade.
	sessionID, err := EnsureSession(w, r)
	if err != nil {
		s.Logger.Warnf("session setup failed for lobby %s: %v", lobbyID, err)
		http.Error(w, "unable to assign session", http.StatusInternalServerError)
		return
	}

	lob, err := s.Store.Get(lobbyID)
	if err != nil {
		http.Error(w, "lobby does not exist", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"lobby"},
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != "lobby" {
		c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
		return
	}

	client := newClient(sessionID, lobbyID, s.newLimiter(), s.Logger)
	s.Hub.Register(client)
	defer s.Hub.Unregister(client)

	if lob.State() == models.StateClosed {
		c.Close(InvalidLobbyIDError, "lobby is closed")
		return
	}

	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, lobbyID, client.ConnID)
	client.Send(stateEvent(lob, sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go writePump(ctx, cancel, c, client, func() { s.Hub.Unregister(client) })

	err = readPump(ctx, c, lob, client)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, lobbyID, client.ConnID, err)
}

// readPump handles incoming packets until the socket closes. Normal closure returns nil.
func readPump(ctx context.Context, c *websocket.Conn, lob *lobby.Lobby, client *Client) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || status == LobbyClosedCode || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			client.log.Warnf("received non-text message type %d, ignoring", typ)
			continue
		}
		if !client.limiter.Allow() {
			metrics.CommandsRejected.WithLabelValues("rate_limited").Inc()
			client.Send(lobby.ErrorEvent(lob.ID, "too many messages, slow down"))
			continue
		}

		var packet lobbyPacket
		if err := json.Unmarshal(msg, &packet); err != nil {
			client.log.Warnf("invalid json: %v", err)
			client.Send(lobby.ErrorEvent(lob.ID, "Invalid JSON format"))
			continue
		}

		if err := handleLobbyPacket(packet, lob, client); err != nil {
			kind := apperrors.KindOf(err)
			metrics.CommandsRejected.WithLabelValues(string(kind)).Inc()
			if kind == apperrors.KindInternal {
				client.log.Errorf("handling %q: %v", packet.Type, err)
			} else {
				client.log.Debugf("rejected %q: %v", packet.Type, err)
			}
			client.Send(lobby.ErrorEvent(lob.ID, apperrors.PublicMessage(err)))
		}
	}
}

// writePump serializes OutChan to the socket and keeps it alive with pings. After
// delivering lobby_closed it calls detach and then closes the socket; the close
// handshake can block until the peer answers.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, client *Client, detach func()) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-client.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				client.log.Warnf("failed to marshal outgoing event: %v", err)
				continue
			}

			writeCtx, writeCancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				client.log.Warnf("failed to write to websocket: %v", err)
				return
			}

			if ev.Type == lobby.EventLobbyClosed {
				detach()
				c.Close(LobbyClosedCode, ev.Message)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				client.log.Debugf("ping failed: %v", err)
				return
			}
		}
	}
}
