// internal/handlers/commands.go
package handlers

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/apperrors"
	"github.com/jason-s-yu/whosaid/internal/lobby"
	"github.com/jason-s-yu/whosaid/internal/models"
)

// lobbyPacket is an inbound client message. Only the fields relevant to Type are read.
type lobbyPacket struct {
	Type             string                 `json:"type"`
	Name             string                 `json:"name,omitempty"`
	IsReady          bool                   `json:"isReady,omitempty"`
	Messages         []models.MessageRecord `json:"messages,omitempty"`
	SelectedAuthorID string                 `json:"selectedAuthorId,omitempty"`
	ElapsedMs        int64                  `json:"elapsedMs,omitempty"`
}

// handleLobbyPacket dispatches one packet. Player identity always comes from the
// lobby's session map, never from the packet.
func handleLobbyPacket(packet lobbyPacket, lob *lobby.Lobby, client *Client) error {
	switch packet.Type {
	case "join_lobby":
		if _, err := lob.Join(client.SessionID, packet.Name); err != nil {
			return err
		}
		client.Send(stateEvent(lob, client.SessionID))
		return nil

	case "get_state":
		client.Send(stateEvent(lob, client.SessionID))
		return nil

	case "set_ready":
		playerID, err := joinedPlayer(lob, client)
		if err != nil {
			return err
		}
		return lob.SetReady(playerID, packet.IsReady)

	case "rename":
		playerID, err := joinedPlayer(lob, client)
		if err != nil {
			return err
		}
		return lob.Rename(playerID, packet.Name)

	case "submit_answer":
		playerID, err := joinedPlayer(lob, client)
		if err != nil {
			return err
		}
		return lob.SubmitAnswer(playerID, packet.SelectedAuthorID, packet.ElapsedMs)

	case "reload_messages":
		if err := validatePool(packet.Messages); err != nil {
			return err
		}
		return lob.ReloadMessages(lob.ResolveCaller(client.SessionID), packet.Messages)

	case "start_game":
		return lob.StartGame(lob.ResolveCaller(client.SessionID))

	case "leave_lobby":
		_, err := lob.Leave(lob.ResolveCaller(client.SessionID))
		return err

	default:
		return apperrors.Validation("unknown message type %q", packet.Type)
	}
}

func joinedPlayer(lob *lobby.Lobby, client *Client) (uuid.UUID, error) {
	playerID, ok := lob.PlayerIDFor(client.SessionID)
	if !ok {
		return uuid.Nil, apperrors.NotFound("join the lobby first")
	}
	return playerID, nil
}

// stateEvent is the private lobby_state sent to one connection. PlayerID is set when
// the session has joined.
func stateEvent(lob *lobby.Lobby, sessionID uuid.UUID) lobby.Event {
	snap := lob.Snapshot()
	ev := lobby.Event{Type: lobby.EventLobbyState, LobbyID: lob.ID, State: &snap}
	if playerID, ok := lob.PlayerIDFor(sessionID); ok {
		ev.PlayerID = &playerID
	}
	return ev
}
