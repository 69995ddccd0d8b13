// internal/lobby/events.go
package lobby

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/whosaid/internal/models"
)

// EventType is the JSON "type" of an outbound lobby event.
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerReadyChanged EventType = "player_ready_status_changed"
	EventPlayerNameChanged  EventType = "player_name_changed"
	EventMessagesReloaded   EventType = "messages_reloaded"
	EventGameStarting       EventType = "game_starting"
	EventRoundStarted       EventType = "round_started"
	EventAnswerSubmitted    EventType = "answer_submitted"
	EventRoundEnded         EventType = "round_ended"
	EventGameEnded          EventType = "game_ended"
	EventPlayerLeft         EventType = "player_left"
	EventLobbyClosed        EventType = "lobby_closed"
	EventLobbyState         EventType = "lobby_state"
	EventError              EventType = "error"
)

// Event is a single outbound message. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType                 `json:"type"`
	LobbyID     uuid.UUID                 `json:"lobbyId"`
	PlayerID    *uuid.UUID                `json:"playerId,omitempty"`
	Name        string                    `json:"name,omitempty"`
	IsReady     *bool                     `json:"isReady,omitempty"`
	Round       *models.PublicRound       `json:"round,omitempty"`
	Results     *models.RoundResult       `json:"results,omitempty"`
	Leaderboard []models.LeaderboardEntry `json:"leaderboard,omitempty"`
	State       *models.LobbySnapshot     `json:"lobbyState,omitempty"`
	Message     string                    `json:"message,omitempty"`
}

// ErrorEvent builds an error event carrying msg.
func ErrorEvent(lobbyID uuid.UUID, msg string) Event {
	return Event{Type: EventError, LobbyID: lobbyID, Message: msg}
}

// Broadcaster delivers events to every connection attached to a lobby.
// Broadcast is called with the lobby lock held and must not block.
type Broadcaster interface {
	Broadcast(lobbyID uuid.UUID, ev Event)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(uuid.UUID, Event) {}

func playerRef(id uuid.UUID) *uuid.UUID {
	return &id
}

func boolRef(b bool) *bool {
	return &b
}
