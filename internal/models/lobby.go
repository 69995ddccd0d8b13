// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// LobbyState is the state of a lobby's state machine.
type LobbyState string

const (
	StateWaiting      LobbyState = "Waiting"      // waiting for players to join and ready up
	StateGameStarting LobbyState = "GameStarting" // transient, first round about to start
	StateRoundActive  LobbyState = "RoundActive"  // players are answering
	StateRoundEnded   LobbyState = "RoundEnded"   // showing results before the next round
	StateGameEnded    LobbyState = "GameEnded"    // pool exhausted, leaderboard frozen
	StateClosed       LobbyState = "Closed"       // removed from the store
)

// HasRound reports whether a lobby in this state owns a current round.
func (s LobbyState) HasRound() bool {
	return s == StateRoundActive || s == StateRoundEnded
}

// LobbySnapshot is the lobby state payload attached to most outbound events.
type LobbySnapshot struct {
	LobbyID           uuid.UUID        `json:"lobbyId"`
	CreatorID         uuid.UUID        `json:"creatorId"`
	State             LobbyState       `json:"state"`
	CurrentRound      int              `json:"currentRound"`
	TotalRounds       int              `json:"totalRounds"`
	RemainingMessages int              `json:"remainingMessages"`
	SecondsPerRound   int              `json:"secondsPerRound"`
	OptionCount       int              `json:"optionCount"`
	Players           []PlayerSnapshot `json:"players"`
	CreatedAt         time.Time        `json:"createdAt"`

	// UniqueAuthors counts distinct authors in the remaining pool. PoolReady is false
	// when the next round would have to pad its options with the correct author.
	UniqueAuthors int  `json:"uniqueAuthors"`
	PoolReady     bool `json:"poolReady"`
}
