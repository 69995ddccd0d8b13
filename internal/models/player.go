// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is a participant in exactly one lobby. The ID is stable for the lobby's
// lifetime and is unrelated to any transport connection id.
type Player struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	IsReady bool      `json:"isReady"`
	Score   float64   `json:"score"`

	// LastAnswerCorrect and LastAnswerElapsedMs describe the answer given in the
	// current (or most recent) round. Both are nil when the player has not answered.
	LastAnswerCorrect   *bool  `json:"lastAnswerCorrect,omitempty"`
	LastAnswerElapsedMs *int64 `json:"lastAnswerElapsedMs,omitempty"`
}

// ResetAnswer clears the per-round answer fields.
func (p *Player) ResetAnswer() {
	p.LastAnswerCorrect = nil
	p.LastAnswerElapsedMs = nil
}

// HasAnswered reports whether the player submitted an answer this round.
func (p *Player) HasAnswered() bool {
	return p.LastAnswerCorrect != nil
}

// PlayerSnapshot is the outward view of a player used in lobby state payloads.
type PlayerSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsReady  bool      `json:"isReady"`
	Score    float64   `json:"score"`
	Answered bool      `json:"answered"`
}
