// internal/models/results.go
package models

import "github.com/google/uuid"

// PlayerRoundResult is one player's outcome for a round.
type PlayerRoundResult struct {
	PlayerID     uuid.UUID `json:"playerId"`
	Name         string    `json:"name"`
	Answered     bool      `json:"answered"`
	IsCorrect    bool      `json:"isCorrect"`
	PointsEarned float64   `json:"pointsEarned"`
	ElapsedMs    int64     `json:"elapsedMs"`
}

// RoundResult is derived from player state when a round ends.
type RoundResult struct {
	RoundNumber       int                 `json:"roundNumber"`
	CorrectAuthorID   string              `json:"correctAuthorId"`
	CorrectAuthorName string              `json:"correctAuthorName"`
	PlayerResults     []PlayerRoundResult `json:"playerResults"`
}

// LeaderboardEntry is one row of the score table.
type LeaderboardEntry struct {
	PlayerID uuid.UUID `json:"playerId"`
	Name     string    `json:"name"`
	Score    float64   `json:"score"`
}
