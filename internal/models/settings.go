// internal/models/settings.go
package models

import (
	"time"

	"github.com/jason-s-yu/whosaid/internal/apperrors"
)

const (
	DefaultSecondsPerRound = 30
	DefaultOptionCount     = 4
	MinOptionCount         = 2
	MaxOptionCount         = 10
	MaxSecondsPerRound     = 600

	DefaultStartDelay    = 1 * time.Second
	DefaultRoundEndDelay = 3 * time.Second
)

// LobbySettings captures the per-lobby game configuration.
type LobbySettings struct {
	// SecondsPerRound is how long a round accepts answers before it ends on its own.
	SecondsPerRound int `json:"secondsPerRound"`

	// OptionCount is how many candidate authors each round shows (2-10).
	OptionCount int `json:"optionCount"`

	// StartDelay is the pause between GameStarting and the first round. Zero starts
	// the first round synchronously.
	StartDelay time.Duration `json:"-"`

	// RoundEndDelay is how long results stay on screen before the next round. Zero
	// advances synchronously.
	RoundEndDelay time.Duration `json:"-"`
}

// DefaultLobbySettings returns the settings used when a creator specifies nothing.
func DefaultLobbySettings() LobbySettings {
	return LobbySettings{
		SecondsPerRound: DefaultSecondsPerRound,
		OptionCount:     DefaultOptionCount,
		StartDelay:      DefaultStartDelay,
		RoundEndDelay:   DefaultRoundEndDelay,
	}
}

// Normalize fills zero values with defaults and validates the result.
// Delays are left untouched; negative delays are treated as zero.
func (s LobbySettings) Normalize() (LobbySettings, error) {
	if s.SecondsPerRound == 0 {
		s.SecondsPerRound = DefaultSecondsPerRound
	}
	if s.OptionCount == 0 {
		s.OptionCount = DefaultOptionCount
	}
	if s.SecondsPerRound < 0 || s.SecondsPerRound > MaxSecondsPerRound {
		return s, apperrors.Validation("secondsPerRound must be between 1 and %d", MaxSecondsPerRound)
	}
	if s.OptionCount < MinOptionCount || s.OptionCount > MaxOptionCount {
		return s, apperrors.Validation("optionCount must be between %d and %d", MinOptionCount, MaxOptionCount)
	}
	if s.StartDelay < 0 {
		s.StartDelay = 0
	}
	if s.RoundEndDelay < 0 {
		s.RoundEndDelay = 0
	}
	return s, nil
}

// RoundDuration returns SecondsPerRound as a time.Duration.
func (s LobbySettings) RoundDuration() time.Duration {
	return time.Duration(s.SecondsPerRound) * time.Second
}
