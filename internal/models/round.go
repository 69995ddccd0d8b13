// internal/models/round.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Option is one candidate author shown to players.
type Option struct {
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
}

// Round is one question: the selected message and its shuffled candidate authors.
// The correct answer is Message.AuthorID; Round itself must never be sent to clients.
type Round struct {
	ID        uuid.UUID     `json:"id"`
	Number    int           `json:"number"`
	Message   MessageRecord `json:"message"`
	Options   []Option      `json:"options"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// CorrectOption returns the option matching the message's author.
func (r *Round) CorrectOption() Option {
	return Option{AuthorID: r.Message.AuthorID, AuthorName: r.Message.AuthorName}
}

// PublicMessage is a message with its author removed.
type PublicMessage struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	Timestamp      time.Time         `json:"timestamp"`
	Mentions       map[string]string `json:"mentions,omitempty"`
	AttachmentURLs []string          `json:"attachmentUrls,omitempty"`
}

// PublicRound is the author-anonymized projection of a Round that is safe to broadcast.
type PublicRound struct {
	ID              uuid.UUID     `json:"id"`
	Number          int           `json:"number"`
	Message         PublicMessage `json:"message"`
	Options         []Option      `json:"options"`
	StartedAt       time.Time     `json:"startedAt"`
	SecondsPerRound int           `json:"secondsPerRound"`
}

// Public builds the anonymized projection. Options are copied so the caller cannot
// mutate the round through the returned value.
func (r *Round) Public() PublicRound {
	opts := make([]Option, len(r.Options))
	copy(opts, r.Options)
	return PublicRound{
		ID:     r.ID,
		Number: r.Number,
		Message: PublicMessage{
			ID:             r.Message.ID,
			Content:        r.Message.Content,
			Timestamp:      r.Message.Timestamp,
			Mentions:       r.Message.Mentions,
			AttachmentURLs: r.Message.AttachmentURLs,
		},
		Options:         opts,
		StartedAt:       r.StartedAt,
		SecondsPerRound: int(r.Duration / time.Second),
	}
}
