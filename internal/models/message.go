// internal/models/message.go
package models

import "time"

// MessageRecord is a single chat message loaded from an external transcript.
// Records are immutable once a lobby has loaded them.
type MessageRecord struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Timestamp  time.Time `json:"timestamp"`

	// ChannelID, Mentions and AttachmentURLs are passed through so clients can render
	// the message faithfully. The core never inspects them.
	ChannelID      string            `json:"channelId,omitempty"`
	Mentions       map[string]string `json:"mentions,omitempty"` // userID -> username
	AttachmentURLs []string          `json:"attachmentUrls,omitempty"`
}
