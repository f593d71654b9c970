package conversations

import (
	"time"

	"github.com/tradepost/funcircle/pkg/users/types"
)

const (
	// MaxPageSize caps a page of messages.
	MaxPageSize = 50

	// SnippetLength is the number of runes kept of the latest message.
	SnippetLength = 80
)

// Conversation is a 1:1 thread. ParticipantOne is always the lower id.
type Conversation struct {
	ID             int         `json:"id"`
	ParticipantOne int         `json:"participant_one"`
	ParticipantTwo int         `json:"participant_two"`
	LastMessageAt  *time.Time  `json:"last_message_at"`
	CreatedAt      time.Time   `json:"created_at"`
	Other          *types.User `json:"other,omitempty"`
	UnreadCount    int         `json:"unread_count"`
	LastMessage    string      `json:"last_message"`
}

// IsParticipant reports whether user is part of the conversation.
func (c *Conversation) IsParticipant(user int) bool {
	return c.ParticipantOne == user || c.ParticipantTwo == user
}

type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	SenderID       int       `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

func ordered(a, b int) (int, int) {
	if a < b {
		return a, b
	}

	return b, a
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= SnippetLength {
		return content
	}

	return string(runes[:SnippetLength])
}
