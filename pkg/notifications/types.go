package notifications

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeFriendRequest  Type = "friend_request"
	TypeFriendAccepted Type = "friend_accepted"
	TypeStoryMention   Type = "story_mention"
)

// Notification is the record stored for a user and returned by the
// notifications endpoint.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    int                    `json:"user_id"`
	Type      Type                   `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Timestamp int64                  `json:"timestamp"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

func NewNotification(user int, t Type, title, message string, args map[string]interface{}) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		UserID:    user,
		Type:      t,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().Unix(),
		Arguments: args,
	}
}
