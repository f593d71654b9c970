package handlers

import (
	"context"
	"fmt"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

type StoryMentionNotificationHandler struct {
	accounts Accounts
}

func NewStoryMentionNotificationHandler(accounts Accounts) *StoryMentionNotificationHandler {
	return &StoryMentionNotificationHandler{
		accounts: accounts,
	}
}

func (s StoryMentionNotificationHandler) Type() pubsub.EventType {
	return pubsub.EventTypeNewStory
}

func (s StoryMentionNotificationHandler) Build(ctx context.Context, event *pubsub.Event) ([]*notifications.Notification, error) {
	story, err := event.GetString("id")
	if err != nil {
		return nil, err
	}

	author, err := event.GetInt("author")
	if err != nil {
		return nil, err
	}

	mentions, err := event.GetIntSlice("mentions")
	if err != nil {
		return nil, err
	}

	if len(mentions) == 0 {
		return []*notifications.Notification{}, nil
	}

	name, err := displayName(ctx, s.accounts, author)
	if err != nil {
		return nil, err
	}

	result := make([]*notifications.Notification, 0, len(mentions))
	for _, user := range mentions {
		if user == author {
			continue
		}

		result = append(result, notifications.NewNotification(
			user,
			notifications.TypeStoryMention,
			"You were mentioned",
			fmt.Sprintf("%s mentioned you in a story", name),
			map[string]interface{}{"id": story, "from": author},
		))
	}

	return result, nil
}
