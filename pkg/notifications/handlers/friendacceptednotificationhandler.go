package handlers

import (
	"context"
	"fmt"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

type FriendAcceptedNotificationHandler struct {
	accounts Accounts
}

func NewFriendAcceptedNotificationHandler(accounts Accounts) *FriendAcceptedNotificationHandler {
	return &FriendAcceptedNotificationHandler{
		accounts: accounts,
	}
}

func (f FriendAcceptedNotificationHandler) Type() pubsub.EventType {
	return pubsub.EventTypeFriendAccepted
}

// Build notifies the requester, the addressee is the one who accepted.
func (f FriendAcceptedNotificationHandler) Build(ctx context.Context, event *pubsub.Event) ([]*notifications.Notification, error) {
	edge, err := event.GetInt("id")
	if err != nil {
		return nil, err
	}

	requester, err := event.GetInt("requester")
	if err != nil {
		return nil, err
	}

	addressee, err := event.GetInt("addressee")
	if err != nil {
		return nil, err
	}

	name, err := displayName(ctx, f.accounts, addressee)
	if err != nil {
		return nil, err
	}

	return []*notifications.Notification{
		notifications.NewNotification(
			requester,
			notifications.TypeFriendAccepted,
			"Friend request accepted",
			fmt.Sprintf("%s accepted your friend request", name),
			map[string]interface{}{"id": edge, "from": addressee},
		),
	}, nil
}
