package handlers

import (
	"context"
	"fmt"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

type FriendRequestNotificationHandler struct {
	accounts Accounts
}

func NewFriendRequestNotificationHandler(accounts Accounts) *FriendRequestNotificationHandler {
	return &FriendRequestNotificationHandler{
		accounts: accounts,
	}
}

func (f FriendRequestNotificationHandler) Type() pubsub.EventType {
	return pubsub.EventTypeFriendRequest
}

func (f FriendRequestNotificationHandler) Build(ctx context.Context, event *pubsub.Event) ([]*notifications.Notification, error) {
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

	name, err := displayName(ctx, f.accounts, requester)
	if err != nil {
		return nil, err
	}

	return []*notifications.Notification{
		notifications.NewNotification(
			addressee,
			notifications.TypeFriendRequest,
			"New friend request",
			fmt.Sprintf("%s sent you a friend request", name),
			map[string]interface{}{"id": edge, "from": requester},
		),
	}, nil
}
