package handlers

import (
	"context"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/users/types"
)

// Handler handles a specific type of notification
type Handler interface {

	// Type returns the event handled to build a notification
	Type() pubsub.EventType

	// Build builds the notifications for every receiver of the event
	Build(ctx context.Context, event *pubsub.Event) ([]*notifications.Notification, error)
}

// Accounts resolves the account an event originates from.
type Accounts interface {
	FindByID(ctx context.Context, id int) (*types.User, error)
}

func displayName(ctx context.Context, accounts Accounts, id int) (string, error) {
	user, err := accounts.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	return user.DisplayName, nil
}
