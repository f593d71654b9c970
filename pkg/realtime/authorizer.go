package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradepost/funcircle/pkg/conversations"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

var (
	ErrUnknownTable   = errors.New("unknown table")
	ErrFilterRequired = errors.New("filter required")
	ErrNotAllowed     = errors.New("subscription not allowed")
)

// Authorizer decides whether a user may receive the events selected by a
// subscription.
type Authorizer interface {
	Authorize(ctx context.Context, user int, sub pubsub.Subscription) error
}

// ConversationFinder is implemented by conversations.Backend.
type ConversationFinder interface {
	Get(ctx context.Context, id int) (*conversations.Conversation, error)
}

// Rules authorizes subscriptions per table. Stories and their reactions and
// comments are public. Friend edges require a filter on one of the user's
// own sides, messages require a filter on a conversation the user is part
// of.
type Rules struct {
	conversations ConversationFinder
}

func NewRules(conversations ConversationFinder) *Rules {
	return &Rules{conversations: conversations}
}

func (r *Rules) Authorize(ctx context.Context, user int, sub pubsub.Subscription) error {
	switch sub.Table {
	case pubsub.TableStories, pubsub.TableStoryReactions, pubsub.TableStoryComments:
		return nil
	case pubsub.TableFriendEdges:
		for _, side := range []string{"requester", "addressee"} {
			val, ok := sub.Filter[side]
			if ok && fmt.Sprint(val) == fmt.Sprint(user) {
				return nil
			}
		}

		return ErrFilterRequired
	case pubsub.TableMessages:
		id, err := filterInt(sub.Filter, "conversation_id")
		if err != nil {
			return ErrFilterRequired
		}

		conversation, err := r.conversations.Get(ctx, id)
		if err != nil {
			if errors.Is(err, conversations.ErrNotFound) {
				return ErrNotAllowed
			}

			return err
		}

		if !conversation.IsParticipant(user) {
			return ErrNotAllowed
		}

		return nil
	default:
		return ErrUnknownTable
	}
}

func filterInt(filter map[string]interface{}, key string) (int, error) {
	event := pubsub.Event{Params: filter}
	return event.GetInt(key)
}
