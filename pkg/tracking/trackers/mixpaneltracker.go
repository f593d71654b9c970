package trackers

import (
	"fmt"
	"strconv"

	"github.com/dukex/mixpanel"

	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/tracking"
)

type MixpanelTracker struct {
	client mixpanel.Mixpanel
}

func NewMixpanelTracker(client mixpanel.Mixpanel) *MixpanelTracker {
	return &MixpanelTracker{client: client}
}

func (m *MixpanelTracker) CanTrack(event *pubsub.Event) bool {
	return event.Type != pubsub.EventTypeMessagesRead
}

func (m *MixpanelTracker) Track(event *pubsub.Event) error {
	log := transform(event)
	if log == nil {
		return fmt.Errorf("invalid type for tracker: %d", event.Type)
	}

	return m.client.Track(log.ID, log.Name, &mixpanel.Event{IP: "0", Properties: log.Properties})
}

func transform(event *pubsub.Event) *tracking.Event {
	switch event.Type {
	case pubsub.EventTypeFriendRequest:
		return actorEvent(event, "requester", "friend_request_sent", "id", "addressee")
	case pubsub.EventTypeFriendAccepted:
		return actorEvent(event, "addressee", "friend_request_accepted", "id", "requester")
	case pubsub.EventTypeFriendRejected:
		return actorEvent(event, "addressee", "friend_request_rejected", "id", "requester")
	case pubsub.EventTypeFriendRemoved:
		return actorEvent(event, "actor", "friend_removed", "id")
	case pubsub.EventTypeNewStory:
		log := actorEvent(event, "author", "story_new", "id")
		if log == nil {
			return nil
		}

		mentions, err := event.GetIntSlice("mentions")
		if err != nil {
			return nil
		}

		log.Properties["mentions"] = len(mentions)
		return log
	case pubsub.EventTypeStoryDeleted:
		return actorEvent(event, "author", "story_deleted", "id")
	case pubsub.EventTypeStoryReaction:
		log := actorEvent(event, "user", "story_reaction", "story", "reaction")
		if log == nil {
			return nil
		}

		log.Properties["change"] = event.Kind
		return log
	case pubsub.EventTypeStoryComment:
		return actorEvent(event, "author", "story_comment", "story")
	case pubsub.EventTypeNewMessage:
		return actorEvent(event, "sender", "message_sent", "conversation_id")
	default:
		return nil
	}
}

// actorEvent builds an event attributed to the account in the actor param,
// copying the listed params into the properties.
func actorEvent(event *pubsub.Event, actor, name string, params ...string) *tracking.Event {
	id, err := event.GetInt(actor)
	if err != nil {
		return nil
	}

	properties := make(map[string]interface{}, len(params))
	for _, param := range params {
		properties[param] = event.Params[param]
	}

	return &tracking.Event{
		ID:         strconv.Itoa(id),
		Name:       name,
		Properties: properties,
	}
}
