package pubsub

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

type EventType int

const (
	EventTypeFriendRequest EventType = iota
	EventTypeFriendAccepted
	EventTypeFriendRejected
	EventTypeFriendRemoved
	EventTypeNewStory
	EventTypeStoryDeleted
	EventTypeStoryReaction
	EventTypeStoryComment
	EventTypeNewMessage
	EventTypeMessagesRead
)

// Table names the row set an event describes.
type Table string

const (
	TableFriendEdges    Table = "friend_edges"
	TableStories        Table = "stories"
	TableStoryReactions Table = "story_reactions"
	TableStoryComments  Table = "story_comments"
	TableMessages       Table = "messages"
)

// Kind is the row level change.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ErrMissingParam is returned when an event does not carry a requested param.
var ErrMissingParam = errors.New("missing param")

// Event is a row level change published over the fan-out bus.
type Event struct {
	Type     EventType              `json:"type"`
	Table    Table                  `json:"table"`
	Kind     Kind                   `json:"kind"`
	EntityID string                 `json:"entity_id"`
	Version  int64                  `json:"version"`
	Params   map[string]interface{} `json:"params"`
}

// Key identifies the entity an event is about, independent of its version.
func (e Event) Key() string {
	return fmt.Sprintf("%s:%s", e.Table, e.EntityID)
}

func (e Event) GetInt(field string) (int, error) {
	val, ok := e.Params[field]
	if !ok {
		return 0, errors.Wrap(ErrMissingParam, field)
	}

	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("param %s has unexpected type %T", field, val)
	}
}

func (e Event) GetString(field string) (string, error) {
	val, ok := e.Params[field]
	if !ok {
		return "", errors.Wrap(ErrMissingParam, field)
	}

	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("param %s has unexpected type %T", field, val)
	}

	return str, nil
}

func (e Event) GetIntSlice(field string) ([]int, error) {
	val, ok := e.Params[field]
	if !ok {
		return nil, errors.Wrap(ErrMissingParam, field)
	}

	switch v := val.(type) {
	case []int:
		return v, nil
	case []interface{}:
		result := make([]int, 0, len(v))
		for _, item := range v {
			f, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("param %s has unexpected element %T", field, item)
			}

			result = append(result, int(f))
		}

		return result, nil
	default:
		return nil, fmt.Errorf("param %s has unexpected type %T", field, val)
	}
}

func newEvent(t EventType, table Table, kind Kind, id string, params map[string]interface{}) Event {
	return Event{
		Type:     t,
		Table:    table,
		Kind:     kind,
		EntityID: id,
		Version:  time.Now().UnixNano(),
		Params:   params,
	}
}

func NewFriendRequestEvent(edge, requester, addressee int) Event {
	return newEvent(
		EventTypeFriendRequest, TableFriendEdges, KindInsert, strconv.Itoa(edge),
		map[string]interface{}{"id": edge, "requester": requester, "addressee": addressee},
	)
}

func NewFriendAcceptedEvent(edge, requester, addressee int) Event {
	return newEvent(
		EventTypeFriendAccepted, TableFriendEdges, KindUpdate, strconv.Itoa(edge),
		map[string]interface{}{"id": edge, "requester": requester, "addressee": addressee, "status": "accepted"},
	)
}

func NewFriendRejectedEvent(edge, requester, addressee int) Event {
	return newEvent(
		EventTypeFriendRejected, TableFriendEdges, KindUpdate, strconv.Itoa(edge),
		map[string]interface{}{"id": edge, "requester": requester, "addressee": addressee, "status": "rejected"},
	)
}

func NewFriendRemovedEvent(edge, requester, addressee, actor int) Event {
	return newEvent(
		EventTypeFriendRemoved, TableFriendEdges, KindDelete, strconv.Itoa(edge),
		map[string]interface{}{"id": edge, "requester": requester, "addressee": addressee, "actor": actor},
	)
}

func NewStoryEvent(story string, author int, mentions []int) Event {
	return newEvent(
		EventTypeNewStory, TableStories, KindInsert, story,
		map[string]interface{}{"id": story, "author": author, "mentions": mentions},
	)
}

func NewStoryDeletedEvent(story string, author int) Event {
	return newEvent(
		EventTypeStoryDeleted, TableStories, KindDelete, story,
		map[string]interface{}{"id": story, "author": author},
	)
}

// NewStoryReactionEvent describes a change to a user's reaction on a story,
// kind is the reaction kind after the change and empty when it was removed.
func NewStoryReactionEvent(story string, user int, reaction string, change Kind) Event {
	return newEvent(
		EventTypeStoryReaction, TableStoryReactions, change, fmt.Sprintf("%s:%d", story, user),
		map[string]interface{}{"story": story, "user": user, "reaction": reaction},
	)
}

func NewStoryCommentEvent(comment int, story string, author int) Event {
	return newEvent(
		EventTypeStoryComment, TableStoryComments, KindInsert, strconv.Itoa(comment),
		map[string]interface{}{"id": comment, "story": story, "author": author},
	)
}

func NewMessageEvent(message, conversation, sender int) Event {
	return newEvent(
		EventTypeNewMessage, TableMessages, KindInsert, strconv.Itoa(message),
		map[string]interface{}{"id": message, "conversation_id": conversation, "sender": sender},
	)
}

func NewMessagesReadEvent(conversation, reader, count int) Event {
	return newEvent(
		EventTypeMessagesRead, TableMessages, KindUpdate, fmt.Sprintf("read:%d:%d", conversation, reader),
		map[string]interface{}{"conversation_id": conversation, "reader": reader, "count": count},
	)
}
