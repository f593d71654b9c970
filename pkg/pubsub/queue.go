// Package pubsub is the realtime fan-out bus. Writers publish row level
// change events on a topic and readers subscribe to one or more topics.
package pubsub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type Topic string

const (
	FriendsTopic  Topic = "friends"
	StoriesTopic  Topic = "stories"
	MessagesTopic Topic = "messages"
)

// TopicFor returns the topic events of a table are published on.
func TopicFor(table Table) Topic {
	switch table {
	case TableFriendEdges:
		return FriendsTopic
	case TableMessages:
		return MessagesTopic
	default:
		return StoriesTopic
	}
}

// Publisher is implemented by Queue.
type Publisher interface {
	Publish(topic Topic, event Event) error
}

type Queue struct {
	rdb *redis.Client

	mux  sync.Mutex
	subs []*redis.PubSub
}

// NewQueue creates a new redis pubsub Queue.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{
		rdb: rdb,
	}
}

// Publish an Event on a specific topic.
func (q *Queue) Publish(topic Topic, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}

	return q.rdb.Publish(q.rdb.Context(), string(topic), data).Err()
}

// Subscribe to a list of topics. The returned channel is closed once the
// queue is closed.
func (q *Queue) Subscribe(topics ...Topic) (<-chan *Event, error) {
	t := make([]string, 0, len(topics))
	for _, topic := range topics {
		t = append(t, string(topic))
	}

	pubsub := q.rdb.Subscribe(q.rdb.Context(), t...)

	_, err := pubsub.Receive(q.rdb.Context())
	if err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "failed to subscribe")
	}

	q.mux.Lock()
	q.subs = append(q.subs, pubsub)
	q.mux.Unlock()

	events := make(chan *Event, 100)
	go q.read(pubsub, events)

	return events, nil
}

// Close ends all subscriptions.
func (q *Queue) Close() error {
	q.mux.Lock()
	defer q.mux.Unlock()

	var result error
	for _, sub := range q.subs {
		err := sub.Close()
		if err != nil {
			result = err
		}
	}

	q.subs = nil
	return result
}

func (q *Queue) read(pubsub *redis.PubSub, events chan<- *Event) {
	defer close(events)

	for msg := range pubsub.Channel() {
		event := &Event{}
		err := json.Unmarshal([]byte(msg.Payload), event)
		if err != nil {
			log.Printf("failed to decode event err: %v\n", err)
			continue
		}

		events <- event
	}
}
