package pubsub_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/tradepost/funcircle/pkg/pubsub"
)

func getRawEvent(event pubsub.Event) (*pubsub.Event, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	evt := &pubsub.Event{}
	err = json.Unmarshal(data, evt)
	if err != nil {
		return nil, err
	}

	return evt, nil
}

func TestEvent_GetInt(t *testing.T) {
	event, err := getRawEvent(pubsub.NewFriendRequestEvent(3, 1, 2))
	if err != nil {
		t.Fatal(err)
	}

	addressee, err := event.GetInt("addressee")
	if err != nil {
		t.Fatal(err)
	}

	if addressee != 2 {
		t.Fatalf("expected 2 actual %d", addressee)
	}

	_, err = event.GetInt("missing")
	if err == nil {
		t.Fatal("expected error for missing param")
	}
}

func TestEvent_GetIntSlice(t *testing.T) {
	event, err := getRawEvent(pubsub.NewStoryEvent("abc", 1, []int{4, 5}))
	if err != nil {
		t.Fatal(err)
	}

	mentions, err := event.GetIntSlice("mentions")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(mentions, []int{4, 5}) {
		t.Fatalf("unexpected mentions %v", mentions)
	}

	id, err := event.GetString("id")
	if err != nil {
		t.Fatal(err)
	}

	if id != "abc" {
		t.Fatalf("unexpected id %s", id)
	}
}

func TestEvent_Key(t *testing.T) {
	event := pubsub.NewStoryReactionEvent("abc", 7, "love", pubsub.KindInsert)

	if event.Key() != "story_reactions:abc:7" {
		t.Fatalf("unexpected key %s", event.Key())
	}

	if event.Table != pubsub.TableStoryReactions || event.Kind != pubsub.KindInsert {
		t.Fatalf("unexpected table/kind %s/%s", event.Table, event.Kind)
	}
}

func TestTopicFor(t *testing.T) {
	var tests = []struct {
		table pubsub.Table
		topic pubsub.Topic
	}{
		{pubsub.TableFriendEdges, pubsub.FriendsTopic},
		{pubsub.TableStories, pubsub.StoriesTopic},
		{pubsub.TableStoryReactions, pubsub.StoriesTopic},
		{pubsub.TableStoryComments, pubsub.StoriesTopic},
		{pubsub.TableMessages, pubsub.MessagesTopic},
	}

	for _, tt := range tests {
		t.Run(string(tt.table), func(t *testing.T) {
			if pubsub.TopicFor(tt.table) != tt.topic {
				t.Fatalf("expected %s actual %s", tt.topic, pubsub.TopicFor(tt.table))
			}
		})
	}
}
