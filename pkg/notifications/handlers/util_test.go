package handlers_test

import (
	"encoding/json"

	"github.com/tradepost/funcircle/pkg/pubsub"
)

var userColumns = []string{"id", "display_name", "username", "image", "location", "verified", "created_at"}

func getRawEvent(event *pubsub.Event) (*pubsub.Event, error) {
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
