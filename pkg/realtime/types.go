// Package realtime forwards fan-out events to websocket sessions that
// subscribed to them.
package realtime

import "github.com/tradepost/funcircle/pkg/pubsub"

type Action string

const (
	ActionSubscribe   Action = "subscribe"
	ActionUnsubscribe Action = "unsubscribe"
)

// Request is a message sent by a client.
type Request struct {
	Action Action                 `json:"action"`
	Table  pubsub.Table           `json:"table"`
	Kind   pubsub.Kind            `json:"kind"`
	Filter map[string]interface{} `json:"filter"`
}

func (r Request) Subscription() pubsub.Subscription {
	return pubsub.Subscription{Table: r.Table, Kind: r.Kind, Filter: r.Filter}
}

type ResponseType string

const (
	ResponseTypeConnected    ResponseType = "connected"
	ResponseTypeEvent        ResponseType = "event"
	ResponseTypeSubscribed   ResponseType = "subscribed"
	ResponseTypeUnsubscribed ResponseType = "unsubscribed"
	ResponseTypeError        ResponseType = "error"
)

// Response is a message sent to a client.
type Response struct {
	Type    ResponseType  `json:"type"`
	Session string        `json:"session,omitempty"`
	Table   pubsub.Table  `json:"table,omitempty"`
	Event   *pubsub.Event `json:"event,omitempty"`
	Message string        `json:"message,omitempty"`
}
