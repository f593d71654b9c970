package realtime

import (
	"context"
	"encoding/json"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tradepost/funcircle/pkg/pubsub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBuffer     = 256

	// dedupCapacity is the number of entities a session remembers versions for.
	dedupCapacity = 1024
)

// Session is one websocket connection of a user.
type Session struct {
	ID   string
	User int

	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mux           sync.RWMutex
	subscriptions []pubsub.Subscription

	dedup *pubsub.Deduplicator
}

func NewSession(user int, conn *websocket.Conn, hub *Hub) *Session {
	return &Session{
		ID:    uuid.New().String(),
		User:  user,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		hub:   hub,
		dedup: pubsub.NewDeduplicator(dedupCapacity),
	}
}

// wants reports whether the event matches a subscription and is newer than
// anything already delivered for its entity.
func (s *Session) wants(event *pubsub.Event) bool {
	s.mux.RLock()
	matched := false
	for _, sub := range s.subscriptions {
		if sub.Matches(event) {
			matched = true
			break
		}
	}
	s.mux.RUnlock()

	return matched && s.dedup.Fresh(event)
}

// queue hands a response to the write pump, dropping it when the client is
// too slow to keep up.
func (s *Session) queue(resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("failed to encode response err: %v\n", err)
		return
	}

	select {
	case s.send <- data:
	default:
		log.Printf("session %s send buffer full, dropping %s\n", s.ID, resp.Type)
	}
}

func (s *Session) subscribe(sub pubsub.Subscription) {
	s.mux.Lock()
	defer s.mux.Unlock()

	for _, existing := range s.subscriptions {
		if reflect.DeepEqual(existing, sub) {
			return
		}
	}

	s.subscriptions = append(s.subscriptions, sub)
}

func (s *Session) unsubscribe(sub pubsub.Subscription) {
	s.mux.Lock()
	defer s.mux.Unlock()

	kept := s.subscriptions[:0]
	for _, existing := range s.subscriptions {
		if !reflect.DeepEqual(existing, sub) {
			kept = append(kept, existing)
		}
	}

	s.subscriptions = kept
}

func (s *Session) handle(ctx context.Context, req *Request) {
	sub := req.Subscription()

	switch req.Action {
	case ActionSubscribe:
		err := s.hub.authorizer.Authorize(ctx, s.User, sub)
		if err != nil {
			s.queue(&Response{Type: ResponseTypeError, Table: req.Table, Message: err.Error()})
			return
		}

		s.subscribe(sub)
		s.queue(&Response{Type: ResponseTypeSubscribed, Table: req.Table})
	case ActionUnsubscribe:
		s.unsubscribe(sub)
		s.queue(&Response{Type: ResponseTypeUnsubscribed, Table: req.Table})
	default:
		s.queue(&Response{Type: ResponseTypeError, Message: "unknown action"})
	}
}

func (s *Session) readPump(ctx context.Context) {
	defer s.hub.unregister(s)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("session %s read err: %v\n", s.ID, err)
			}

			return
		}

		req := &Request{}
		err = json.Unmarshal(data, req)
		if err != nil {
			s.queue(&Response{Type: ResponseTypeError, Message: "invalid message"})
			continue
		}

		s.handle(ctx, req)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := s.conn.WriteMessage(websocket.TextMessage, data)
			if err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
