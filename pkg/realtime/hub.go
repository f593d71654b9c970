package realtime

import (
	"sync"

	"github.com/tradepost/funcircle/pkg/pubsub"
)

// Hub tracks the open sessions and fans events out to them.
type Hub struct {
	mux      sync.RWMutex
	sessions map[string]*Session

	authorizer Authorizer
}

func NewHub(authorizer Authorizer) *Hub {
	return &Hub{
		sessions:   make(map[string]*Session),
		authorizer: authorizer,
	}
}

// Run broadcasts every event until the channel closes.
func (h *Hub) Run(events <-chan *pubsub.Event) {
	for event := range events {
		h.Broadcast(event)
	}
}

func (h *Hub) Broadcast(event *pubsub.Event) {
	h.mux.RLock()
	defer h.mux.RUnlock()

	for _, session := range h.sessions {
		if !session.wants(event) {
			continue
		}

		session.queue(&Response{Type: ResponseTypeEvent, Table: event.Table, Event: event})
	}
}

// Sessions returns the number of open sessions.
func (h *Hub) Sessions() int {
	h.mux.RLock()
	defer h.mux.RUnlock()

	return len(h.sessions)
}

func (h *Hub) register(session *Session) {
	h.mux.Lock()
	defer h.mux.Unlock()

	h.sessions[session.ID] = session
}

func (h *Hub) unregister(session *Session) {
	h.mux.Lock()
	defer h.mux.Unlock()

	_, ok := h.sessions[session.ID]
	if !ok {
		return
	}

	delete(h.sessions, session.ID)
	close(session.send)
}
