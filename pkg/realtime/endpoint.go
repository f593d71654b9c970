package realtime

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
)

type Endpoint struct {
	hub      *Hub
	upgrader *websocket.Upgrader
	auth     *middlewares.AuthenticationHandler
}

func NewEndpoint(hub *Hub, auth *middlewares.AuthenticationHandler) *Endpoint {
	return &Endpoint{
		hub: hub,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		auth: auth,
	}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", e.connect).Methods("GET")

	r.Use(e.auth.Middleware)

	return r
}

func (e *Endpoint) connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusUnauthorized, httputil.ErrorCodeUnauthorized, "unauthorized")
		return
	}

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrader.Upgrade err: %v\n", err)
		return
	}

	session := NewSession(userID, conn, e.hub)
	e.hub.register(session)

	session.queue(&Response{Type: ResponseTypeConnected, Session: session.ID})

	go session.writePump()
	go session.readPump(context.Background())
}
