package conversations

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

type Endpoint struct {
	backend *Backend
	queue   pubsub.Publisher
	auth    *middlewares.AuthenticationHandler
}

func NewEndpoint(backend *Backend, queue pubsub.Publisher, auth *middlewares.AuthenticationHandler) *Endpoint {
	return &Endpoint{
		backend: backend,
		queue:   queue,
		auth:    auth,
	}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", e.create).Methods("POST")
	r.HandleFunc("/", e.list).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}/messages", e.messages).Methods("GET")
	r.HandleFunc("/{id:[0-9]+}/messages", e.send).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}/read", e.read).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}/unread", e.unread).Methods("GET")

	r.Use(e.auth.Middleware)

	return r
}

type createPayload struct {
	User int `json:"user" validate:"required,gt=0"`
}

func (e *Endpoint) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	payload := &createPayload{}
	err := httputil.DecodeJSON(r, payload)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	conversation, err := e.backend.GetOrCreate(r.Context(), userID, payload.User)
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, conversation)
	if err != nil {
		log.Printf("failed to write conversation response: %s\n", err.Error())
	}
}

func (e *Endpoint) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	result, err := e.backend.ListConversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write conversations response: %s\n", err.Error())
	}
}

func (e *Endpoint) messages(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	result, err := e.backend.ListMessages(
		r.Context(),
		id,
		userID,
		httputil.GetLimit(query, "limit", MaxPageSize, MaxPageSize),
		httputil.GetInt(query, "before", 0),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write messages response: %s\n", err.Error())
	}
}

type sendPayload struct {
	Content string `json:"content" validate:"max=4000"`
}

func (e *Endpoint) send(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	payload := &sendPayload{}
	err := httputil.DecodeJSON(r, payload)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	message, err := e.backend.Send(r.Context(), id, userID, payload.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	e.publish(pubsub.NewMessageEvent(message.ID, id, userID))

	err = httputil.JsonEncodeStatus(w, http.StatusCreated, message)
	if err != nil {
		log.Printf("failed to write message response: %s\n", err.Error())
	}
}

func (e *Endpoint) read(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	n, err := e.backend.MarkRead(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if n > 0 {
		e.publish(pubsub.NewMessagesReadEvent(id, userID, int(n)))
	}

	err = httputil.JsonEncode(w, map[string]int64{"updated": n})
	if err != nil {
		log.Printf("failed to write read response: %s\n", err.Error())
	}
}

func (e *Endpoint) unread(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	count, err := e.backend.UnreadCount(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, map[string]int{"count": count})
	if err != nil {
		log.Printf("failed to write unread response: %s\n", err.Error())
	}
}

func (e *Endpoint) publish(event pubsub.Event) {
	err := e.queue.Publish(pubsub.MessagesTopic, event)
	if err != nil {
		log.Printf("queue.Publish err: %v\n", err)
	}
}

func ids(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return 0, 0, false
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return 0, 0, false
	}

	return userID, id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfReference):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeSelfReference, err.Error())
	case errors.Is(err, ErrEmptyContent):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeEmptyContent, err.Error())
	case errors.Is(err, ErrUnknownUser):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, err.Error())
	case errors.Is(err, ErrNotAParticipant):
		httputil.JsonError(w, http.StatusForbidden, httputil.ErrorCodeNotAParticipant, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.JsonError(w, http.StatusNotFound, httputil.ErrorCodeNotFound, err.Error())
	default:
		log.Printf("conversations err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "internal error")
	}
}
