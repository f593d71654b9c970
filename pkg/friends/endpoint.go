package friends

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/suggestions"
	"github.com/tradepost/funcircle/pkg/users/types"
)

// Suggester ranks accounts a viewer may want to befriend.
type Suggester interface {
	Suggest(ctx context.Context, viewer int) ([]*suggestions.Suggestion, error)
}

type Endpoint struct {
	backend   *Backend
	searcher  AccountSearcher
	suggester Suggester
	queue     pubsub.Publisher
	auth      *middlewares.AuthenticationHandler
	timeout   time.Duration
}

func NewEndpoint(
	backend *Backend,
	searcher AccountSearcher,
	suggester Suggester,
	queue pubsub.Publisher,
	auth *middlewares.AuthenticationHandler,
	timeout time.Duration,
) *Endpoint {
	return &Endpoint{
		backend:   backend,
		searcher:  searcher,
		suggester: suggester,
		queue:     queue,
		auth:      auth,
		timeout:   timeout,
	}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", e.listFriends).Methods("GET")
	r.HandleFunc("/pending", e.listPending).Methods("GET")
	r.HandleFunc("/sent", e.listSent).Methods("GET")
	r.HandleFunc("/search", e.search).Methods("GET")
	r.HandleFunc("/suggestions", e.listSuggestions).Methods("GET")
	r.HandleFunc("/requests", e.sendRequest).Methods("POST")
	r.HandleFunc("/requests/{id:[0-9]+}/accept", e.accept).Methods("POST")
	r.HandleFunc("/requests/{id:[0-9]+}/reject", e.reject).Methods("POST")
	r.HandleFunc("/{id:[0-9]+}", e.remove).Methods("DELETE")

	r.Use(e.auth.Middleware)

	return r
}

type requestPayload struct {
	User int `json:"user" validate:"required,gt=0"`
}

func (e *Endpoint) sendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	payload := &requestPayload{}
	err := httputil.DecodeJSON(r, payload)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	edge, err := e.backend.SendRequest(r.Context(), userID, payload.User)
	if err != nil {
		writeError(w, err)
		return
	}

	e.publish(pubsub.NewFriendRequestEvent(edge.ID, edge.RequesterID, edge.AddresseeID))

	err = httputil.JsonEncodeStatus(w, http.StatusCreated, edge)
	if err != nil {
		log.Printf("failed to write friend request response: %s\n", err.Error())
	}
}

func (e *Endpoint) accept(w http.ResponseWriter, r *http.Request) {
	e.handleTransition(w, r, e.backend.Accept, func(edge *Edge) pubsub.Event {
		return pubsub.NewFriendAcceptedEvent(edge.ID, edge.RequesterID, edge.AddresseeID)
	})
}

func (e *Endpoint) reject(w http.ResponseWriter, r *http.Request) {
	e.handleTransition(w, r, e.backend.Reject, func(edge *Edge) pubsub.Event {
		return pubsub.NewFriendRejectedEvent(edge.ID, edge.RequesterID, edge.AddresseeID)
	})
}

func (e *Endpoint) remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := httputil.UserID(r)
	e.handleTransition(w, r, e.backend.Remove, func(edge *Edge) pubsub.Event {
		return pubsub.NewFriendRemovedEvent(edge.ID, edge.RequesterID, edge.AddresseeID, userID)
	})
}

func (e *Endpoint) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, int, int) (*Edge, error),
	event func(*Edge) pubsub.Event,
) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	edge, err := op(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	e.publish(event(edge))

	err = httputil.JsonEncode(w, edge)
	if err != nil {
		log.Printf("failed to write edge response: %s\n", err.Error())
	}
}

func (e *Endpoint) listFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	result, err := e.backend.ListFriends(r.Context(), userID)
	if err != nil {
		log.Printf("backend.ListFriends err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to list friends")
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write friends response: %s\n", err.Error())
	}
}

func (e *Endpoint) listPending(w http.ResponseWriter, r *http.Request) {
	e.listRequests(w, r, e.backend.ListPending)
}

func (e *Endpoint) listSent(w http.ResponseWriter, r *http.Request) {
	e.listRequests(w, r, e.backend.ListSent)
}

func (e *Endpoint) listRequests(w http.ResponseWriter, r *http.Request, list func(context.Context, int) ([]*Request, error)) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	result, err := list(r.Context(), userID)
	if err != nil {
		log.Printf("failed to list requests err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to list requests")
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write requests response: %s\n", err.Error())
	}
}

func (e *Endpoint) search(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), e.timeout)
	defer cancel()

	query := r.URL.Query()
	result, err := e.backend.SearchCandidates(ctx, e.searcher, query.Get("q"), userID, httputil.GetLimit(query, "limit", DefaultSearchLimit, MaxSearchLimit))
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Printf("search timed out for user %d\n", userID)
		result, err = []*types.User{}, nil
	}

	if err != nil {
		log.Printf("backend.SearchCandidates err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to search")
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write search response: %s\n", err.Error())
	}
}

func (e *Endpoint) listSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	result, err := e.suggester.Suggest(r.Context(), userID)
	if err == suggestions.ErrTimeout {
		log.Printf("suggestions timed out for user %d\n", userID)
		err = nil
	}

	if err != nil {
		log.Printf("suggester.Suggest err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to load suggestions")
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write suggestions response: %s\n", err.Error())
	}
}

func (e *Endpoint) publish(event pubsub.Event) {
	err := e.queue.Publish(pubsub.FriendsTopic, event)
	if err != nil {
		log.Printf("queue.Publish err: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfReference):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeSelfReference, err.Error())
	case errors.Is(err, ErrUnknownUser):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, err.Error())
	case errors.Is(err, ErrDuplicateEdge):
		httputil.JsonError(w, http.StatusConflict, httputil.ErrorCodeDuplicate, err.Error())
	case errors.Is(err, ErrInvalidState):
		httputil.JsonError(w, http.StatusConflict, httputil.ErrorCodeInvalidState, err.Error())
	case errors.Is(err, ErrNotAuthorized):
		httputil.JsonError(w, http.StatusForbidden, httputil.ErrorCodeNotAuthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.JsonError(w, http.StatusNotFound, httputil.ErrorCodeNotFound, err.Error())
	default:
		log.Printf("friends err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "internal error")
	}
}
