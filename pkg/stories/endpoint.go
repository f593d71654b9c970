package stories

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

// SweepTokenHeader carries the internal token for the sweep route.
const SweepTokenHeader = "X-Sweep-Token"

type Endpoint struct {
	backend    *Backend
	sweeper    *Sweeper
	media      MediaStore
	queue      pubsub.Publisher
	auth       *middlewares.AuthenticationHandler
	timeout    time.Duration
	sweepToken string
}

func NewEndpoint(
	backend *Backend,
	sweeper *Sweeper,
	media MediaStore,
	queue pubsub.Publisher,
	auth *middlewares.AuthenticationHandler,
	timeout time.Duration,
	sweepToken string,
) *Endpoint {
	return &Endpoint{
		backend:    backend,
		sweeper:    sweeper,
		media:      media,
		queue:      queue,
		auth:       auth,
		timeout:    timeout,
		sweepToken: sweepToken,
	}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/sweep", e.sweep).Methods("POST")

	authed := r.NewRoute().Subrouter()
	authed.HandleFunc("/", e.post).Methods("POST")
	authed.HandleFunc("/feed", e.feed).Methods("GET")
	authed.HandleFunc("/quota", e.quota).Methods("GET")
	authed.HandleFunc("/{id:[0-9a-zA-Z]+}", e.get).Methods("GET")
	authed.HandleFunc("/{id:[0-9a-zA-Z]+}", e.delete).Methods("DELETE")
	authed.HandleFunc("/{id:[0-9a-zA-Z]+}/react", e.react).Methods("POST")
	authed.HandleFunc("/{id:[0-9a-zA-Z]+}/view", e.view).Methods("POST")
	authed.HandleFunc("/{id:[0-9a-zA-Z]+}/comments", e.comment).Methods("POST")
	authed.HandleFunc("/{id:[0-9a-zA-Z]+}/comments", e.listComments).Methods("GET")
	authed.Use(e.auth.Middleware)

	return r
}

type postPayload struct {
	Content  string   `json:"content" validate:"max=2000"`
	Images   []string `json:"images" validate:"dive,required"`
	Mentions []int    `json:"mentions" validate:"dive,gt=0"`
}

func (e *Endpoint) post(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	payload := &postPayload{}
	err := httputil.DecodeJSON(r, payload)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	story, err := e.backend.Post(r.Context(), userID, payload.Content, payload.Images, payload.Mentions)
	if err != nil {
		writeError(w, err)
		return
	}

	e.publish(pubsub.NewStoryEvent(story.ID, userID, story.Mentions))

	err = httputil.JsonEncodeStatus(w, http.StatusCreated, story)
	if err != nil {
		log.Printf("failed to write story response: %s\n", err.Error())
	}
}

func (e *Endpoint) feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), e.timeout)
	defer cancel()

	feed, err := e.backend.Feed(ctx, userID, time.Now().UTC())
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		httputil.JsonError(w, http.StatusGatewayTimeout, httputil.ErrorCodeTimeout, "feed timed out")
		return
	}

	if err != nil {
		log.Printf("backend.Feed err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to load feed")
		return
	}

	err = httputil.JsonEncode(w, feed)
	if err != nil {
		log.Printf("failed to write feed response: %s\n", err.Error())
	}
}

func (e *Endpoint) quota(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	quota, err := e.backend.QuotaUsage(r.Context(), userID, time.Now().UTC())
	if err != nil {
		log.Printf("backend.QuotaUsage err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to load quota")
		return
	}

	err = httputil.JsonEncode(w, quota)
	if err != nil {
		log.Printf("failed to write quota response: %s\n", err.Error())
	}
}

func (e *Endpoint) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	story, err := e.backend.Get(r.Context(), mux.Vars(r)["id"], userID, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, story)
	if err != nil {
		log.Printf("failed to write story response: %s\n", err.Error())
	}
}

func (e *Endpoint) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	story, err := e.backend.Delete(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, err)
		return
	}

	for _, image := range story.Images {
		err := e.media.Remove(image)
		if err != nil {
			log.Printf("media.Remove err: %v\n", err)
		}
	}

	e.publish(pubsub.NewStoryDeletedEvent(story.ID, story.AuthorID))

	w.WriteHeader(http.StatusNoContent)
}

type reactPayload struct {
	Reaction string `json:"reaction" validate:"required"`
}

func (e *Endpoint) react(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	payload := &reactPayload{}
	err := httputil.DecodeJSON(r, payload)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	kind, err := ParseKind(payload.Reaction)
	if err != nil {
		writeError(w, err)
		return
	}

	id := mux.Vars(r)["id"]
	result, err := e.backend.React(r.Context(), id, userID, kind)
	if err != nil {
		writeError(w, err)
		return
	}

	change := pubsub.KindInsert
	switch result.Change {
	case ChangeUpdate:
		change = pubsub.KindUpdate
	case ChangeDelete:
		change = pubsub.KindDelete
	}

	reaction := ""
	if result.Reaction != nil {
		reaction = string(*result.Reaction)
	}

	e.publish(pubsub.NewStoryReactionEvent(id, userID, reaction, change))

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write reaction response: %s\n", err.Error())
	}
}

func (e *Endpoint) view(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	counted, err := e.backend.View(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, map[string]bool{"counted": counted})
	if err != nil {
		log.Printf("failed to write view response: %s\n", err.Error())
	}
}

type commentPayload struct {
	Text string `json:"text" validate:"max=1000"`
}

func (e *Endpoint) comment(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	payload := &commentPayload{}
	err := httputil.DecodeJSON(r, payload)
	if err != nil {
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, "invalid request body")
		return
	}

	comment, err := e.backend.Comment(r.Context(), mux.Vars(r)["id"], userID, payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	e.publish(pubsub.NewStoryCommentEvent(comment.ID, comment.StoryID, userID))

	err = httputil.JsonEncodeStatus(w, http.StatusCreated, comment)
	if err != nil {
		log.Printf("failed to write comment response: %s\n", err.Error())
	}
}

func (e *Endpoint) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := e.backend.ListComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	err = httputil.JsonEncode(w, comments)
	if err != nil {
		log.Printf("failed to write comments response: %s\n", err.Error())
	}
}

func (e *Endpoint) sweep(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(SweepTokenHeader)
	if e.sweepToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(e.sweepToken)) != 1 {
		httputil.JsonError(w, http.StatusUnauthorized, httputil.ErrorCodeUnauthorized, "unauthorized")
		return
	}

	result, err := e.sweeper.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		log.Printf("sweeper.Sweep err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "sweep failed")
		return
	}

	err = httputil.JsonEncode(w, result)
	if err != nil {
		log.Printf("failed to write sweep response: %s\n", err.Error())
	}
}

func (e *Endpoint) publish(event pubsub.Event) {
	err := e.queue.Publish(pubsub.StoriesTopic, event)
	if err != nil {
		log.Printf("queue.Publish err: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyContent):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeEmptyContent, err.Error())
	case errors.Is(err, ErrTooManyImages):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeTooManyImages, err.Error())
	case errors.Is(err, ErrQuotaExceeded):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeQuotaExceeded, err.Error())
	case errors.Is(err, ErrInvalidKind):
		httputil.JsonError(w, http.StatusBadRequest, httputil.ErrorCodeInvalidRequestBody, err.Error())
	case errors.Is(err, ErrNotAuthorized):
		httputil.JsonError(w, http.StatusForbidden, httputil.ErrorCodeNotAuthorized, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.JsonError(w, http.StatusNotFound, httputil.ErrorCodeNotFound, err.Error())
	default:
		log.Printf("stories err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "internal error")
	}
}
