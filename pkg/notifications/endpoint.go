package notifications

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
)

type Endpoint struct {
	storage *Storage
	auth    *middlewares.AuthenticationHandler
}

func NewEndpoint(storage *Storage, auth *middlewares.AuthenticationHandler) *Endpoint {
	return &Endpoint{
		storage: storage,
		auth:    auth,
	}
}

func (e *Endpoint) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", e.list).Methods("GET")

	r.Use(e.auth.Middleware)

	return r
}

type listResponse struct {
	HasNew        bool            `json:"has_new"`
	Notifications []*Notification `json:"notifications"`
}

// list returns the stored notifications and clears the has-new flag.
func (e *Endpoint) list(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.UserID(r)
	if !ok {
		httputil.JsonError(w, http.StatusUnauthorized, httputil.ErrorCodeInvalidRequestBody, "invalid id")
		return
	}

	list, err := e.storage.GetNotifications(id)
	if err != nil {
		log.Printf("storage.GetNotifications err: %v\n", err)
		httputil.JsonError(w, http.StatusInternalServerError, httputil.ErrorCodeInternal, "failed to get notifications")
		return
	}

	resp := listResponse{HasNew: e.storage.HasNewNotifications(id), Notifications: list}

	err = e.storage.MarkNotificationsViewed(id)
	if err != nil {
		log.Printf("storage.MarkNotificationsViewed err: %v\n", err)
	}

	err = httputil.JsonEncode(w, resp)
	if err != nil {
		log.Printf("failed to write notifications response: %s\n", err.Error())
	}
}
