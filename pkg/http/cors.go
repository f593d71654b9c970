package http

import (
	"net/http"

	"github.com/gorilla/handlers"
)

var allowedHeaders = []string{
	"Authorization",
	"Content-Type",
	"Accept",
	"Origin",
	"X-Requested-With",
	"X-Sweep-Token",
}

var allowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}

// CORS wraps handlers for browser clients served from origins. An empty
// list allows every origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders(allowedHeaders),
		handlers.AllowedMethods(allowedMethods),
	)
}
