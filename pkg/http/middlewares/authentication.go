package middlewares

import (
	"net/http"
	"strings"

	httputil "github.com/tradepost/funcircle/pkg/http"
	"github.com/tradepost/funcircle/pkg/sessions"
)

type AuthenticationHandler struct {
	sm *sessions.SessionManager
}

func NewAuthenticationMiddleware(sm *sessions.SessionManager) *AuthenticationHandler {
	return &AuthenticationHandler{
		sm: sm,
	}
}

func (h AuthenticationHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			httputil.JsonError(w, http.StatusUnauthorized, httputil.ErrorCodeUnauthorized, "unauthorized")
			return
		}

		id, err := h.sm.GetUserIDForSession(token)
		if err != nil || id == 0 {
			httputil.JsonError(w, http.StatusUnauthorized, httputil.ErrorCodeUnauthorized, "unauthorized")
			return
		}

		r := req.WithContext(httputil.WithSession(req.Context(), id, token))

		next.ServeHTTP(w, r)
	})
}
