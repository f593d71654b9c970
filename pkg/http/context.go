package http

import (
	"context"
	"net/http"
)

type contextKey int

const (
	userIDKey contextKey = iota
	tokenKey
)

// GetUserIDFromContext returns the authenticated account id.
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok && id > 0
}

// GetSessionTokenFromContext returns the bearer token the request was
// authenticated with.
func GetSessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}

// WithSession stores the account id and the token that resolved to it.
func WithSession(ctx context.Context, id int, token string) context.Context {
	return context.WithValue(context.WithValue(ctx, userIDKey, id), tokenKey, token)
}

// UserID is GetUserIDFromContext for a request.
func UserID(r *http.Request) (int, bool) {
	return GetUserIDFromContext(r.Context())
}
