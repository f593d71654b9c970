// Package sessions resolves bearer tokens to account ids. Tokens are issued
// by the marketplace login flow and mirrored into redis.
package sessions

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type SessionManager struct {
	db *redis.Client
}

func NewSessionManager(db *redis.Client) *SessionManager {
	return &SessionManager{db: db}
}

// NewSession stores a session for a user, an expiration of 0 never expires.
func (sm *SessionManager) NewSession(id string, user int, expiration time.Duration) error {
	return sm.db.Set(sm.db.Context(), generateSessionKey(id), strconv.Itoa(user), expiration).Err()
}

func (sm *SessionManager) GetUserIDForSession(id string) (int, error) {
	str, err := sm.db.Get(sm.db.Context(), generateSessionKey(id)).Result()
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(str)
}

func (sm *SessionManager) CloseSession(id string) error {
	return sm.db.Del(sm.db.Context(), generateSessionKey(id)).Err()
}

func generateSessionKey(id string) string {
	return fmt.Sprintf("session_%s", id)
}
