package redis

import (
	"time"

	"github.com/go-redis/redis/v8"
)

const timeout = "timeout"

// TimeoutStore marks keys as "on timeout" for a fixed duration.
type TimeoutStore struct {
	rdb *redis.Client
}

func NewTimeoutStore(rdb *redis.Client) *TimeoutStore {
	return &TimeoutStore{rdb: rdb}
}

func (t *TimeoutStore) SetTimeout(key string, expiration time.Duration) error {
	return t.rdb.Set(t.rdb.Context(), key, timeout, expiration).Err()
}

// Claim puts the key on timeout only if it is not already, and reports
// whether this call was the one that set it.
func (t *TimeoutStore) Claim(key string, expiration time.Duration) (bool, error) {
	return t.rdb.SetNX(t.rdb.Context(), key, timeout, expiration).Result()
}

func (t *TimeoutStore) IsOnTimeout(key string) bool {
	val, err := t.rdb.Get(t.rdb.Context(), key).Result()
	if err != nil {
		return false
	}

	return val == timeout
}
