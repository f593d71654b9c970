package notifications

import (
	"fmt"
	"time"

	"github.com/tradepost/funcircle/pkg/redis"
)

// Events are delivered at least once, a notification about the same entity
// is stored once per cooldown.
var notificationCooldown = 24 * time.Hour

type Limiter struct {
	timeouts *redis.TimeoutStore
}

func NewLimiter(timeouts *redis.TimeoutStore) *Limiter {
	return &Limiter{
		timeouts: timeouts,
	}
}

// ShouldSendNotification claims the notification's slot and reports whether
// it may be stored. Errors from redis let the notification through.
func (l *Limiter) ShouldSendNotification(notification *Notification) bool {
	ok, err := l.timeouts.Claim(limiterKey(notification), notificationCooldown)
	if err != nil {
		return true
	}

	return ok
}

func limiterKey(notification *Notification) string {
	return fmt.Sprintf(
		"notifications_limit_%s_%d_%v",
		notification.Type,
		notification.UserID,
		notification.Arguments["id"],
	)
}
