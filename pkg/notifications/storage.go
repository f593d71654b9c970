package notifications

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// MaxStored is the number of notifications kept per user.
const MaxStored = 50

const placeholder = "val"

type Storage struct {
	rdb *redis.Client
}

func NewStorage(rdb *redis.Client) *Storage {
	return &Storage{
		rdb: rdb,
	}
}

func (s *Storage) Store(notification *Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	key := notificationListKey(notification.UserID)

	pipe := s.rdb.TxPipeline()
	pipe.LPush(s.rdb.Context(), key, string(data))
	pipe.LTrim(s.rdb.Context(), key, 0, MaxStored-1)
	pipe.Set(s.rdb.Context(), hasNewNotificationsKey(notification.UserID), placeholder, 0)

	_, err = pipe.Exec(s.rdb.Context())
	if err != nil {
		return errors.Wrap(err, "failed to store notification")
	}

	return nil
}

// GetNotifications returns the stored notifications for a user, newest first.
func (s *Storage) GetNotifications(user int) ([]*Notification, error) {
	data, err := s.rdb.LRange(s.rdb.Context(), notificationListKey(user), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]*Notification, 0)
	for _, item := range data {
		n := &Notification{}
		err := json.Unmarshal([]byte(item), n)
		if err != nil {
			log.Printf("failed to unmarshal notification err: %v\n", err)
			continue
		}

		notifications = append(notifications, n)
	}

	return notifications, nil
}

func (s *Storage) MarkNotificationsViewed(user int) error {
	return s.rdb.Del(s.rdb.Context(), hasNewNotificationsKey(user)).Err()
}

func (s *Storage) HasNewNotifications(user int) bool {
	res, err := s.rdb.Get(s.rdb.Context(), hasNewNotificationsKey(user)).Result()
	if err != nil {
		return false
	}

	return res == placeholder
}

func hasNewNotificationsKey(user int) string {
	return fmt.Sprintf("has_new_notifications_%d", user)
}

func notificationListKey(user int) string {
	return fmt.Sprintf("notifications_%d", user)
}
