package worker_test

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/notifications/handlers"
	"github.com/tradepost/funcircle/pkg/notifications/worker"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/redis"
	"github.com/tradepost/funcircle/pkg/users/types"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

type accounts struct{}

func (accounts) FindByID(_ context.Context, id int) (*types.User, error) {
	return &types.User{ID: id, DisplayName: "foo"}, nil
}

func setup(t *testing.T) (*worker.Config, *notifications.Storage) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	store := notifications.NewStorage(rdb)
	config := &worker.Config{
		Limiter: notifications.NewLimiter(redis.NewTimeoutStore(rdb)),
		Store:   store,
	}

	return config, store
}

func TestWorker(t *testing.T) {
	config, store := setup(t)

	pool := make(chan chan worker.Job)
	w := worker.NewWorker(pool, config)
	w.Start()

	n := notifications.NewNotification(2, notifications.TypeFriendRequest, "title", "message", map[string]interface{}{"id": 7})

	for i := 0; i < 2; i++ {
		queue := <-pool
		queue <- worker.Job{Notification: n}
	}

	<-pool
	w.Stop()

	stored, err := store.GetNotifications(2)
	if err != nil {
		t.Fatal(err)
	}

	if len(stored) != 1 {
		t.Fatalf("expected duplicate to be limited, stored %d", len(stored))
	}

	if stored[0].ID != n.ID || !store.HasNewNotifications(2) {
		t.Fatalf("unexpected notification %v", stored[0])
	}
}

func TestDispatcher_Consume(t *testing.T) {
	config, store := setup(t)

	dispatcher := worker.NewDispatcher(2, config)
	dispatcher.Run()

	events := make(chan *pubsub.Event, 3)

	request := pubsub.NewFriendRequestEvent(7, 1, 2)
	mention := pubsub.NewStoryEvent("abc", 1, []int{3})
	message := pubsub.NewMessageEvent(1, 1, 1)

	events <- &request
	events <- &mention
	events <- &message
	close(events)

	dispatcher.Consume(
		context.Background(),
		events,
		handlers.NewFriendRequestNotificationHandler(accounts{}),
		handlers.NewStoryMentionNotificationHandler(accounts{}),
	)

	deadline := time.Now().Add(2 * time.Second)
	for {
		two, _ := store.GetNotifications(2)
		three, _ := store.GetNotifications(3)
		if len(two) == 1 && len(three) == 1 {
			if two[0].Type != notifications.TypeFriendRequest || three[0].Type != notifications.TypeStoryMention {
				t.Fatalf("unexpected notifications %v %v", two[0], three[0])
			}

			return
		}

		if time.Now().After(deadline) {
			t.Fatalf("notifications not stored, got %d and %d", len(two), len(three))
		}

		time.Sleep(10 * time.Millisecond)
	}
}
