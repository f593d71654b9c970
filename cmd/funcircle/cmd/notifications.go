package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/notifications/handlers"
	"github.com/tradepost/funcircle/pkg/notifications/worker"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/redis"
	"github.com/tradepost/funcircle/pkg/sql"
	"github.com/tradepost/funcircle/pkg/users"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "runs the notification worker",
	RunE:  runNotifications,
}

func runNotifications(*cobra.Command, []string) error {
	rdb, err := redis.Connect(context.Background(), config.Redis)
	if err != nil {
		return err
	}

	queue := pubsub.NewQueue(rdb)
	defer queue.Close()

	db, err := sql.Open(config.DB)
	if err != nil {
		return errors.Wrap(err, "failed to open db")
	}

	userBackend := users.NewUserBackend(db)

	events, err := queue.Subscribe(pubsub.FriendsTopic, pubsub.StoriesTopic)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe")
	}

	workers := config.Notifications.Workers
	if workers <= 0 {
		workers = 5
	}

	dispatch := worker.NewDispatcher(workers, &worker.Config{
		Limiter: notifications.NewLimiter(redis.NewTimeoutStore(rdb)),
		Store:   notifications.NewStorage(rdb),
	})
	dispatch.Run()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatch.Consume(
		ctx,
		events,
		handlers.NewFriendRequestNotificationHandler(userBackend),
		handlers.NewFriendAcceptedNotificationHandler(userBackend),
		handlers.NewStoryMentionNotificationHandler(userBackend),
	)

	return nil
}
