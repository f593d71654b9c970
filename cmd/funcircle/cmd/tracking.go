package cmd

import (
	"context"
	"log"

	"github.com/dukex/mixpanel"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/redis"
	"github.com/tradepost/funcircle/pkg/tracking/trackers"
)

var trackingCmd = &cobra.Command{
	Use:   "tracking",
	Short: "forwards events to mixpanel",
	RunE:  runTracking,
}

func runTracking(*cobra.Command, []string) error {
	client := mixpanel.New(config.Mixpanel.Token, config.Mixpanel.URL)
	tracker := trackers.NewMixpanelTracker(client)

	rdb, err := redis.Connect(context.Background(), config.Redis)
	if err != nil {
		return err
	}

	queue := pubsub.NewQueue(rdb)
	defer queue.Close()

	events, err := queue.Subscribe(pubsub.FriendsTopic, pubsub.StoriesTopic, pubsub.MessagesTopic)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe")
	}

	failed := trackers.Run(events, tracker)
	log.Printf("event stream closed, %d events failed to track\n", failed)

	return nil
}
