package trackers

import (
	"log"

	"github.com/tradepost/funcircle/pkg/pubsub"
)

// Tracker is a interface for tracking Events
type Tracker interface {

	// CanTrack returns whether tracker tracks a specific event.
	CanTrack(event *pubsub.Event) bool

	// Track tracks an event, returns an error if failed.
	Track(event *pubsub.Event) error
}

// Run feeds events to every tracker that can track them until the channel
// closes, and returns the number of failed tracks.
func Run(events <-chan *pubsub.Event, trackers ...Tracker) int {
	failed := 0
	for event := range events {
		for _, tracker := range trackers {
			if !tracker.CanTrack(event) {
				continue
			}

			err := tracker.Track(event)
			if err != nil {
				failed++
				log.Printf("tracker.Track err %v\n", err)
			}
		}
	}

	return failed
}
