package stories

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"

	"github.com/tradepost/funcircle/pkg/pubsub"
)

//go:generate mockgen -destination=../../mocks/media_store_mock.go -package=mocks github.com/tradepost/funcircle/pkg/stories MediaStore

// MediaStore removes uploaded media by reference.
type MediaStore interface {
	Remove(reference string) error
}

type SweepResult struct {
	DeletedStories int       `json:"deleted_stories"`
	DeletedImages  int       `json:"deleted_images"`
	Timestamp      time.Time `json:"timestamp"`
}

// Sweeper purges expired stories and their media. Every deleted story is
// announced on queue when one is set.
type Sweeper struct {
	backend *Backend
	media   MediaStore
	queue   pubsub.Publisher
	workers int
}

func NewSweeper(backend *Backend, media MediaStore, queue pubsub.Publisher, workers int) *Sweeper {
	if workers <= 0 {
		workers = 1
	}

	return &Sweeper{
		backend: backend,
		media:   media,
		queue:   queue,
		workers: workers,
	}
}

// Sweep deletes every story expired at now. Media that fails to delete is
// logged and skipped, as is any story whose row cannot be deleted.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	expired, err := s.backend.SweepExpired(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list expired stories")
	}

	result := &SweepResult{Timestamp: now}
	if len(expired) == 0 {
		return result, nil
	}

	var images int64
	pool := workerpool.New(s.workers)

	for _, story := range expired {
		for _, image := range story.Images {
			id, image := story.ID, image
			pool.Submit(func() {
				err := s.media.Remove(image)
				if err != nil {
					log.Printf("media.Remove story %s err: %v\n", id, err)
					return
				}

				atomic.AddInt64(&images, 1)
			})
		}
	}

	pool.StopWait()
	result.DeletedImages = int(images)

	for _, story := range expired {
		deleted, err := s.backend.Delete(ctx, story.ID, SystemActor)
		if err == ErrNotFound {
			continue
		}

		if err != nil {
			log.Printf("backend.Delete story %s err: %v\n", story.ID, err)
			continue
		}

		result.DeletedStories++
		s.publish(pubsub.NewStoryDeletedEvent(deleted.ID, deleted.AuthorID))
	}

	return result, nil
}

func (s *Sweeper) publish(event pubsub.Event) {
	if s.queue == nil {
		return
	}

	err := s.queue.Publish(pubsub.StoriesTopic, event)
	if err != nil {
		log.Printf("queue.Publish err: %v\n", err)
	}
}
