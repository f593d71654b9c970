package worker

import (
	"context"
	"log"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/notifications/handlers"
	"github.com/tradepost/funcircle/pkg/pubsub"
)

type Job struct {
	Notification *notifications.Notification
}

type Dispatcher struct {
	jobs chan Job
	pool chan chan Job

	maxWorkers int

	config *Config
}

func NewDispatcher(maxWorkers int, config *Config) *Dispatcher {
	return &Dispatcher{
		jobs:       make(chan Job),
		pool:       make(chan chan Job),
		maxWorkers: maxWorkers,
		config:     config,
	}
}

func (d *Dispatcher) Run() {
	// starting n number of workers
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(d.pool, d.config)
		worker.Start()
	}

	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for job := range d.jobs {
		go func(job Job) {
			// blocks until a worker is idle
			jobChannel := <-d.pool
			jobChannel <- job
		}(job)
	}
}

func (d *Dispatcher) Dispatch(notification *notifications.Notification) {
	go func() {
		d.jobs <- Job{Notification: notification}
	}()
}

// Consume builds notifications for every event that has a handler and
// dispatches them, until the context is done or the events channel closes.
func (d *Dispatcher) Consume(ctx context.Context, events <-chan *pubsub.Event, hs ...handlers.Handler) {
	byType := make(map[pubsub.EventType]handlers.Handler)
	for _, h := range hs {
		byType[h.Type()] = h
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			handler, ok := byType[event.Type]
			if !ok {
				continue
			}

			list, err := handler.Build(ctx, event)
			if err != nil {
				log.Printf("handler.Build err: %v\n", err)
				continue
			}

			for _, n := range list {
				d.Dispatch(n)
			}
		}
	}
}
