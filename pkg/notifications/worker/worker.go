package worker

import (
	"log"

	"github.com/tradepost/funcircle/pkg/notifications"
)

type Config struct {
	Limiter *notifications.Limiter
	Store   *notifications.Storage
}

type Worker struct {
	Work        chan Job
	WorkerQueue chan chan Job
	QuitChan    chan bool

	config *Config
}

func NewWorker(queue chan chan Job, config *Config) *Worker {
	return &Worker{
		Work:        make(chan Job),
		WorkerQueue: queue,
		QuitChan:    make(chan bool),
		config:      config,
	}
}

func (w *Worker) Start() {
	go func() {
		for {
			w.WorkerQueue <- w.Work

			select {
			case job := <-w.Work:
				w.handle(job)
			case <-w.QuitChan:
				return
			}
		}
	}()
}

func (w *Worker) Stop() {
	go func() {
		w.QuitChan <- true
	}()
}

func (w *Worker) handle(job Job) {
	if !w.config.Limiter.ShouldSendNotification(job.Notification) {
		return
	}

	err := w.config.Store.Store(job.Notification)
	if err != nil {
		log.Printf("notificationStorage.Store err: %v\n", err)
	}
}
