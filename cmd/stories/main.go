package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tradepost/funcircle/pkg/conf"
	"github.com/tradepost/funcircle/pkg/images"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/redis"
	"github.com/tradepost/funcircle/pkg/sql"
	"github.com/tradepost/funcircle/pkg/stories"
)

type Conf struct {
	Data    conf.DataConf     `mapstructure:"data"`
	DB      conf.PostgresConf `mapstructure:"db"`
	Redis   conf.RedisConf    `mapstructure:"redis"`
	Sweeper struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"sweeper"`
}

var (
	file      string
	interval  time.Duration
	reconcile bool
)

func parse() (*Conf, error) {
	flag.StringVar(&file, "c", "config.toml", "config file")
	flag.DurationVar(&interval, "interval", 0, "sweep repeatedly at this interval, 0 sweeps once")
	flag.BoolVar(&reconcile, "reconcile", false, "recompute reaction counters after each sweep")
	flag.Parse()

	err := conf.LoadEnv(".env")
	if err != nil {
		return nil, err
	}

	config := &Conf{}
	err = conf.Load(file, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

func main() {
	config, err := parse()
	if err != nil {
		log.Fatalf("failed to parse config: %s", err)
	}

	db, err := sql.Open(config.DB)
	if err != nil {
		log.Fatalf("failed to open db: %s", err)
	}

	rdb, err := redis.Connect(context.Background(), config.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %s", err)
	}

	queue := pubsub.NewQueue(rdb)
	defer queue.Close()

	backend := stories.NewBackend(db)
	sweeper := stories.NewSweeper(
		backend,
		images.NewImagesBackend(config.Data.Path, config.Data.BaseURL),
		queue,
		config.Sweeper.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run(ctx, sweeper, backend)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run(ctx, sweeper, backend)
		}
	}
}

func run(ctx context.Context, sweeper *stories.Sweeper, backend *stories.Backend) {
	result, err := sweeper.Sweep(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("sweeper.Sweep err: %v\n", err)
		return
	}

	log.Printf("swept %d stories and %d images\n", result.DeletedStories, result.DeletedImages)

	if !reconcile {
		return
	}

	n, err := backend.ReconcileReactionCounts(ctx)
	if err != nil {
		log.Printf("backend.ReconcileReactionCounts err: %v\n", err)
		return
	}

	if n > 0 {
		log.Printf("reconciled reaction counters on %d stories\n", n)
	}
}
