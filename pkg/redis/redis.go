// Package redis contains helper functions for working with redis.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/tradepost/funcircle/pkg/conf"
)

// NewRedis returns a client for config. TLS is on unless disabled.
func NewRedis(config conf.RedisConf) *redis.Client {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.Database,
		PoolSize: config.PoolSize,
	}

	if !config.DisableTLS {
		opts.TLSConfig = &tls.Config{ServerName: config.Host}
	}

	return redis.NewClient(opts)
}

// Connect returns a client that has answered a ping.
func Connect(ctx context.Context, config conf.RedisConf) (*redis.Client, error) {
	rdb := NewRedis(config)

	err := rdb.Ping(ctx).Err()
	if err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s:%d", config.Host, config.Port)
	}

	return rdb, nil
}
