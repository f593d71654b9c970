package redis_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/tradepost/funcircle/pkg/conf"
	"github.com/tradepost/funcircle/pkg/redis"
)

func newTimeoutStore(t *testing.T) (*redis.TimeoutStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatal(err)
	}

	rdb := redis.NewRedis(conf.RedisConf{
		Port:       port,
		Host:       mr.Host(),
		DisableTLS: true,
	})

	return redis.NewTimeoutStore(rdb), mr
}

func TestTimeoutStore(t *testing.T) {
	ts, mr := newTimeoutStore(t)
	defer mr.Close()

	key := "foo"

	if ts.IsOnTimeout(key) {
		t.Fatal("should not be on timeout")
	}

	err := ts.SetTimeout(key, 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if !ts.IsOnTimeout(key) {
		t.Fatal("key is on timeout")
	}

	mr.FastForward(6 * time.Minute)

	if ts.IsOnTimeout(key) {
		t.Fatal("timeout should have expired")
	}
}

func TestTimeoutStore_Claim(t *testing.T) {
	ts, mr := newTimeoutStore(t)
	defer mr.Close()

	ok, err := ts.Claim("bar", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if !ok {
		t.Fatal("first claim should succeed")
	}

	ok, err = ts.Claim("bar", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if ok {
		t.Fatal("second claim should fail")
	}
}
