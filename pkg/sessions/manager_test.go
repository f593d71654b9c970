package sessions_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/tradepost/funcircle/pkg/sessions"
)

func TestSessionManager(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	sm := sessions.NewSessionManager(redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	}))

	err = sm.NewSession("abc", 12, 0)
	if err != nil {
		t.Fatal(err)
	}

	id, err := sm.GetUserIDForSession("abc")
	if err != nil {
		t.Fatal(err)
	}

	if id != 12 {
		t.Fatalf("expected 12 actual %d", id)
	}

	err = sm.CloseSession("abc")
	if err != nil {
		t.Fatal(err)
	}

	_, err = sm.GetUserIDForSession("abc")
	if err == nil {
		t.Fatal("expected closed session to be gone")
	}
}
