package notifications_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tradepost/funcircle/pkg/http/middlewares"
	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/sessions"
)

func TestEndpoint_List(t *testing.T) {
	rdb := newClient(t)

	sm := sessions.NewSessionManager(rdb)
	auth := "12345"
	err := sm.NewSession(auth, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	storage := notifications.NewStorage(rdb)
	err = storage.Store(notifications.NewNotification(1, notifications.TypeFriendRequest, "New friend request", "foo sent you a friend request", nil))
	if err != nil {
		t.Fatal(err)
	}

	endpoint := notifications.NewEndpoint(storage, middlewares.NewAuthenticationMiddleware(sm))

	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", auth)

	rr := httptest.NewRecorder()
	endpoint.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d actual %d", http.StatusOK, rr.Code)
	}

	var resp struct {
		HasNew        bool                          `json:"has_new"`
		Notifications []*notifications.Notification `json:"notifications"`
	}

	err = json.Unmarshal(rr.Body.Bytes(), &resp)
	if err != nil {
		t.Fatal(err)
	}

	if !resp.HasNew || len(resp.Notifications) != 1 || resp.Notifications[0].UserID != 1 {
		t.Fatalf("unexpected response %s", rr.Body.String())
	}

	if storage.HasNewNotifications(1) {
		t.Fatal("expected notifications to be marked viewed")
	}
}
