package friends_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/tradepost/funcircle/pkg/friends"
	"github.com/tradepost/funcircle/pkg/http/middlewares"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/sessions"
	"github.com/tradepost/funcircle/pkg/suggestions"
	"github.com/tradepost/funcircle/pkg/users/types"
)

type publisher struct {
	events []pubsub.Event
}

func (p *publisher) Publish(_ pubsub.Topic, event pubsub.Event) error {
	p.events = append(p.events, event)
	return nil
}

type suggester struct {
	err error
}

func (s *suggester) Suggest(context.Context, int) ([]*suggestions.Suggestion, error) {
	if s.err != nil {
		return []*suggestions.Suggestion{}, s.err
	}

	return []*suggestions.Suggestion{{User: &types.User{ID: 9}, Score: 30, Reason: suggestions.ReasonMutualFriends}}, nil
}

func setupEndpoint(t *testing.T) (*friends.Endpoint, sqlmock.Sqlmock, *publisher, string) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	sm := sessions.NewSessionManager(rdb)
	mw := middlewares.NewAuthenticationMiddleware(sm)

	auth := "12345"
	err = sm.NewSession(auth, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	queue := &publisher{}
	backend := friends.NewBackend(db)
	endpoint := friends.NewEndpoint(backend, &searcher{}, &suggester{}, queue, mw, time.Second)

	return endpoint, mock, queue, auth
}

func TestEndpoint_SendRequest(t *testing.T) {
	endpoint, mock, queue, auth := setupEndpoint(t)

	mock.ExpectPrepare("^INSERT INTO friend_edges").
		ExpectQuery().
		WithArgs(1, 2, sqlmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(3))

	req, err := http.NewRequest("POST", "/requests", strings.NewReader(`{"user": 2}`))
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", auth)

	rr := httptest.NewRecorder()
	endpoint.Router().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}

	if len(queue.events) != 1 || queue.events[0].Type != pubsub.EventTypeFriendRequest {
		t.Fatalf("expected friend request event got %v", queue.events)
	}
}

func TestEndpoint_SendRequest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		setup  func(mock sqlmock.Sqlmock)
		status int
	}{
		{
			name:   "invalid body",
			body:   `{"user": 0}`,
			setup:  func(mock sqlmock.Sqlmock) {},
			status: http.StatusBadRequest,
		},
		{
			name:   "self",
			body:   `{"user": 1}`,
			setup:  func(mock sqlmock.Sqlmock) {},
			status: http.StatusBadRequest,
		},
		{
			name: "duplicate",
			body: `{"user": 2}`,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectPrepare("^INSERT INTO friend_edges").
					ExpectQuery().
					WillReturnRows(mock.NewRows([]string{"id"}))
			},
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, mock, queue, auth := setupEndpoint(t)
			tt.setup(mock)

			req, err := http.NewRequest("POST", "/requests", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}

			req.Header.Set("Authorization", auth)

			rr := httptest.NewRecorder()
			endpoint.Router().ServeHTTP(rr, req)

			if status := rr.Code; status != tt.status {
				t.Fatalf("handler returned wrong status code: got %v want %v", status, tt.status)
			}

			if len(queue.events) != 0 {
				t.Fatalf("unexpected events %v", queue.events)
			}
		})
	}
}

func TestEndpoint_Accept_NotAuthorized(t *testing.T) {
	endpoint, mock, queue, auth := setupEndpoint(t)

	now := time.Now()
	mock.ExpectPrepare("^UPDATE friend_edges SET status").
		ExpectQuery().
		WillReturnRows(mock.NewRows(edgeColumns))

	mock.ExpectPrepare("^SELECT id, requester_id").
		ExpectQuery().
		WithArgs(4).
		WillReturnRows(mock.NewRows(edgeColumns).AddRow(4, 1, 2, "pending", now, now))

	req, err := http.NewRequest("POST", "/requests/4/accept", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", auth)

	rr := httptest.NewRecorder()
	endpoint.Router().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusForbidden {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusForbidden)
	}

	if len(queue.events) != 0 {
		t.Fatalf("unexpected events %v", queue.events)
	}
}

func TestEndpoint_Remove(t *testing.T) {
	endpoint, mock, queue, auth := setupEndpoint(t)

	now := time.Now()
	mock.ExpectPrepare("^DELETE FROM friend_edges").
		ExpectQuery().
		WithArgs(4, 1).
		WillReturnRows(mock.NewRows(edgeColumns).AddRow(4, 2, 1, "accepted", now, now))

	req, err := http.NewRequest("DELETE", "/4", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", auth)

	rr := httptest.NewRecorder()
	endpoint.Router().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	if len(queue.events) != 1 || queue.events[0].Type != pubsub.EventTypeFriendRemoved {
		t.Fatalf("expected removed event got %v", queue.events)
	}
}

func TestEndpoint_Unauthorized(t *testing.T) {
	endpoint, _, _, _ := setupEndpoint(t)

	req, err := http.NewRequest("GET", "/", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	endpoint.Router().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
}

func TestEndpoint_Suggestions(t *testing.T) {
	endpoint, _, _, auth := setupEndpoint(t)

	req, err := http.NewRequest("GET", "/suggestions", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", auth)

	rr := httptest.NewRecorder()
	endpoint.Router().ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var result []*suggestions.Suggestion
	err = json.NewDecoder(rr.Body).Decode(&result)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 1 || result[0].User.ID != 9 {
		t.Fatalf("unexpected suggestions %v", result)
	}
}
