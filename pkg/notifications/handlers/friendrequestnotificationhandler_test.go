package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tradepost/funcircle/pkg/notifications"
	"github.com/tradepost/funcircle/pkg/notifications/handlers"
	"github.com/tradepost/funcircle/pkg/pubsub"
	"github.com/tradepost/funcircle/pkg/users"
)

func TestFriendRequestNotificationHandler_Build(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	handler := handlers.NewFriendRequestNotificationHandler(users.NewUserBackend(db))

	raw := pubsub.NewFriendRequestEvent(7, 1, 2)
	event, err := getRawEvent(&raw)
	if err != nil {
		t.Fatal(err)
	}

	mock.
		ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs(1).
		WillReturnRows(mock.NewRows(userColumns).AddRow(1, "foo", "foo", "", "", false, time.Now()))

	n, err := handler.Build(context.Background(), event)
	if err != nil {
		t.Fatal(err)
	}

	if len(n) != 1 {
		t.Fatalf("expected 1 notification actual %d", len(n))
	}

	if n[0].UserID != 2 || n[0].Type != notifications.TypeFriendRequest {
		t.Fatalf("unexpected notification %v", n[0])
	}

	if n[0].Message != "foo sent you a friend request" {
		t.Fatalf("unexpected message %s", n[0].Message)
	}

	if n[0].ID == "" {
		t.Fatal("expected id")
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Fatal(err)
	}
}

func TestFriendRequestNotificationHandler_Build_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	handler := handlers.NewFriendRequestNotificationHandler(users.NewUserBackend(db))

	raw := pubsub.NewFriendRequestEvent(7, 1, 2)
	event, err := getRawEvent(&raw)
	if err != nil {
		t.Fatal(err)
	}

	mock.
		ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs(1).
		WillReturnRows(mock.NewRows(userColumns))

	_, err = handler.Build(context.Background(), event)
	if err != users.ErrNotFound {
		t.Fatalf("expected %v actual %v", users.ErrNotFound, err)
	}
}
