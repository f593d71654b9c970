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

func TestFriendAcceptedNotificationHandler_Build(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	handler := handlers.NewFriendAcceptedNotificationHandler(users.NewUserBackend(db))

	if handler.Type() != pubsub.EventTypeFriendAccepted {
		t.Fatalf("unexpected type %d", handler.Type())
	}

	raw := pubsub.NewFriendAcceptedEvent(7, 1, 2)
	event, err := getRawEvent(&raw)
	if err != nil {
		t.Fatal(err)
	}

	mock.
		ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs(2).
		WillReturnRows(mock.NewRows(userColumns).AddRow(2, "bar", "bar", "", "", false, time.Now()))

	n, err := handler.Build(context.Background(), event)
	if err != nil {
		t.Fatal(err)
	}

	if len(n) != 1 || n[0].UserID != 1 || n[0].Type != notifications.TypeFriendAccepted {
		t.Fatalf("unexpected notifications %v", n)
	}

	if n[0].Message != "bar accepted your friend request" {
		t.Fatalf("unexpected message %s", n[0].Message)
	}
}
