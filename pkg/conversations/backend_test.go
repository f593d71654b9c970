package conversations_test

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/tradepost/funcircle/pkg/conversations"
)

var conversationColumns = []string{"id", "participant_one", "participant_two", "last_message_at", "created_at"}

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

func expectConversation(mock sqlmock.Sqlmock, id, one, two int) {
	mock.ExpectPrepare("^SELECT id, participant_one, participant_two, last_message_at, created_at FROM conversations WHERE id").
		ExpectQuery().
		WithArgs(id).
		WillReturnRows(mock.NewRows(conversationColumns).AddRow(id, one, two, nil, time.Now()))
}

func TestBackend_GetOrCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectPrepare("^INSERT INTO conversations").
		ExpectExec().
		WithArgs(2, 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("^SELECT id, participant_one").
		ExpectQuery().
		WithArgs(2, 5).
		WillReturnRows(mock.NewRows(conversationColumns).AddRow(1, 2, 5, now, now))

	conversation, err := conversations.NewBackend(db).GetOrCreate(context.Background(), 5, 2)
	if err != nil {
		t.Fatal(err)
	}

	if conversation.ParticipantOne != 2 || conversation.ParticipantTwo != 5 || conversation.LastMessageAt == nil {
		t.Fatalf("unexpected conversation %+v", conversation)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBackend_GetOrCreate_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	backend := conversations.NewBackend(db)

	_, err = backend.GetOrCreate(context.Background(), 1, 1)
	if err != conversations.ErrSelfReference {
		t.Fatalf("expected %v got %v", conversations.ErrSelfReference, err)
	}

	mock.ExpectPrepare("^INSERT INTO conversations").
		ExpectExec().
		WillReturnError(&pq.Error{Code: "23503"})

	_, err = backend.GetOrCreate(context.Background(), 1, 99)
	if err != conversations.ErrUnknownUser {
		t.Fatalf("expected %v got %v", conversations.ErrUnknownUser, err)
	}
}

func TestBackend_Send(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("^SELECT id, participant_one(.+)FOR UPDATE").
		WithArgs(1).
		WillReturnRows(mock.NewRows(conversationColumns).AddRow(1, 2, 5, nil, time.Now()))
	mock.ExpectQuery("^INSERT INTO messages").
		WithArgs(1, 2, "hello", sqlmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(40))
	mock.ExpectExec("^UPDATE conversations SET last_message_at").
		WithArgs(1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	message, err := conversations.NewBackend(db).Send(context.Background(), 1, 2, " hello ")
	if err != nil {
		t.Fatal(err)
	}

	if message.ID != 40 || message.Content != "hello" || message.IsRead {
		t.Fatalf("unexpected message %+v", message)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBackend_Send_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		setup   func(mock sqlmock.Sqlmock)
		err     error
	}{
		{
			name:    "empty",
			content: "  \n",
			setup:   func(mock sqlmock.Sqlmock) {},
			err:     conversations.ErrEmptyContent,
		},
		{
			name:    "missing",
			content: "hi",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("^SELECT id, participant_one").WillReturnRows(mock.NewRows(conversationColumns))
				mock.ExpectRollback()
			},
			err: conversations.ErrNotFound,
		},
		{
			name:    "outsider",
			content: "hi",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery("^SELECT id, participant_one").
					WillReturnRows(mock.NewRows(conversationColumns).AddRow(1, 3, 5, nil, time.Now()))
				mock.ExpectRollback()
			},
			err: conversations.ErrNotAParticipant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer db.Close()

			tt.setup(mock)

			_, err = conversations.NewBackend(db).Send(context.Background(), 1, 2, tt.content)
			if err != tt.err {
				t.Fatalf("expected %v got %v", tt.err, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestBackend_MarkRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	expectConversation(mock, 1, 2, 5)
	mock.ExpectPrepare("^UPDATE messages SET is_read = true").
		ExpectExec().
		WithArgs(1, 5).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := conversations.NewBackend(db).MarkRead(context.Background(), 1, 5)
	if err != nil {
		t.Fatal(err)
	}

	if n != 3 {
		t.Fatalf("expected 3 got %d", n)
	}
}

func TestBackend_UnreadCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	backend := conversations.NewBackend(db)

	expectConversation(mock, 1, 2, 5)
	mock.ExpectPrepare("^SELECT COUNT").
		ExpectQuery().
		WithArgs(1, 2).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(4))

	count, err := backend.UnreadCount(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}

	if count != 4 {
		t.Fatalf("expected 4 got %d", count)
	}

	expectConversation(mock, 1, 2, 5)

	_, err = backend.UnreadCount(context.Background(), 1, 7)
	if err != conversations.ErrNotAParticipant {
		t.Fatalf("expected %v got %v", conversations.ErrNotAParticipant, err)
	}
}

func TestBackend_ListConversations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now()
	long := strings.Repeat("é", 100)

	mock.ExpectPrepare("^SELECT conversations.id").
		ExpectQuery().
		WithArgs(2).
		WillReturnRows(mock.NewRows([]string{
			"id", "participant_one", "participant_two", "last_message_at", "created_at", "unread", "last",
			"uid", "display_name", "username", "image", "location", "verified", "user_created_at",
		}).
			AddRow(3, 2, 7, now, now, 2, long, 7, "Gina", "gina", "", nil, false, now).
			AddRow(1, 1, 2, nil, now, 0, "", 1, "Alice", "alice", "", "Paris", true, now))

	result, err := conversations.NewBackend(db).ListConversations(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 conversations got %d", len(result))
	}

	if len([]rune(result[0].LastMessage)) != conversations.SnippetLength || result[0].UnreadCount != 2 || result[0].Other.ID != 7 {
		t.Fatalf("unexpected conversation %+v", result[0])
	}

	if result[1].LastMessageAt != nil || result[1].Other.Location != "Paris" {
		t.Fatalf("unexpected conversation %+v", result[1])
	}
}

func TestBackend_ListMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now()
	expectConversation(mock, 1, 2, 5)
	mock.ExpectPrepare("^SELECT id, conversation_id, sender_id, content, is_read, created_at FROM").
		ExpectQuery().
		WithArgs(1, 0, conversations.MaxPageSize).
		WillReturnRows(mock.NewRows([]string{"id", "conversation_id", "sender_id", "content", "is_read", "created_at"}).
			AddRow(1, 1, 2, "a", true, now).
			AddRow(2, 1, 5, "b", false, now))

	result, err := conversations.NewBackend(db).ListMessages(context.Background(), 1, 2, 500, 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 2 || result[0].ID != 1 || result[1].ID != 2 {
		t.Fatalf("unexpected messages %v", result)
	}
}
