package friends_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tradepost/funcircle/pkg/friends"
	"github.com/tradepost/funcircle/pkg/users/types"
)

type searcher struct {
	users []*types.User
	limit int
	calls int
}

func (s *searcher) Search(_ context.Context, _ string, limit int) ([]*types.User, error) {
	s.calls++
	s.limit = limit
	return s.users, nil
}

func TestBackend_SearchCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectPrepare("^SELECT CASE WHEN requester_id").
		ExpectQuery().
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(2).AddRow(3))

	s := &searcher{users: []*types.User{{ID: 1}, {ID: 2}, {ID: 4}, {ID: 3}, {ID: 5}, {ID: 6}}}

	result, err := friends.NewBackend(db).SearchCandidates(context.Background(), s, " jo ", 1, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 2 || result[0].ID != 4 || result[1].ID != 5 {
		t.Fatalf("unexpected result %v", result)
	}

	if s.limit != 5 {
		t.Fatalf("expected search limit 5 got %d", s.limit)
	}
}

func TestBackend_SearchCandidates_Empty(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := &searcher{}
	result, err := friends.NewBackend(db).SearchCandidates(context.Background(), s, "   ", 1, 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(result) != 0 || s.calls != 0 {
		t.Fatalf("expected no search got %d calls", s.calls)
	}
}

func TestBackend_SearchCandidates_LimitBounded(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectPrepare("^SELECT CASE WHEN requester_id").
		ExpectQuery().
		WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"id"}))

	s := &searcher{}
	_, err = friends.NewBackend(db).SearchCandidates(context.Background(), s, "a", 1, 500)
	if err != nil {
		t.Fatal(err)
	}

	if s.limit != friends.MaxSearchLimit+1 {
		t.Fatalf("expected search limit %d got %d", friends.MaxSearchLimit+1, s.limit)
	}
}
