// Package users reads marketplace accounts. Accounts are owned by the
// marketplace; nothing in this package writes them.
package users

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/tradepost/funcircle/pkg/users/types"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("user not found")

// Columns lists the account columns read by Scan, qualified by table.
const Columns = "users.id, users.display_name, users.username, users.image, users.location, users.verified, users.created_at"

const selectUser = "SELECT " + Columns + " FROM users"

type UserBackend struct {
	db *sql.DB
}

func NewUserBackend(db *sql.DB) *UserBackend {
	return &UserBackend{
		db: db,
	}
}

func (ub *UserBackend) FindByID(ctx context.Context, id int) (*types.User, error) {
	stmt, err := ub.db.PrepareContext(ctx, selectUser+" WHERE id = $1;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	user := &types.User{}
	err = Scan(stmt.QueryRowContext(ctx, id), user)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// FindByIDs returns the accounts that exist among ids, keyed by id.
func (ub *UserBackend) FindByIDs(ctx context.Context, ids []int) (map[int]*types.User, error) {
	result := make(map[int]*types.User)
	if len(ids) == 0 {
		return result, nil
	}

	stmt, err := ub.db.PrepareContext(ctx, selectUser+" WHERE id = ANY($1);")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	users, err := ub.executeUserQuery(ctx, stmt, pq.Array(Int64s(ids)))
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		result[u.ID] = u
	}

	return result, nil
}

// ListRecent returns the most recently created accounts that are not in exclude.
func (ub *UserBackend) ListRecent(ctx context.Context, exclude []int, limit int) ([]*types.User, error) {
	stmt, err := ub.db.PrepareContext(ctx, selectUser+" WHERE NOT (id = ANY($1)) ORDER BY created_at DESC, id DESC LIMIT $2;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return ub.executeUserQuery(ctx, stmt, pq.Array(Int64s(exclude)), limit)
}

// ListAfter pages through all accounts in id order.
func (ub *UserBackend) ListAfter(ctx context.Context, after, limit int) ([]*types.User, error) {
	stmt, err := ub.db.PrepareContext(ctx, selectUser+" WHERE id > $1 ORDER BY id LIMIT $2;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return ub.executeUserQuery(ctx, stmt, after, limit)
}

// Search does a case insensitive substring match on display names.
func (ub *UserBackend) Search(ctx context.Context, query string, limit int) ([]*types.User, error) {
	stmt, err := ub.db.PrepareContext(ctx, selectUser+" WHERE display_name ILIKE $1 ORDER BY display_name, id LIMIT $2;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return ub.executeUserQuery(ctx, stmt, likePattern(query), limit)
}

func (ub *UserBackend) executeUserQuery(ctx context.Context, stmt *sql.Stmt, args ...interface{}) ([]*types.User, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*types.User, 0)

	for rows.Next() {
		user := &types.User{}

		err := Scan(rows, user)
		if err != nil {
			return nil, err
		}

		result = append(result, user)
	}

	return result, rows.Err()
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Scan reads the columns of Columns into user.
func Scan(row Scanner, user *types.User) error {
	var location sql.NullString
	err := row.Scan(&user.ID, &user.DisplayName, &user.Username, &user.Image, &location, &user.Verified, &user.CreatedAt)
	if err != nil {
		return err
	}

	user.Location = location.String
	return nil
}

func likePattern(query string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(query)
	return "%" + escaped + "%"
}

// Int64s converts account ids for use with pq.Array.
func Int64s(ids []int) []int64 {
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		result = append(result, int64(id))
	}

	return result
}
