// Package friends owns the friend request lifecycle and the friend graph
// queries derived from it.
package friends

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/tradepost/funcircle/pkg/users"
	"github.com/tradepost/funcircle/pkg/users/types"
)

const foreignKeyViolation = "23503"

const selectEdge = "SELECT id, requester_id, addressee_id, status, created_at, updated_at FROM friend_edges"

type Backend struct {
	db *sql.DB
}

func NewBackend(db *sql.DB) *Backend {
	return &Backend{db: db}
}

// SendRequest creates a pending edge. The unordered pair index guarantees a
// single edge per pair, so a concurrent send in the other direction loses.
func (b *Backend) SendRequest(ctx context.Context, requester, addressee int) (*Edge, error) {
	if requester == addressee {
		return nil, ErrSelfReference
	}

	stmt, err := b.db.PrepareContext(ctx, `INSERT INTO friend_edges (requester_id, addressee_id, status, created_at, updated_at)
		VALUES ($1, $2, 'pending', $3, $3) ON CONFLICT DO NOTHING RETURNING id;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	edge := &Edge{RequesterID: requester, AddresseeID: addressee, Status: StatusPending, CreatedAt: now, UpdatedAt: now}

	err = stmt.QueryRowContext(ctx, requester, addressee, now).Scan(&edge.ID)
	if err == sql.ErrNoRows {
		return nil, ErrDuplicateEdge
	}

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == foreignKeyViolation {
		return nil, ErrUnknownUser
	}

	if err != nil {
		return nil, err
	}

	return edge, nil
}

// Accept moves a pending edge to accepted, only the addressee may do so.
func (b *Backend) Accept(ctx context.Context, id, actor int) (*Edge, error) {
	return b.transition(ctx, id, actor, StatusAccepted)
}

// Reject moves a pending edge to rejected, only the addressee may do so.
func (b *Backend) Reject(ctx context.Context, id, actor int) (*Edge, error) {
	return b.transition(ctx, id, actor, StatusRejected)
}

func (b *Backend) transition(ctx context.Context, id, actor int, to Status) (*Edge, error) {
	stmt, err := b.db.PrepareContext(ctx, `UPDATE friend_edges SET status = $3, updated_at = $4
		WHERE id = $1 AND addressee_id = $2 AND status = 'pending'
		RETURNING id, requester_id, addressee_id, status, created_at, updated_at;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	edge := &Edge{}
	err = scanEdge(stmt.QueryRowContext(ctx, id, actor, string(to), time.Now().UTC()), edge)
	if err == sql.ErrNoRows {
		return nil, b.classify(ctx, id, func(e *Edge) bool { return e.AddresseeID == actor })
	}

	if err != nil {
		return nil, err
	}

	return edge, nil
}

// Remove deletes an accepted edge, either party may unfriend.
func (b *Backend) Remove(ctx context.Context, id, actor int) (*Edge, error) {
	stmt, err := b.db.PrepareContext(ctx, `DELETE FROM friend_edges
		WHERE id = $1 AND (requester_id = $2 OR addressee_id = $2) AND status = 'accepted'
		RETURNING id, requester_id, addressee_id, status, created_at, updated_at;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	edge := &Edge{}
	err = scanEdge(stmt.QueryRowContext(ctx, id, actor), edge)
	if err == sql.ErrNoRows {
		return nil, b.classify(ctx, id, func(e *Edge) bool { return e.IsParty(actor) })
	}

	if err != nil {
		return nil, err
	}

	return edge, nil
}

// classify explains why a conditional write on an edge matched no row.
func (b *Backend) classify(ctx context.Context, id int, authorized func(*Edge) bool) error {
	edge, err := b.Get(ctx, id)
	if err != nil {
		return err
	}

	if !authorized(edge) {
		return ErrNotAuthorized
	}

	return ErrInvalidState
}

func (b *Backend) Get(ctx context.Context, id int) (*Edge, error) {
	stmt, err := b.db.PrepareContext(ctx, selectEdge+" WHERE id = $1;")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	edge := &Edge{}
	err = scanEdge(stmt.QueryRowContext(ctx, id), edge)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return edge, nil
}

// ListFriends returns the accounts with an accepted edge to user.
func (b *Backend) ListFriends(ctx context.Context, user int) ([]*types.User, error) {
	stmt, err := b.db.PrepareContext(ctx, `SELECT `+users.Columns+` FROM users
		INNER JOIN friend_edges ON (users.id = CASE WHEN friend_edges.requester_id = $1 THEN friend_edges.addressee_id ELSE friend_edges.requester_id END)
		WHERE (friend_edges.requester_id = $1 OR friend_edges.addressee_id = $1) AND friend_edges.status = 'accepted'
		ORDER BY users.display_name, users.id;`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*types.User, 0)
	for rows.Next() {
		u := &types.User{}
		err := users.Scan(rows, u)
		if err != nil {
			return nil, err
		}

		result = append(result, u)
	}

	return result, rows.Err()
}

// ListPending returns incoming pending requests for user, newest first.
func (b *Backend) ListPending(ctx context.Context, user int) ([]*Request, error) {
	return b.listRequests(ctx, `SELECT friend_edges.id, friend_edges.requester_id, friend_edges.addressee_id, friend_edges.status,
		friend_edges.created_at, friend_edges.updated_at, `+users.Columns+`
		FROM friend_edges INNER JOIN users ON (users.id = friend_edges.requester_id)
		WHERE friend_edges.addressee_id = $1 AND friend_edges.status = 'pending'
		ORDER BY friend_edges.created_at DESC, friend_edges.id DESC;`, user)
}

// ListSent returns outgoing pending requests made by user, newest first.
func (b *Backend) ListSent(ctx context.Context, user int) ([]*Request, error) {
	return b.listRequests(ctx, `SELECT friend_edges.id, friend_edges.requester_id, friend_edges.addressee_id, friend_edges.status,
		friend_edges.created_at, friend_edges.updated_at, `+users.Columns+`
		FROM friend_edges INNER JOIN users ON (users.id = friend_edges.addressee_id)
		WHERE friend_edges.requester_id = $1 AND friend_edges.status = 'pending'
		ORDER BY friend_edges.created_at DESC, friend_edges.id DESC;`, user)
}

func (b *Backend) listRequests(ctx context.Context, query string, user int) ([]*Request, error) {
	stmt, err := b.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*Request, 0)
	for rows.Next() {
		req := &Request{User: &types.User{}}

		var status string
		var location sql.NullString
		err := rows.Scan(
			&req.ID, &req.RequesterID, &req.AddresseeID, &status, &req.CreatedAt, &req.UpdatedAt,
			&req.User.ID, &req.User.DisplayName, &req.User.Username, &req.User.Image, &location, &req.User.Verified, &req.User.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		req.Status = Status(status)
		req.User.Location = location.String
		result = append(result, req)
	}

	return result, rows.Err()
}

// ConnectedIDs returns every account sharing an edge with user, in any status.
func (b *Backend) ConnectedIDs(ctx context.Context, user int) ([]int, error) {
	return b.otherIDs(ctx, `SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		FROM friend_edges WHERE requester_id = $1 OR addressee_id = $1;`, user)
}

// FriendIDs returns the accounts with an accepted edge to user.
func (b *Backend) FriendIDs(ctx context.Context, user int) ([]int, error) {
	return b.otherIDs(ctx, `SELECT CASE WHEN requester_id = $1 THEN addressee_id ELSE requester_id END
		FROM friend_edges WHERE (requester_id = $1 OR addressee_id = $1) AND status = 'accepted';`, user)
}

func (b *Backend) otherIDs(ctx context.Context, query string, user int) ([]int, error) {
	stmt, err := b.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]int, 0)
	for rows.Next() {
		var id int
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}

		result = append(result, id)
	}

	return result, rows.Err()
}

// FriendIDsFor returns the accepted friend ids of each account in ids.
func (b *Backend) FriendIDsFor(ctx context.Context, ids []int) (map[int][]int, error) {
	result := make(map[int][]int, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	stmt, err := b.db.PrepareContext(ctx, `SELECT requester_id, addressee_id FROM friend_edges
		WHERE status = 'accepted' AND (requester_id = ANY($1) OR addressee_id = ANY($1));`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, pq.Array(users.Int64s(ids)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var requester, addressee int
		err := rows.Scan(&requester, &addressee)
		if err != nil {
			return nil, err
		}

		if wanted[requester] {
			result[requester] = append(result[requester], addressee)
		}

		if wanted[addressee] {
			result[addressee] = append(result[addressee], requester)
		}
	}

	return result, rows.Err()
}

func scanEdge(row users.Scanner, edge *Edge) error {
	var status string
	err := row.Scan(&edge.ID, &edge.RequesterID, &edge.AddresseeID, &status, &edge.CreatedAt, &edge.UpdatedAt)
	if err != nil {
		return err
	}

	edge.Status = Status(status)
	return nil
}
