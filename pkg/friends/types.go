package friends

import (
	"time"

	"github.com/tradepost/funcircle/pkg/users/types"
)

// Status is the lifecycle state of a friend edge.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Edge is the single relationship record between two accounts.
type Edge struct {
	ID          int       `json:"id"`
	RequesterID int       `json:"requester_id"`
	AddresseeID int       `json:"addressee_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsParty reports whether the user is one of the two accounts on the edge.
func (e *Edge) IsParty(user int) bool {
	return e.RequesterID == user || e.AddresseeID == user
}

// Request is a pending edge annotated with the account on the other side.
type Request struct {
	Edge
	User *types.User `json:"user"`
}
