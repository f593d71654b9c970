package friends

import "errors"

var (
	ErrSelfReference = errors.New("cannot befriend yourself")
	ErrDuplicateEdge = errors.New("an edge already exists between these users")
	ErrNotFound      = errors.New("friend edge not found")
	ErrNotAuthorized = errors.New("not authorized to modify this edge")
	ErrInvalidState  = errors.New("edge is not in a valid state for this operation")
	ErrUnknownUser   = errors.New("user does not exist")
)
