package friends

import (
	"context"
	"strings"

	"github.com/tradepost/funcircle/pkg/users/types"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 20
)

// AccountSearcher finds accounts by display name. It is implemented by
// users.UserBackend and users.Search.
type AccountSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]*types.User, error)
}

// SearchCandidates finds accounts the viewer could send a request to. The
// viewer and everyone already sharing an edge with the viewer, whatever its
// status, are excluded.
func (b *Backend) SearchCandidates(ctx context.Context, searcher AccountSearcher, query string, viewer, limit int) ([]*types.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*types.User{}, nil
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	connected, err := b.ConnectedIDs(ctx, viewer)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int]bool, len(connected)+1)
	excluded[viewer] = true
	for _, id := range connected {
		excluded[id] = true
	}

	found, err := searcher.Search(ctx, query, limit+len(excluded))
	if err != nil {
		return nil, err
	}

	result := make([]*types.User, 0, limit)
	for _, u := range found {
		if excluded[u.ID] {
			continue
		}

		result = append(result, u)
		if len(result) == limit {
			break
		}
	}

	return result, nil
}
