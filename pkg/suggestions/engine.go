package suggestions

import (
	"context"
	"errors"
	"time"

	"github.com/tradepost/funcircle/pkg/users/types"
)

// ErrTimeout is returned when the snapshot could not be read in time.
var ErrTimeout = errors.New("suggestions timed out")

// DefaultTimeout bounds snapshot reads when none is configured.
const DefaultTimeout = 5 * time.Second

// Graph is implemented by friends.Backend.
type Graph interface {
	ConnectedIDs(ctx context.Context, user int) ([]int, error)
	FriendIDs(ctx context.Context, user int) ([]int, error)
	FriendIDsFor(ctx context.Context, ids []int) (map[int][]int, error)
}

// Accounts is implemented by users.UserBackend.
type Accounts interface {
	FindByID(ctx context.Context, id int) (*types.User, error)
	ListRecent(ctx context.Context, exclude []int, limit int) ([]*types.User, error)
}

// StoryCounter is implemented by stories.Backend.
type StoryCounter interface {
	LiveStoryCounts(ctx context.Context, authors []int, now time.Time) (map[int]int, error)
}

type Engine struct {
	graph    Graph
	accounts Accounts
	stories  StoryCounter
	timeout  time.Duration
}

func NewEngine(graph Graph, accounts Accounts, stories StoryCounter, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Engine{
		graph:    graph,
		accounts: accounts,
		stories:  stories,
		timeout:  timeout,
	}
}

// Suggest returns ranked suggestions for viewer. When reading the snapshot
// takes longer than the engine timeout, an empty list and ErrTimeout are
// returned.
func (e *Engine) Suggest(ctx context.Context, viewer int) ([]*Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	now := time.Now().UTC()

	snapshot, err := e.snapshot(ctx, viewer, now)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return []*Suggestion{}, ErrTimeout
		}

		return nil, err
	}

	return Rank(snapshot, now), nil
}

func (e *Engine) snapshot(ctx context.Context, viewer int, now time.Time) (*Snapshot, error) {
	account, err := e.accounts.FindByID(ctx, viewer)
	if err != nil {
		return nil, err
	}

	connected, err := e.graph.ConnectedIDs(ctx, viewer)
	if err != nil {
		return nil, err
	}

	friends, err := e.graph.FriendIDs(ctx, viewer)
	if err != nil {
		return nil, err
	}

	exclude := append([]int{viewer}, connected...)
	candidates, err := e.accounts.ListRecent(ctx, exclude, MaxCandidates)
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	candidateFriends, err := e.graph.FriendIDsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	counts, err := e.stories.LiveStoryCounts(ctx, ids, now)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Viewer:           account,
		Connected:        connected,
		ViewerFriends:    friends,
		Candidates:       candidates,
		CandidateFriends: candidateFriends,
		StoryCounts:      counts,
	}, nil
}
