package stories

import (
	"sort"
	"time"

	"github.com/tradepost/funcircle/pkg/users/types"
)

const (
	// Lifetime is how long a story stays visible after it is posted.
	Lifetime = 24 * time.Hour

	// QuotaWindow is the rolling window image uploads are counted over.
	QuotaWindow = 24 * time.Hour

	// MaxImages is the image allowance per story and per quota window.
	MaxImages = 5

	// FeedLimit caps the number of stories returned by Feed.
	FeedLimit = 100

	// SystemActor may delete any story.
	SystemActor = 0
)

// Kind is a reaction kind.
type Kind string

const (
	KindLike  Kind = "like"
	KindLove  Kind = "love"
	KindLaugh Kind = "laugh"
	KindWow   Kind = "wow"
	KindSad   Kind = "sad"
	KindAngry Kind = "angry"
)

// Kinds lists every reaction kind in canonical order.
var Kinds = []Kind{KindLike, KindLove, KindLaugh, KindWow, KindSad, KindAngry}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}

	return "", ErrInvalidKind
}

func (k Kind) column() string {
	return string(k) + "_count"
}

// Counts holds the number of reactions per kind.
type Counts map[Kind]int

// NewCounts returns Counts with every kind present.
func NewCounts() Counts {
	c := make(Counts, len(Kinds))
	for _, k := range Kinds {
		c[k] = 0
	}

	return c
}

// Top returns up to n kinds with a non zero count, highest first. Ties keep
// canonical order.
func (c Counts) Top(n int) []Kind {
	result := make([]Kind, 0, len(Kinds))
	for _, k := range Kinds {
		if c[k] > 0 {
			result = append(result, k)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return c[result[i]] > c[result[j]]
	})

	if len(result) > n {
		result = result[:n]
	}

	return result
}

// Story is a post that expires after Lifetime.
type Story struct {
	ID           string      `json:"id"`
	AuthorID     int         `json:"author_id"`
	Author       *types.User `json:"author,omitempty"`
	Content      string      `json:"content"`
	Images       []string    `json:"images"`
	CreatedAt    time.Time   `json:"created_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	ViewsCount   int         `json:"views_count"`
	Reactions    Counts      `json:"reactions_count"`
	TopReactions []Kind      `json:"top_reactions"`
	UserReaction *Kind       `json:"user_reaction"`
	Mentions     []int       `json:"mentions"`
}

type Comment struct {
	ID        int       `json:"id"`
	StoryID   string    `json:"story_id"`
	AuthorID  int       `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Change describes what a call to React did to the user's reaction.
type Change int

const (
	ChangeInsert Change = iota
	ChangeUpdate
	ChangeDelete
)

// ReactionResult is the outcome of React. Reaction is nil when the
// reaction was toggled off.
type ReactionResult struct {
	Reaction *Kind  `json:"reaction"`
	Counts   Counts `json:"reactions_count"`
	Change   Change `json:"-"`
}

// Quota is an author's image usage in the current window.
type Quota struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

func newQuota(used int) Quota {
	remaining := MaxImages - used
	if remaining < 0 {
		remaining = 0
	}

	return Quota{Used: used, Remaining: remaining}
}

// Expired identifies a story due for deletion.
type Expired struct {
	ID     string
	Images []string
}
