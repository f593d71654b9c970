// Package suggestions ranks accounts a viewer may want to befriend.
package suggestions

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/tradepost/funcircle/pkg/users/types"
)

const (
	// MaxCandidates bounds the candidate pool fetched per request.
	MaxCandidates = 50

	// MaxResults is the number of suggestions returned.
	MaxResults = 20

	NewMemberAge = 7 * 24 * time.Hour

	mutualWeight    = 30
	locationWeight  = 25
	newMemberWeight = 20
	storyWeight     = 5
	maxStoryScore   = 20
	verifiedWeight  = 10
)

type Reason string

const (
	ReasonMutualFriends Reason = "mutual_friends"
	ReasonLocation      Reason = "location"
	ReasonNewMember     Reason = "new_member"
	ReasonActive        Reason = "active"
	ReasonPopular       Reason = "popular"
)

type Suggestion struct {
	User          *types.User `json:"user"`
	Score         int         `json:"score"`
	Reason        Reason      `json:"reason"`
	MutualFriends int         `json:"mutual_friends"`
}

// Snapshot is the graph and story state a ranking is computed from.
type Snapshot struct {
	Viewer           *types.User
	Connected        []int
	ViewerFriends    []int
	Candidates       []*types.User
	CandidateFriends map[int][]int
	StoryCounts      map[int]int
}

// Rank scores every candidate that is not the viewer or connected to the
// viewer and returns the best MaxResults. Equal scores are ordered by
// account id.
func Rank(snapshot *Snapshot, now time.Time) []*Suggestion {
	excluded := make(map[int]bool, len(snapshot.Connected)+1)
	excluded[snapshot.Viewer.ID] = true
	for _, id := range snapshot.Connected {
		excluded[id] = true
	}

	friends := make(map[int]bool, len(snapshot.ViewerFriends))
	for _, id := range snapshot.ViewerFriends {
		friends[id] = true
	}

	location := tokens(snapshot.Viewer.Location)

	result := make([]*Suggestion, 0, len(snapshot.Candidates))
	for _, candidate := range snapshot.Candidates {
		if candidate == nil || excluded[candidate.ID] || friends[candidate.ID] {
			continue
		}

		excluded[candidate.ID] = true

		mutual := 0
		for _, id := range snapshot.CandidateFriends[candidate.ID] {
			if friends[id] {
				mutual++
			}
		}

		sharesLocation := overlaps(location, tokens(candidate.Location))
		isNew := now.Sub(candidate.CreatedAt) < NewMemberAge
		stories := snapshot.StoryCounts[candidate.ID]

		score := mutualWeight * mutual
		if sharesLocation {
			score += locationWeight
		}

		if isNew {
			score += newMemberWeight
		}

		score += min(storyWeight*stories, maxStoryScore)

		if candidate.Verified {
			score += verifiedWeight
		}

		result = append(result, &Suggestion{
			User:          candidate,
			Score:         score,
			Reason:        reason(mutual, sharesLocation, isNew, stories),
			MutualFriends: mutual,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}

		return result[i].User.ID < result[j].User.ID
	})

	if len(result) > MaxResults {
		result = result[:MaxResults]
	}

	return result
}

func reason(mutual int, location, isNew bool, stories int) Reason {
	switch {
	case mutual > 0:
		return ReasonMutualFriends
	case location:
		return ReasonLocation
	case isNew:
		return ReasonNewMember
	case stories > 0:
		return ReasonActive
	default:
		return ReasonPopular
	}
}

func tokens(location string) map[string]bool {
	result := make(map[string]bool)
	fields := strings.FieldsFunc(strings.ToLower(location), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, f := range fields {
		result[f] = true
	}

	return result
}

func overlaps(a, b map[string]bool) bool {
	for token := range a {
		if b[token] {
			return true
		}
	}

	return false
}
