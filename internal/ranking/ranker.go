// Package ranking builds a per-user ordered candidate list from a pool
// and that user's in-network URI set (spec §4.8). Grounded on
// original_source/services/rank_score_feeds/services/ranking.py's
// in-network/out-of-network split and source filter.
package ranking

import (
	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// Ranker builds a condition-aware candidate list.
type Ranker struct {
	cfg *config.Config
}

// NewRanker constructs a Ranker.
func NewRanker(cfg *config.Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank implements spec §4.8's algorithm: split pool into in-network and
// out-of-network, filter out-of-network by the condition's source rule,
// cap in-network, then concatenate in-network first.
func (r *Ranker) Rank(condition domain.Condition, pool []domain.Post, inNetworkURIs []string) ([]domain.FeedPost, error) {
	if len(pool) == 0 {
		return nil, rankerrors.ErrInvalidCandidatePool
	}

	inNetworkSet := make(map[string]struct{}, len(inNetworkURIs))
	for _, uri := range inNetworkURIs {
		inNetworkSet[uri] = struct{}{}
	}

	var inNetwork, outOfNetwork []domain.Post
	for _, p := range pool {
		if _, ok := inNetworkSet[p.URI]; ok {
			inNetwork = append(inNetwork, p)
		} else {
			outOfNetwork = append(outOfNetwork, p)
		}
	}

	allowedOutOfNetworkSource := outOfNetworkSource(condition)
	filteredOut := make([]domain.Post, 0, len(outOfNetwork))
	for _, p := range outOfNetwork {
		if p.Source == allowedOutOfNetworkSource {
			filteredOut = append(filteredOut, p)
		}
	}

	maxInNetwork := r.cfg.MaxInNetworkPosts()
	if len(inNetwork) > maxInNetwork {
		inNetwork = inNetwork[:maxInNetwork]
	}

	result := make([]domain.FeedPost, 0, len(inNetwork)+len(filteredOut))
	if len(inNetworkURIs) == 0 {
		for _, p := range filteredOut {
			result = append(result, domain.FeedPost{URI: p.URI, IsInNetwork: false})
		}
		return result, nil
	}

	for _, p := range inNetwork {
		result = append(result, domain.FeedPost{URI: p.URI, IsInNetwork: true})
	}
	for _, p := range filteredOut {
		result = append(result, domain.FeedPost{URI: p.URI, IsInNetwork: false})
	}
	return result, nil
}

// outOfNetworkSource returns the source an out-of-network post must
// have to survive the condition's filter (spec §4.8 step 3).
func outOfNetworkSource(condition domain.Condition) domain.Source {
	switch condition {
	case domain.ConditionEngagement, domain.ConditionRepresentativeDiversification:
		return domain.SourceMostLiked
	default:
		return domain.SourceFirehose
	}
}
