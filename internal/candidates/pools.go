// Package candidates builds the three sorted, per-author-capped
// candidate pools consumed by the Ranker (spec §4.6).
// Grounded on original_source/services/rank_score_feeds/services/candidate.py's
// pool-construction pass (filter -> sort -> per-author cap).
package candidates

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
)

// Pools is the triple of independently built candidate sequences
// (spec §3).
type Pools struct {
	ReverseChronological []domain.Post
	Engagement           []domain.Post
	Treatment            []domain.Post
}

// Builder constructs Pools from a batch of scored posts.
type Builder struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(cfg *config.Config, log zerolog.Logger) *Builder {
	return &Builder{cfg: cfg, log: log.With().Str("component", "candidate_pool_builder").Logger()}
}

// Build produces the three pools from scored posts (spec §4.6).
func (b *Builder) Build(posts []domain.Post) Pools {
	rc := filterFirehose(posts)
	sort.SliceStable(rc, func(i, j int) bool {
		return rc[i].SyncTimestamp.After(rc[j].SyncTimestamp)
	})
	rc = capPerAuthor(rc, b.cfg.MaxNumTimesUserCanAppearInFeed)

	if len(rc) == 0 {
		b.log.Warn().Msg("reverse_chronological pool is empty after filtering")
	}

	engagement := append([]domain.Post(nil), posts...)
	sort.SliceStable(engagement, func(i, j int) bool {
		return engagement[i].EngagementScore > engagement[j].EngagementScore
	})
	engagement = capPerAuthor(engagement, b.cfg.MaxNumTimesUserCanAppearInFeed)

	treatment := append([]domain.Post(nil), posts...)
	sort.SliceStable(treatment, func(i, j int) bool {
		return treatment[i].TreatmentScore > treatment[j].TreatmentScore
	})
	treatment = capPerAuthor(treatment, b.cfg.MaxNumTimesUserCanAppearInFeed)

	return Pools{
		ReverseChronological: rc,
		Engagement:           engagement,
		Treatment:            treatment,
	}
}

func filterFirehose(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.Source == domain.SourceFirehose {
			out = append(out, p)
		}
	}
	return out
}

// capPerAuthor walks the already-sorted pool and keeps up to maxPerAuthor
// posts per author_did, dropping the rest while preserving order.
func capPerAuthor(posts []domain.Post, maxPerAuthor int) []domain.Post {
	counts := make(map[string]int)
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if counts[p.AuthorDID] >= maxPerAuthor {
			continue
		}
		counts[p.AuthorDID]++
		out = append(out, p)
	}
	return out
}
