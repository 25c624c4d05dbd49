// Package dataloader fetches, deduplicates, and filters enriched posts
// (spec §4.4). Grounded on
// original_source/services/rank_score_feeds/services/data_loading.py.
package dataloader

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// PostProvider fetches enriched posts newer than lookback (spec §6).
type PostProvider interface {
	LoadEnriched(ctx context.Context, lookback time.Time) ([]domain.Post, error)
}

// Exclusions is the pair of excluded handle/DID sets returned by an
// ExclusionProvider (spec §6).
type Exclusions struct {
	Handles map[string]struct{}
	DIDs    map[string]struct{}
}

// ExclusionProvider serves the configured exclusion sets (spec §6).
type ExclusionProvider interface {
	Load(ctx context.Context) (Exclusions, error)
}

// Loader fetches, dedups, and filters posts for one session.
type Loader struct {
	posts      PostProvider
	exclusions ExclusionProvider
	log        zerolog.Logger
	nowFn      func() time.Time
}

// NewLoader constructs a Loader.
func NewLoader(posts PostProvider, exclusions ExclusionProvider, log zerolog.Logger) *Loader {
	return &Loader{
		posts:      posts,
		exclusions: exclusions,
		log:        log.With().Str("component", "data_loader").Logger(),
		nowFn:      time.Now,
	}
}

// WithNow overrides the clock used to derive the lookback cutoff (tests).
func (l *Loader) WithNow(fn func() time.Time) *Loader {
	l.nowFn = fn
	return l
}

// Load implements spec §4.4: fetch within the lookback window,
// deduplicate by uri keeping the row with the latest
// consolidation_timestamp, then drop excluded authors/handles,
// preserving input order after sort+dedup.
func (l *Loader) Load(ctx context.Context, lookbackDays int) ([]domain.Post, error) {
	cutoff := l.nowFn().AddDate(0, 0, -lookbackDays)

	raw, err := l.posts.LoadEnriched(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	deduped := dedupeByURI(raw)

	excl, err := l.exclusions.Load(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("exclusion set load failed, proceeding without exclusions")
		excl = Exclusions{}
	}

	out := make([]domain.Post, 0, len(deduped))
	for _, p := range deduped {
		if isExcluded(p, excl) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// dedupeByURI groups by uri and keeps the row with the maximum
// consolidation_timestamp, preserving first-seen order among surviving
// URIs (spec §4.4 step 2, Scenario D).
func dedupeByURI(posts []domain.Post) []domain.Post {
	best := make(map[string]domain.Post, len(posts))
	order := make([]string, 0, len(posts))

	for _, p := range posts {
		existing, seen := best[p.URI]
		if !seen {
			order = append(order, p.URI)
			best[p.URI] = p
			continue
		}
		if p.ConsolidationTimestamp.After(existing.ConsolidationTimestamp) {
			best[p.URI] = p
		}
	}

	out := make([]domain.Post, 0, len(order))
	for _, uri := range order {
		out = append(out, best[uri])
	}
	return out
}

func isExcluded(p domain.Post, excl Exclusions) bool {
	if _, ok := excl.DIDs[p.AuthorDID]; ok {
		return true
	}
	if _, ok := excl.Handles[p.AuthorHandle]; ok {
		return true
	}
	return false
}
