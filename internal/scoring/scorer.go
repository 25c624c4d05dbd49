// Package scoring computes engagement_score and treatment_score for
// enriched posts, merging with previously cached scores (spec §4.5).
// Grounded on original_source/services/rank_score_feeds/services/scoring.py's
// ScoringService (load cache -> compute-or-reuse -> save new), reworked
// per SPEC_FULL §9 as a pure function over a copied slice rather than
// an in-place DataFrame mutation.
package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
)

// ScoresRepository is the boundary interface consumed by the Scorer
// (spec §4.2, §6).
type ScoresRepository interface {
	LoadCachedScores(ctx context.Context, lookbackDays int) ([]domain.PostScoreByAlgorithm, error)
	SaveScores(ctx context.Context, scores []domain.ScoredPost) error
}

// Scorer computes (engagement_score, treatment_score) for a batch of
// posts, preferring cached values over recomputation.
type Scorer struct {
	repo   ScoresRepository
	cfg    *config.Config
	mode   Mode
	log    zerolog.Logger
	nowFn  func() time.Time
}

// NewScorer constructs a Scorer. nowFn defaults to time.Now; tests may
// override it for deterministic freshness calculations.
func NewScorer(repo ScoresRepository, cfg *config.Config, log zerolog.Logger) *Scorer {
	return &Scorer{
		repo:  repo,
		cfg:   cfg,
		mode:  ModeExponential,
		log:   log.With().Str("component", "scorer").Logger(),
		nowFn: time.Now,
	}
}

// WithNow overrides the clock used for freshness calculations (tests).
func (s *Scorer) WithNow(fn func() time.Time) *Scorer {
	s.nowFn = fn
	return s
}

// WithMode overrides the freshness decay mode. Exponential is the default.
func (s *Scorer) WithMode(mode Mode) *Scorer {
	s.mode = mode
	return s
}

// Result is the Scorer's output: the input posts with scores attached,
// and the subset of URIs that were freshly computed rather than reused
// from cache (spec §4.5).
type Result struct {
	Posts       []domain.Post
	NewPostURIs []string
}

// Score computes scores for posts, consulting the cache first. When
// saveNewScores is true and any post was freshly scored, the new rows
// are persisted via the repository exactly once, centrally (spec §5's
// "never from worker threads" rule — Score is always called from the
// sequential pre-fan-out stage of the orchestrator).
func (s *Scorer) Score(ctx context.Context, posts []domain.Post, superposterDIDs map[string]struct{}, saveNewScores bool) (Result, error) {
	cached, err := s.repo.LoadCachedScores(ctx, s.cfg.DefaultScoringLookbackDays)
	if err != nil {
		s.log.Warn().Err(err).Msg("cached score load failed, degrading to empty cache")
		cached = nil
	}

	cache := make(map[string]domain.PostScoreByAlgorithm, len(cached))
	for _, row := range cached {
		cache[row.URI] = row
	}

	out := make([]domain.Post, len(posts))
	var newURIs []string
	var toSave []domain.ScoredPost
	now := s.nowFn()

	for i, p := range posts {
		out[i] = p
		if row, ok := cache[p.URI]; ok {
			out[i].EngagementScore = row.EngagementScore
			out[i].TreatmentScore = row.TreatmentScore
			continue
		}

		_, isSuperposter := superposterDIDs[p.AuthorDID]
		fresh := freshness(s.cfg, s.mode, p.SyncTimestamp, now)
		like := likeability(s.cfg, &p)
		mult := treatmentMultiplier(s.cfg, &p, isSuperposter)

		out[i].EngagementScore = (like + fresh) * s.cfg.EngagementCoef
		out[i].TreatmentScore = (like + fresh) * mult

		newURIs = append(newURIs, p.URI)
		toSave = append(toSave, domain.ScoredPost{
			URI:             p.URI,
			Text:            p.Text,
			Source:          p.Source,
			EngagementScore: out[i].EngagementScore,
			TreatmentScore:  out[i].TreatmentScore,
			ScoredTimestamp: now,
		})
	}

	if saveNewScores && len(toSave) > 0 {
		if err := s.repo.SaveScores(ctx, toSave); err != nil {
			return Result{}, err
		}
	}

	s.log.Info().
		Int("total_posts", len(posts)).
		Int("new_scores", len(newURIs)).
		Int("cached_hits", len(posts)-len(newURIs)).
		Msg("scored posts")

	return Result{Posts: out, NewPostURIs: newURIs}, nil
}
