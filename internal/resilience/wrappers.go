package resilience

import (
	"context"
	"time"

	"github.com/feedstudy/rankfeed/internal/dataloader"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/providers"
	"github.com/feedstudy/rankfeed/internal/scoring"
)

// The wrapper types below are the composition root's way of giving
// every outgoing provider call a Guard (spec §7's "transient storage
// error" kind; SPEC_FULL "Domain stack"), without teaching each
// concrete provider about circuit breaking itself. Each wrapper
// implements the same narrow interface its inner collaborator does.

// StudyUserProvider matches orchestrator.StudyUserProvider without an
// import cycle (the orchestrator package already defines its own
// identical interface; Go structural typing makes these wrappers
// satisfy it).
type StudyUserProvider interface {
	GetAll(ctx context.Context, testMode bool) ([]domain.StudyUser, error)
}

// GuardedStudyUsers wraps a StudyUserProvider with a Guard.
type GuardedStudyUsers struct {
	inner StudyUserProvider
	guard *Guard
}

// NewGuardedStudyUsers builds a GuardedStudyUsers.
func NewGuardedStudyUsers(inner StudyUserProvider, guard *Guard) *GuardedStudyUsers {
	return &GuardedStudyUsers{inner: inner, guard: guard}
}

// GetAll delegates through the guard.
func (g *GuardedStudyUsers) GetAll(ctx context.Context, testMode bool) ([]domain.StudyUser, error) {
	result, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.GetAll(ctx, testMode)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.StudyUser), nil
}

// SocialGraphProvider matches orchestrator.SocialGraphProvider.
type SocialGraphProvider interface {
	Load(ctx context.Context) (map[string]map[string]struct{}, error)
}

// GuardedSocialGraph wraps a SocialGraphProvider with a Guard.
type GuardedSocialGraph struct {
	inner SocialGraphProvider
	guard *Guard
}

// NewGuardedSocialGraph builds a GuardedSocialGraph.
func NewGuardedSocialGraph(inner SocialGraphProvider, guard *Guard) *GuardedSocialGraph {
	return &GuardedSocialGraph{inner: inner, guard: guard}
}

// Load delegates through the guard.
func (g *GuardedSocialGraph) Load(ctx context.Context) (map[string]map[string]struct{}, error) {
	result, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]map[string]struct{}), nil
}

// SuperposterProvider matches orchestrator.SuperposterProvider.
type SuperposterProvider interface {
	LoadLatest(ctx context.Context, source providers.SuperposterSource, lookback *time.Time) (map[string]struct{}, error)
}

// GuardedSuperposters wraps a SuperposterProvider with a Guard.
type GuardedSuperposters struct {
	inner SuperposterProvider
	guard *Guard
}

// NewGuardedSuperposters builds a GuardedSuperposters.
func NewGuardedSuperposters(inner SuperposterProvider, guard *Guard) *GuardedSuperposters {
	return &GuardedSuperposters{inner: inner, guard: guard}
}

// LoadLatest delegates through the guard.
func (g *GuardedSuperposters) LoadLatest(ctx context.Context, source providers.SuperposterSource, lookback *time.Time) (map[string]struct{}, error) {
	result, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.LoadLatest(ctx, source, lookback)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]struct{}), nil
}

// GuardedPostProvider wraps a dataloader.PostProvider with a Guard.
type GuardedPostProvider struct {
	inner dataloader.PostProvider
	guard *Guard
}

// NewGuardedPostProvider builds a GuardedPostProvider.
func NewGuardedPostProvider(inner dataloader.PostProvider, guard *Guard) *GuardedPostProvider {
	return &GuardedPostProvider{inner: inner, guard: guard}
}

// LoadEnriched delegates through the guard.
func (g *GuardedPostProvider) LoadEnriched(ctx context.Context, lookback time.Time) ([]domain.Post, error) {
	result, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.LoadEnriched(ctx, lookback)
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Post), nil
}

// GuardedExclusionProvider wraps a dataloader.ExclusionProvider with a Guard.
type GuardedExclusionProvider struct {
	inner dataloader.ExclusionProvider
	guard *Guard
}

// NewGuardedExclusionProvider builds a GuardedExclusionProvider.
func NewGuardedExclusionProvider(inner dataloader.ExclusionProvider, guard *Guard) *GuardedExclusionProvider {
	return &GuardedExclusionProvider{inner: inner, guard: guard}
}

// Load delegates through the guard.
func (g *GuardedExclusionProvider) Load(ctx context.Context) (dataloader.Exclusions, error) {
	result, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.Load(ctx)
	})
	if err != nil {
		return dataloader.Exclusions{}, err
	}
	return result.(dataloader.Exclusions), nil
}

// GuardedScoresRepository wraps a scoring.ScoresRepository with a
// Guard. LoadCachedScores still degrades to an empty slice rather than
// propagating a breaker-open error, per spec §4.2 — the Guard only
// ever shortens the time spent waiting on an unhealthy dependency.
type GuardedScoresRepository struct {
	inner scoring.ScoresRepository
	guard *Guard
}

// NewGuardedScoresRepository builds a GuardedScoresRepository.
func NewGuardedScoresRepository(inner scoring.ScoresRepository, guard *Guard) *GuardedScoresRepository {
	return &GuardedScoresRepository{inner: inner, guard: guard}
}

// LoadCachedScores delegates through the guard, degrading to an empty
// slice on any failure (breaker-open included).
func (g *GuardedScoresRepository) LoadCachedScores(ctx context.Context, lookbackDays int) ([]domain.PostScoreByAlgorithm, error) {
	result, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return g.inner.LoadCachedScores(ctx, lookbackDays)
	})
	if err != nil {
		return nil, nil
	}
	return result.([]domain.PostScoreByAlgorithm), nil
}

// SaveScores delegates through the guard.
func (g *GuardedScoresRepository) SaveScores(ctx context.Context, newScores []domain.ScoredPost) error {
	_, err := g.guard.Do(ctx, func(ctx context.Context) (any, error) {
		return nil, g.inner.SaveScores(ctx, newScores)
	})
	return err
}
