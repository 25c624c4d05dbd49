package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedstudy/rankfeed/internal/candidates"
	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/dataloader"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/personalization"
	"github.com/feedstudy/rankfeed/internal/persistence/feedstorage"
	"github.com/feedstudy/rankfeed/internal/providers"
	"github.com/feedstudy/rankfeed/internal/ranking"
	"github.com/feedstudy/rankfeed/internal/reranking"
	"github.com/feedstudy/rankfeed/internal/scoring"
)

type fakeStudyUsers struct{ users []domain.StudyUser }

func (f *fakeStudyUsers) GetAll(ctx context.Context, testMode bool) ([]domain.StudyUser, error) {
	return f.users, nil
}

type fakeSocialGraph struct{ graph map[string]map[string]struct{} }

func (f *fakeSocialGraph) Load(ctx context.Context) (map[string]map[string]struct{}, error) {
	return f.graph, nil
}

type fakeSuperposters struct{}

func (f *fakeSuperposters) LoadLatest(ctx context.Context, source providers.SuperposterSource, lookback *time.Time) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

type fakePostProvider struct{ posts []domain.Post }

func (f *fakePostProvider) LoadEnriched(ctx context.Context, lookback time.Time) ([]domain.Post, error) {
	return f.posts, nil
}

type fakeExclusions struct{}

func (f *fakeExclusions) Load(ctx context.Context) (dataloader.Exclusions, error) {
	return dataloader.Exclusions{}, nil
}

type fakeScoresRepo struct{}

func (f *fakeScoresRepo) LoadCachedScores(ctx context.Context, lookbackDays int) ([]domain.PostScoreByAlgorithm, error) {
	return nil, nil
}

func (f *fakeScoresRepo) SaveScores(ctx context.Context, scores []domain.ScoredPost) error {
	return nil
}

type fakePreviousFeeds struct{ feeds map[string]map[string]struct{} }

func (f *fakePreviousFeeds) Load(ctx context.Context) (map[string]map[string]struct{}, error) {
	return f.feeds, nil
}

type fakeFeedStorage struct {
	feeds     []domain.StoredFeed
	analytics domain.SessionAnalytics
}

func (f *fakeFeedStorage) WriteFeeds(ctx context.Context, feeds []domain.StoredFeed, sessionTimestamp string) error {
	f.feeds = feeds
	return nil
}

func (f *fakeFeedStorage) WriteSessionAnalytics(ctx context.Context, analytics domain.SessionAnalytics, sessionTimestamp string) error {
	f.analytics = analytics
	return nil
}

type fakeTTL struct{ calls int }

func (f *fakeTTL) MoveToCache(ctx context.Context, prefix string, keepCount int) error {
	f.calls++
	return nil
}

type fakeSessionMeta struct{ calls int }

func (f *fakeSessionMeta) InsertSessionMetadata(ctx context.Context, analytics domain.SessionAnalytics) error {
	f.calls++
	return nil
}

func testConfig(t *testing.T, maxFeedLength int) *config.Config {
	t.Helper()
	raw := config.Defaults()
	raw.MaxFeedLength = maxFeedLength
	raw.MaxNumTimesUserCanAppearInFeed = 5
	raw.MaxPropOldPosts = 1
	raw.MaxInNetworkPostsRatio = 1
	raw.FeedPreprocessingMultiplier = 5
	raw.JitterAmount = 0
	raw.KeepCount = 3
	cfg, err := config.Finalize(raw)
	require.NoError(t, err)
	return cfg
}

func scenarioPosts(now time.Time) []domain.Post {
	return []domain.Post{
		{URI: "p1", AuthorDID: "a1", Source: domain.SourceFirehose, SyncTimestamp: now, ConsolidationTimestamp: now},
		{URI: "p2", AuthorDID: "a2", Source: domain.SourceMostLiked, SyncTimestamp: now, ConsolidationTimestamp: now},
		{URI: "p3", AuthorDID: "a3", Source: domain.SourceMostLiked, SyncTimestamp: now, ConsolidationTimestamp: now},
		{URI: "p4", AuthorDID: "a4", Source: domain.SourceFirehose, SyncTimestamp: now.Add(-time.Minute), ConsolidationTimestamp: now},
	}
}

func buildDeps(t *testing.T, maxFeedLength int, now time.Time) (Dependencies, *fakeFeedStorage, *fakeTTL, *fakeSessionMeta) {
	t.Helper()
	cfg := testConfig(t, maxFeedLength)
	log := zerolog.Nop()
	nowFn := func() time.Time { return now }

	users := []domain.StudyUser{
		{UserDID: "u1", Handle: "user1", Condition: domain.ConditionEngagement, IsStudyUser: true},
	}
	graph := map[string]map[string]struct{}{
		"u1": {"a1": {}},
	}

	storage := &fakeFeedStorage{}
	ttl := &fakeTTL{}
	sessionMeta := &fakeSessionMeta{}

	deps := Dependencies{
		Config:       cfg,
		StudyUsers:   &fakeStudyUsers{users: users},
		SocialGraph:  &fakeSocialGraph{graph: graph},
		Superposters: &fakeSuperposters{},
		DataLoader: dataloader.NewLoader(&fakePostProvider{posts: scenarioPosts(now)}, &fakeExclusions{}, log).
			WithNow(nowFn),
		Scorer:        scoring.NewScorer(&fakeScoresRepo{}, cfg, log).WithNow(nowFn),
		PoolBuilder:   candidates.NewBuilder(cfg, log),
		Personalizer:  personalization.NewContext(log),
		Ranker:        ranking.NewRanker(cfg),
		Reranker:      reranking.NewReranker(cfg),
		PreviousFeeds: &fakePreviousFeeds{feeds: map[string]map[string]struct{}{}},
		FeedStorage:   storage,
		TTL:           ttl,
		SessionMeta:   sessionMeta,
		Lock:          nil,

		SuperposterSource: providers.SuperposterSourceLocal,
		WorkerCount:       2,
		Log:               log,
	}
	return deps, storage, ttl, sessionMeta
}

func TestRun_ProducesFeedsForUserAndDefault(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	deps, storage, ttl, sessionMeta := buildDeps(t, 2, now)

	orch := New(deps).WithNow(func() time.Time { return now })
	analytics, err := orch.Run(context.Background(), nil, true, false)
	require.NoError(t, err)

	assert.Equal(t, 2, analytics.TotalFeeds)
	assert.Len(t, storage.feeds, 2)
	assert.Equal(t, 2, ttl.calls)
	assert.Equal(t, 1, sessionMeta.calls)
}

func TestRun_TestModeSkipsTTLAndSessionMetadata(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	deps, _, ttl, sessionMeta := buildDeps(t, 2, now)

	orch := New(deps).WithNow(func() time.Time { return now })
	_, err := orch.Run(context.Background(), nil, true, true)
	require.NoError(t, err)

	assert.Equal(t, 0, ttl.calls)
	assert.Equal(t, 0, sessionMeta.calls)
}

func TestRun_UsersFilterRestrictsStep7(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	deps, storage, _, _ := buildDeps(t, 2, now)

	orch := New(deps).WithNow(func() time.Time { return now })
	analytics, err := orch.Run(context.Background(), []string{"nobody"}, true, false)
	require.NoError(t, err)

	// Only the synthetic default feed survives the filter.
	assert.Equal(t, 1, analytics.TotalFeeds)
	assert.Len(t, storage.feeds, 1)
}

func TestRun_AllUsersFailRerank_StillProducesSessionAnalytics(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	// max_feed_length=10 is unreachable with only 4 scenario posts, so
	// every user (including the default) fails Rerank with UnderlongFeed.
	deps, storage, _, _ := buildDeps(t, 10, now)

	orch := New(deps).WithNow(func() time.Time { return now })
	analytics, err := orch.Run(context.Background(), nil, true, false)
	require.NoError(t, err)

	assert.Equal(t, 0, analytics.TotalFeeds)
	assert.Empty(t, storage.feeds)
}

func TestRun_WriteFeedsFailurePropagates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	deps, _, _, _ := buildDeps(t, 2, now)
	deps.FeedStorage = failingFeedStorage{}

	orch := New(deps).WithNow(func() time.Time { return now })
	_, err := orch.Run(context.Background(), nil, true, false)
	require.Error(t, err)
}

type failingFeedStorage struct{ feedstorage.Adapter }

func (failingFeedStorage) WriteFeeds(ctx context.Context, feeds []domain.StoredFeed, sessionTimestamp string) error {
	return assertAnError{}
}

type assertAnError struct{}

func (assertAnError) Error() string { return "write_feeds failed" }
