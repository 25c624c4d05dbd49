package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/feedstudy/rankfeed/internal/candidates"
	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/dataloader"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/metrics"
	"github.com/feedstudy/rankfeed/internal/persistence/feedstorage"
	"github.com/feedstudy/rankfeed/internal/personalization"
	"github.com/feedstudy/rankfeed/internal/progress"
	"github.com/feedstudy/rankfeed/internal/providers"
	"github.com/feedstudy/rankfeed/internal/ranking"
	"github.com/feedstudy/rankfeed/internal/reranking"
	"github.com/feedstudy/rankfeed/internal/scoring"
	"github.com/feedstudy/rankfeed/internal/stats"
)

// StudyUserProvider serves study participants (spec §6).
type StudyUserProvider interface {
	GetAll(ctx context.Context, testMode bool) ([]domain.StudyUser, error)
}

// SocialGraphProvider serves the full social graph (spec §6).
type SocialGraphProvider interface {
	Load(ctx context.Context) (map[string]map[string]struct{}, error)
}

// SuperposterProvider serves the current superposter DID set (spec §6).
type SuperposterProvider interface {
	LoadLatest(ctx context.Context, source providers.SuperposterSource, lookback *time.Time) (map[string]struct{}, error)
}

// SessionMetadataAdapter records one row per completed session (spec §6).
type SessionMetadataAdapter interface {
	InsertSessionMetadata(ctx context.Context, analytics domain.SessionAnalytics) error
}

// Dependencies bundles every collaborator the Orchestrator needs. All
// fields are required except Lock, which disables distributed
// coordination when nil (e.g. in single-process test/dev runs), and
// Reporter and Metrics (see below).
type Dependencies struct {
	Config *config.Config

	StudyUsers    StudyUserProvider
	SocialGraph   SocialGraphProvider
	Superposters  SuperposterProvider
	DataLoader    *dataloader.Loader
	Scorer        *scoring.Scorer
	PoolBuilder   *candidates.Builder
	Personalizer  *personalization.Context
	Ranker        *ranking.Ranker
	Reranker      *reranking.Reranker
	PreviousFeeds PreviousFeedProvider

	FeedStorage   feedstorage.Adapter
	TTL           feedstorage.TTLAdapter
	SessionMeta   SessionMetadataAdapter
	Lock          *SessionLock

	SuperposterSource SuperposterSource
	WorkerCount       int

	// Reporter and Metrics are optional (nil-safe): when unset, Run
	// generates no progress events and records no Prometheus metrics.
	Reporter *progress.Hub
	Metrics  *metrics.Registry

	Log zerolog.Logger
}

// SuperposterSource re-exports providers.SuperposterSource so callers
// assembling Dependencies don't need to import internal/providers
// directly for this one value.
type SuperposterSource = providers.SuperposterSource

// Orchestrator runs one complete feed-generation session (spec §4.11).
type Orchestrator struct {
	deps  Dependencies
	nowFn func() time.Time
}

// New constructs an Orchestrator. WorkerCount defaults to 8 if unset.
func New(deps Dependencies) *Orchestrator {
	if deps.WorkerCount <= 0 {
		deps.WorkerCount = 8
	}
	deps.Log = deps.Log.With().Str("component", "orchestrator").Logger()
	return &Orchestrator{deps: deps, nowFn: time.Now}
}

// WithNow overrides the clock used for session_timestamp generation (tests).
func (o *Orchestrator) WithNow(fn func() time.Time) *Orchestrator {
	o.nowFn = fn
	return o
}

// report broadcasts a progress.Event if a Reporter is configured; a
// no-op otherwise, so callers never need to nil-check.
func (o *Orchestrator) report(runID, step, detail string) {
	if o.deps.Reporter == nil {
		return
	}
	o.deps.Reporter.Broadcast(progress.Event{RunID: runID, Step: step, Detail: detail, Timestamp: o.nowFn()})
}

// userResult is one worker's step-7 outcome.
type userResult struct {
	user   domain.StudyUser
	stored domain.StoredFeed
	input  stats.SessionInput
	err    error
	stage  string // failing stage when err is set: rank, rerank or encode_stats
}

// Run executes the full session: steps 1-10 of spec §4.11. usersFilter,
// if non-empty, restricts step 7 to the participants with the named
// handles.
func (o *Orchestrator) Run(ctx context.Context, usersFilter []string, exportNewScores bool, testMode bool) (domain.SessionAnalytics, error) {
	d := o.deps
	now := o.nowFn()
	sessionTimestamp := now.Format(time.RFC3339)
	runID := uuid.NewString()

	if d.Metrics != nil {
		timer := d.Metrics.StartSessionTimer()
		defer timer.Stop()
	}
	o.report(runID, "session_started", sessionTimestamp)
	defer o.report(runID, "session_finished", sessionTimestamp)

	if d.Lock != nil {
		acquired, err := d.Lock.Acquire(ctx, sessionTimestamp)
		if err != nil {
			return domain.SessionAnalytics{}, fmt.Errorf("session lock: %w", err)
		}
		if !acquired {
			return domain.SessionAnalytics{}, fmt.Errorf("session %s already in progress", sessionTimestamp)
		}
		defer d.Lock.Release(ctx, sessionTimestamp)
	}

	// Step 2: study users.
	users, err := d.StudyUsers.GetAll(ctx, testMode)
	if err != nil {
		return domain.SessionAnalytics{}, fmt.Errorf("load study users: %w", err)
	}
	users = filterUsers(users, usersFilter)

	// Step 3: social graph, superposters, posts.
	graph, err := d.SocialGraph.Load(ctx)
	if err != nil {
		d.Log.Warn().Err(err).Msg("social graph load failed, proceeding with empty graph")
		graph = map[string]map[string]struct{}{}
	}

	superposters, err := d.Superposters.LoadLatest(ctx, d.SuperposterSource, nil)
	if err != nil {
		d.Log.Warn().Err(err).Msg("superposter load failed, proceeding with empty set")
		superposters = map[string]struct{}{}
	}

	posts, err := d.DataLoader.Load(ctx, d.Config.DefaultScoringLookbackDays)
	if err != nil {
		return domain.SessionAnalytics{}, fmt.Errorf("load posts: %w", err)
	}

	// Step 4: score.
	scored, err := d.Scorer.Score(ctx, posts, superposters, exportNewScores)
	if err != nil {
		return domain.SessionAnalytics{}, fmt.Errorf("score posts: %w", err)
	}
	o.report(runID, "scoring_done", fmt.Sprintf("%d posts, %d newly scored", len(scored.Posts), len(scored.NewPostURIs)))

	// Step 5: candidate pools.
	pools := d.PoolBuilder.Build(scored.Posts)
	o.report(runID, "pools_built", "")

	// Step 6: in-network context.
	inNetworkByUser := d.Personalizer.BuildAll(scored.Posts, personalization.SocialGraph(graph), users)

	previousFeeds, err := d.PreviousFeeds.Load(ctx)
	if err != nil {
		d.Log.Warn().Err(err).Msg("previous-feed index load failed, proceeding without recycling limits")
		previousFeeds = map[string]map[string]struct{}{}
	}

	// Step 7: per-user feed generation, plus the synthetic default feed.
	dispatch := append(append([]domain.StudyUser{}, users...), domain.StudyUser{
		UserDID:   domain.DefaultFeedUserDID,
		Handle:    domain.DefaultFeedUserDID,
		Condition: domain.ConditionReverseChronological,
	})

	results := runPool(d.WorkerCount, dispatch, func(u domain.StudyUser) userResult {
		return o.buildUserFeed(u, pools, inNetworkByUser, previousFeeds, sessionTimestamp, now)
	})

	storedFeeds := make([]domain.StoredFeed, 0, len(results))
	sessionInputs := make([]stats.SessionInput, 0, len(results))
	for _, r := range results {
		if r.err != nil {
			d.Log.Error().Err(r.err).Str("user_did", r.user.UserDID).Msg("feed generation failed for user")
			if d.Metrics != nil {
				d.Metrics.RecordUserFeedFailure(r.stage)
			}
			continue
		}
		storedFeeds = append(storedFeeds, r.stored)
		sessionInputs = append(sessionInputs, r.input)
		if d.Metrics != nil {
			d.Metrics.RecordFeedGenerated(string(r.user.Condition))
		}
	}
	o.report(runID, "user_feeds_done", fmt.Sprintf("%d ok, %d failed", len(storedFeeds), len(results)-len(storedFeeds)))

	// Step 8: session analytics, computed over the successful subset.
	analytics := stats.Session(sessionInputs, sessionTimestamp)

	// Step 9: export.
	if err := d.FeedStorage.WriteFeeds(ctx, storedFeeds, sessionTimestamp); err != nil {
		return domain.SessionAnalytics{}, err
	}
	if err := d.FeedStorage.WriteSessionAnalytics(ctx, analytics, sessionTimestamp); err != nil {
		return domain.SessionAnalytics{}, err
	}

	// Step 10: TTL + session metadata, skipped in test_mode.
	if !testMode {
		if err := d.TTL.MoveToCache(ctx, feedstorage.FeedsRootKey, d.Config.KeepCount); err != nil {
			return domain.SessionAnalytics{}, err
		}
		if err := d.TTL.MoveToCache(ctx, feedstorage.AnalyticsRootKey, d.Config.KeepCount); err != nil {
			return domain.SessionAnalytics{}, err
		}
		if err := d.SessionMeta.InsertSessionMetadata(ctx, analytics); err != nil {
			return domain.SessionAnalytics{}, err
		}
	}

	return analytics, nil
}

func (o *Orchestrator) buildUserFeed(
	u domain.StudyUser,
	pools candidates.Pools,
	inNetworkByUser map[string][]string,
	previousFeeds map[string]map[string]struct{},
	sessionTimestamp string,
	now time.Time,
) userResult {
	pool := selectPool(u.Condition, pools)

	ranked, err := o.deps.Ranker.Rank(u.Condition, pool, inNetworkByUser[u.UserDID])
	if err != nil {
		return userResult{user: u, stage: "rank", err: fmt.Errorf("rank user %s: %w", u.UserDID, err)}
	}

	rng := rand.New(rand.NewSource(jitterSeed(u.UserDID, sessionTimestamp)))
	final, err := o.deps.Reranker.Rerank(ranked, previousFeeds[u.UserDID], rng)
	if err != nil {
		// UnderlongFeed (and any other rerank failure) is fatal to this
		// user only, per §9 open question 3; the dispatch loop isolates
		// the failure from the rest of the session.
		return userResult{user: u, stage: "rerank", err: fmt.Errorf("rerank user %s: %w", u.UserDID, err)}
	}

	feedStats := stats.FeedStatistics(final)

	statsJSON, err := marshalFeedStatistics(feedStats)
	if err != nil {
		return userResult{user: u, stage: "encode_stats", err: fmt.Errorf("encode feed statistics for %s: %w", u.UserDID, err)}
	}

	uris := make([]string, len(final))
	storedPosts := make([]domain.StoredFeedPost, len(final))
	for i, p := range final {
		uris[i] = p.URI
		storedPosts[i] = domain.StoredFeedPost{Item: p.URI, IsInNetwork: p.IsInNetwork}
	}

	stored := domain.StoredFeed{
		FeedID:                  fmt.Sprintf("%s::%s", u.UserDID, sessionTimestamp),
		User:                    u.UserDID,
		BlueskyHandle:           u.Handle,
		BlueskyUserDID:          u.UserDID,
		Condition:               string(u.Condition),
		FeedGenerationTimestamp: now.Format(time.RFC3339),
		FeedStatistics:          statsJSON,
		Feed:                    storedPosts,
		PartitionDate:           sessionTimestamp[:10],
	}

	return userResult{
		user:   u,
		stored: stored,
		input: stats.SessionInput{
			Condition:      u.Condition,
			FeedLength:     feedStats.FeedLength,
			TotalInNetwork: feedStats.TotalInNetwork,
			FeedURIs:       uris,
		},
	}
}

func selectPool(condition domain.Condition, pools candidates.Pools) []domain.Post {
	switch condition {
	case domain.ConditionEngagement:
		return pools.Engagement
	case domain.ConditionRepresentativeDiversification:
		return pools.Treatment
	default:
		return pools.ReverseChronological
	}
}

func filterUsers(users []domain.StudyUser, filter []string) []domain.StudyUser {
	if len(filter) == 0 {
		return users
	}
	allowed := make(map[string]struct{}, len(filter))
	for _, handle := range filter {
		allowed[handle] = struct{}{}
	}
	out := make([]domain.StudyUser, 0, len(users))
	for _, u := range users {
		if _, ok := allowed[u.Handle]; ok {
			out = append(out, u)
		}
	}
	return out
}

func marshalFeedStatistics(s domain.FeedStatistics) (string, error) {
	encoded, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// jitterSeed derives a deterministic per-user, per-session RNG seed so
// a session's jitter step is reproducible for debugging without any
// shared mutable RNG state across workers (spec §5).
func jitterSeed(userDID, sessionTimestamp string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userDID))
	h.Write([]byte(sessionTimestamp))
	return int64(h.Sum64())
}
