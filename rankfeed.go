// Package rankfeed is the composition root: it wires every concrete
// adapter into an orchestrator.Dependencies and exposes RunDefault, a
// package-level convenience function reproducing
// original_source/services/rank_score_feeds/helper.py's
// do_rank_score_feeds thin wrapper for callers that don't need to
// customize dependencies (SPEC_FULL "Supplemented features" 3).
package rankfeed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awssession "github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/go-resty/resty/v2"
	goredisv8 "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedstudy/rankfeed/internal/candidates"
	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/dataloader"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/metrics"
	"github.com/feedstudy/rankfeed/internal/orchestrator"
	"github.com/feedstudy/rankfeed/internal/persistence/feedstorage"
	"github.com/feedstudy/rankfeed/internal/persistence/scores"
	"github.com/feedstudy/rankfeed/internal/persistence/sessionmeta"
	"github.com/feedstudy/rankfeed/internal/personalization"
	"github.com/feedstudy/rankfeed/internal/progress"
	"github.com/feedstudy/rankfeed/internal/providers"
	"github.com/feedstudy/rankfeed/internal/ranking"
	"github.com/feedstudy/rankfeed/internal/reranking"
	"github.com/feedstudy/rankfeed/internal/resilience"
	"github.com/feedstudy/rankfeed/internal/scoring"
)

const providerTimeout = 10 * time.Second

// env reads an environment variable, falling back to def when unset or
// empty, the way the teacher's DefaultServerConfig reads HTTP_PORT.
func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// BuildDependencies wires every concrete adapter at the composition
// root (SPEC_FULL "Repository pattern over heterogeneous storage").
// Every provider call except the previous-feed index read is wrapped
// in an internal/resilience.Guard per SPEC_FULL's "Provider
// resilience". The returned close func releases
// the Postgres and session-lock Redis connections.
func BuildDependencies(cfg *config.Config, log zerolog.Logger, reg *metrics.Registry, hub *progress.Hub) (orchestrator.Dependencies, func() error, error) {
	pgDSN := env("RANKFEED_POSTGRES_DSN", "postgres://localhost:5432/rankfeed?sslmode=disable")
	pg, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return orchestrator.Dependencies{}, nil, fmt.Errorf("connect postgres: %w", err)
	}

	mongoURI := env("RANKFEED_MONGO_URI", "mongodb://localhost:27017")
	mongoClient, err := mongo.Connect(context.Background(), mongooptions.Client().ApplyURI(mongoURI))
	if err != nil {
		return orchestrator.Dependencies{}, nil, fmt.Errorf("connect mongo: %w", err)
	}
	mongoDB := mongoClient.Database(env("RANKFEED_MONGO_DB", "rankfeed"))

	redisV9 := redis.NewClient(&redis.Options{Addr: env("RANKFEED_REDIS_ADDR", "localhost:6379")})
	redisV8 := goredisv8.NewClient(&goredisv8.Options{Addr: env("RANKFEED_REDIS_ADDR", "localhost:6379")})

	httpClient := resty.New().SetTimeout(providerTimeout)

	var storage feedstorage.Adapter
	var ttl feedstorage.TTLAdapter
	if bucket := os.Getenv("RANKFEED_S3_BUCKET"); bucket != "" {
		sess := awssession.Must(awssession.NewSession(aws.NewConfig().WithRegion(env("AWS_REGION", "us-east-1"))))
		s3Adapter := feedstorage.NewS3Adapter(s3.New(sess), bucket)
		storage, ttl = s3Adapter, s3Adapter
	} else {
		localAdapter := feedstorage.NewLocalAdapter(env("RANKFEED_LOCAL_FEED_DIR", "./data/feeds"))
		storage, ttl = localAdapter, localAdapter
	}

	studyUsersGuard := resilience.NewGuard("study_users", 20)
	socialGraphGuard := resilience.NewGuard("social_graph", 20)
	superpostersGuard := resilience.NewGuard("superposters", 20)
	postsGuard := resilience.NewGuard("posts", 20)
	exclusionsGuard := resilience.NewGuard("exclusions", 20)
	scoresGuard := resilience.NewGuard("scores_repository", 20)

	scoresRepo := resilience.NewGuardedScoresRepository(
		scores.NewRedisCachedRepository(scores.NewPostgresRepository(pg, providerTimeout), redisV8, 5*time.Minute),
		scoresGuard,
	)

	studyUsers := resilience.NewGuardedStudyUsers(providers.NewMongoStudyUserProvider(mongoDB), studyUsersGuard)
	socialGraph := resilience.NewGuardedSocialGraph(providers.NewMongoSocialGraphProvider(mongoDB), socialGraphGuard)
	superposters := resilience.NewGuardedSuperposters(
		providers.NewSuperposterProvider(pg, providerTimeout, httpClient, env("RANKFEED_SUPERPOSTER_WAREHOUSE_URL", "")),
		superpostersGuard,
	)
	postProvider := resilience.NewGuardedPostProvider(providers.NewPostgresPostProvider(pg, providerTimeout), postsGuard)
	exclusionProvider := resilience.NewGuardedExclusionProvider(providers.NewPostgresExclusionProvider(pg, providerTimeout), exclusionsGuard)
	previousFeeds := providers.NewPostgresPreviousFeedProvider(pg, providerTimeout)
	sessionMeta := sessionmeta.NewAdapter(pg, providerTimeout)

	deps := orchestrator.Dependencies{
		Config:            cfg,
		StudyUsers:        studyUsers,
		SocialGraph:       socialGraph,
		Superposters:      superposters,
		DataLoader:        dataloader.NewLoader(postProvider, exclusionProvider, log),
		Scorer:            scoring.NewScorer(scoresRepo, cfg, log),
		PoolBuilder:       candidates.NewBuilder(cfg, log),
		Personalizer:      personalization.NewContext(log),
		Ranker:            ranking.NewRanker(cfg),
		Reranker:          reranking.NewReranker(cfg),
		PreviousFeeds:     previousFeeds,
		FeedStorage:       storage,
		TTL:               ttl,
		SessionMeta:       sessionMeta,
		Lock:              orchestrator.NewSessionLock(redisV9, 30*time.Minute),
		SuperposterSource: providers.SuperposterSourceLocal,
		WorkerCount:       8,
		Reporter:          hub,
		Metrics:           reg,
		Log:               log,
	}

	closeFn := func() error {
		pg.Close()
		return redisV9.Close()
	}

	return deps, closeFn, nil
}

// RunDefault constructs an Orchestrator with default configuration and
// default (environment-driven) dependencies, then runs one session.
// It is the package-level convenience wrapper callers reach for when
// they don't need to customize dependencies themselves. `cmd/rankfeed
// run` does not call it: that command loads its config from --config and
// calls BuildDependencies and orchestrator.Run itself.
func RunDefault(ctx context.Context, usersFilter []string, exportNewScores, testMode bool) (domain.SessionAnalytics, error) {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.New()
	if err != nil {
		return domain.SessionAnalytics{}, fmt.Errorf("load default config: %w", err)
	}

	reg := metrics.New(prometheus.DefaultRegisterer)

	deps, closeFn, err := BuildDependencies(cfg, log, reg, nil)
	if err != nil {
		return domain.SessionAnalytics{}, fmt.Errorf("build dependencies: %w", err)
	}
	defer closeFn()

	return orchestrator.New(deps).Run(ctx, usersFilter, exportNewScores, testMode)
}
