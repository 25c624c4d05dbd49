// Package scores persists and caches PostScoreByAlgorithm rows (spec
// §4.2). Grounded on the teacher's
// internal/persistence/postgres/trades_repo.go (sqlx + pq.Error
// handling, per-call context timeout) for the Postgres half, and the
// teacher's dual redis dependency for the cache half.
package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// PostgresRepository is the durable ScoresRepository implementation.
type PostgresRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db *sqlx.DB, timeout time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, timeout: timeout}
}

// LoadCachedScores returns rows within lookbackDays, deduplicated by
// uri keeping the latest scored_timestamp, dropping rows with either
// score unset. On storage failure it returns an empty slice (the
// caller degrades, per spec §4.2); it never returns a StorageError
// for this read path.
func (r *PostgresRepository) LoadCachedScores(ctx context.Context, lookbackDays int) ([]domain.PostScoreByAlgorithm, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -lookbackDays)

	query := `
		SELECT DISTINCT ON (uri) uri, engagement_score, treatment_score
		FROM post_scores
		WHERE scored_timestamp >= $1
		  AND engagement_score IS NOT NULL
		  AND treatment_score IS NOT NULL
		ORDER BY uri, scored_timestamp DESC`

	rows, err := r.db.QueryxContext(ctx, query, cutoff)
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	var out []domain.PostScoreByAlgorithm
	for rows.Next() {
		var row domain.PostScoreByAlgorithm
		if err := rows.Scan(&row.URI, &row.EngagementScore, &row.TreatmentScore); err != nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// SaveScores idempotently appends new rows (spec §4.2); a no-op on an
// empty slice.
func (r *PostgresRepository) SaveScores(ctx context.Context, newScores []domain.ScoredPost) error {
	if len(newScores) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return rankerrors.NewStorageError("save_scores.begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO post_scores (uri, text, source, engagement_score, treatment_score, scored_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (uri, scored_timestamp) DO NOTHING`)
	if err != nil {
		return rankerrors.NewStorageError("save_scores.prepare", err)
	}
	defer stmt.Close()

	for _, s := range newScores {
		if _, err := stmt.ExecContext(ctx, s.URI, s.Text, string(s.Source), s.EngagementScore, s.TreatmentScore, s.ScoredTimestamp); err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				return rankerrors.NewStorageError("save_scores.insert", fmt.Errorf("pq code %s: %w", pqErr.Code, err))
			}
			return rankerrors.NewStorageError("save_scores.insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return rankerrors.NewStorageError("save_scores.commit", err)
	}
	return nil
}

// cachedScoreJSON is the Redis-cached representation of one score row.
type cachedScoreJSON struct {
	EngagementScore float64 `json:"engagement_score"`
	TreatmentScore  float64 `json:"treatment_score"`
}

// RedisCachedRepository wraps a ScoresRepository with a read-through
// Redis cache holding one entry per lookback window, expiring after the
// ttl passed to NewRedisCachedRepository. Grounded on
// the teacher's go-redis/v8 dependency (mockable with redismock/v8).
type RedisCachedRepository struct {
	inner  *PostgresRepository
	client *redis.Client
	ttl    time.Duration

	mu           sync.Mutex
	seenLookback map[int]struct{}
}

// NewRedisCachedRepository constructs a RedisCachedRepository.
func NewRedisCachedRepository(inner *PostgresRepository, client *redis.Client, ttl time.Duration) *RedisCachedRepository {
	return &RedisCachedRepository{
		inner:        inner,
		client:       client,
		ttl:          ttl,
		seenLookback: make(map[int]struct{}),
	}
}

func cacheKey(lookbackDays int) string {
	return fmt.Sprintf("rankfeed:scores:lookback:%d", lookbackDays)
}

// LoadCachedScores consults Redis first (per-uri keys under the
// `score:` prefix are not individually addressable at this interface,
// so the read-through cache stores the whole lookback batch under one
// key, keyed by the lookback window itself). The lookbackDays value is
// remembered so SaveScores can invalidate exactly the keys this
// process has populated.
func (r *RedisCachedRepository) LoadCachedScores(ctx context.Context, lookbackDays int) ([]domain.PostScoreByAlgorithm, error) {
	r.mu.Lock()
	if r.seenLookback == nil {
		r.seenLookback = make(map[int]struct{})
	}
	r.seenLookback[lookbackDays] = struct{}{}
	r.mu.Unlock()

	key := cacheKey(lookbackDays)

	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		var rows []domain.PostScoreByAlgorithm
		if jsonErr := json.Unmarshal([]byte(raw), &rows); jsonErr == nil {
			return rows, nil
		}
	}

	rows, loadErr := r.inner.LoadCachedScores(ctx, lookbackDays)
	if loadErr != nil {
		return nil, loadErr
	}

	if encoded, marshalErr := json.Marshal(rows); marshalErr == nil {
		_ = r.client.Set(ctx, key, encoded, r.ttl).Err()
	}
	return rows, nil
}

// SaveScores delegates to the durable store and invalidates the cache
// for every lookback window this process has actually cached (per the
// lookbackDays values observed by LoadCachedScores), so the next read
// observes the new rows regardless of what
// cfg.DefaultScoringLookbackDays is configured to.
func (r *RedisCachedRepository) SaveScores(ctx context.Context, newScores []domain.ScoredPost) error {
	if err := r.inner.SaveScores(ctx, newScores); err != nil {
		return err
	}

	r.mu.Lock()
	keys := make([]string, 0, len(r.seenLookback))
	for lookbackDays := range r.seenLookback {
		keys = append(keys, cacheKey(lookbackDays))
	}
	r.mu.Unlock()

	if len(keys) > 0 {
		_ = r.client.Del(ctx, keys...).Err()
	}
	return nil
}
