// Package providers' postgres.go implements PostProvider and
// ExclusionProvider (spec §6) against the enriched-post and
// exclusion-list tables. Grounded on the teacher's
// internal/persistence/postgres/trades_repo.go (sqlx + per-call
// context.WithTimeout, pq.Error wrapping).
package providers

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/feedstudy/rankfeed/internal/dataloader"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// PostgresPostProvider implements dataloader.PostProvider against the
// enriched_posts table.
type PostgresPostProvider struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresPostProvider constructs a PostgresPostProvider.
func NewPostgresPostProvider(db *sqlx.DB, timeout time.Duration) *PostgresPostProvider {
	return &PostgresPostProvider{db: db, timeout: timeout}
}

type enrichedPostRow struct {
	URI                    string     `db:"uri"`
	AuthorDID              string     `db:"author_did"`
	AuthorHandle           string     `db:"author_handle"`
	Text                   string     `db:"text"`
	Source                 string     `db:"source"`
	SyncTimestamp          time.Time  `db:"sync_timestamp"`
	ConsolidationTimestamp time.Time  `db:"consolidation_timestamp"`
	LikeCount              *int64     `db:"like_count"`
	SimilarityScore        *float64   `db:"similarity_score"`
	SociopoliticalLabeled  *bool      `db:"sociopolitical_labeled"`
	IsSociopolitical       *bool      `db:"is_sociopolitical"`
	PerspectiveLabeled     *bool      `db:"perspective_labeled"`
	ProbToxic              *float64   `db:"prob_toxic"`
	ProbConstructive       *float64   `db:"prob_constructive"`
	ProbReasoning          *float64   `db:"prob_reasoning"`
}

// LoadEnriched implements dataloader.PostProvider (spec §4.4): every
// enriched post whose consolidation completed at or after lookback.
// consolidation_timestamp, not sync_timestamp, is the field the
// freshness-lookback window is defined against (spec §§57,106) — a
// post can sync well before lookback and still finish enrichment
// inside the window.
func (p *PostgresPostProvider) LoadEnriched(ctx context.Context, lookback time.Time) ([]domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryxContext(ctx, `
		SELECT uri, author_did, author_handle, text, source, sync_timestamp,
		       consolidation_timestamp, like_count, similarity_score,
		       sociopolitical_labeled, is_sociopolitical,
		       perspective_labeled, prob_toxic, prob_constructive, prob_reasoning
		FROM enriched_posts
		WHERE consolidation_timestamp >= $1`, lookback)
	if err != nil {
		return nil, rankerrors.NewStorageError("posts.load_enriched", err)
	}
	defer rows.Close()

	var out []domain.Post
	for rows.Next() {
		var r enrichedPostRow
		if err := rows.StructScan(&r); err != nil {
			return nil, rankerrors.NewStorageError("posts.load_enriched.scan", err)
		}
		out = append(out, domain.Post{
			URI:                    r.URI,
			AuthorDID:              r.AuthorDID,
			AuthorHandle:           r.AuthorHandle,
			Text:                   r.Text,
			Source:                 domain.Source(r.Source),
			SyncTimestamp:          r.SyncTimestamp,
			ConsolidationTimestamp: r.ConsolidationTimestamp,
			LikeCount:              r.LikeCount,
			SimilarityScore:        r.SimilarityScore,
			SociopoliticalLabeled:  r.SociopoliticalLabeled,
			IsSociopolitical:       r.IsSociopolitical,
			PerspectiveLabeled:     r.PerspectiveLabeled,
			ProbToxic:              r.ProbToxic,
			ProbConstructive:       r.ProbConstructive,
			ProbReasoning:          r.ProbReasoning,
		})
	}
	return out, nil
}

// PostgresExclusionProvider implements dataloader.ExclusionProvider
// against the manual exclude list table, reproducing
// original_source's manual_excludelist.load_users_to_exclude() as a
// repository read.
type PostgresExclusionProvider struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresExclusionProvider constructs a PostgresExclusionProvider.
func NewPostgresExclusionProvider(db *sqlx.DB, timeout time.Duration) *PostgresExclusionProvider {
	return &PostgresExclusionProvider{db: db, timeout: timeout}
}

// Load implements dataloader.ExclusionProvider.
func (p *PostgresExclusionProvider) Load(ctx context.Context) (dataloader.Exclusions, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryxContext(ctx, `SELECT handle, did FROM manual_exclude_list`)
	if err != nil {
		return dataloader.Exclusions{}, rankerrors.NewStorageError("exclusions.load", err)
	}
	defer rows.Close()

	handles := make(map[string]struct{})
	dids := make(map[string]struct{})
	for rows.Next() {
		var handle, did string
		if err := rows.Scan(&handle, &did); err != nil {
			return dataloader.Exclusions{}, rankerrors.NewStorageError("exclusions.load.scan", err)
		}
		if handle != "" {
			handles[handle] = struct{}{}
		}
		if did != "" {
			dids[did] = struct{}{}
		}
	}
	return dataloader.Exclusions{Handles: handles, DIDs: dids}, nil
}
