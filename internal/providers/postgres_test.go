package providers

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestPostgresPostProvider_LoadEnriched_MapsRows(t *testing.T) {
	db, mock := newMockPostgresDB(t)
	provider := NewPostgresPostProvider(db, 2*time.Second)

	likeCount := int64(5)
	synced := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"uri", "author_did", "author_handle", "text", "source", "sync_timestamp",
		"consolidation_timestamp", "like_count", "similarity_score",
		"sociopolitical_labeled", "is_sociopolitical",
		"perspective_labeled", "prob_toxic", "prob_constructive", "prob_reasoning",
	}).AddRow("uri1", "did:plc:a", "alice.bsky.social", "hello", "firehose", synced,
		synced, &likeCount, nil, nil, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT uri, author_did").
		WithArgs(synced).
		WillReturnRows(rows)

	posts, err := provider.LoadEnriched(context.Background(), synced)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "uri1", posts[0].URI)
	assert.Equal(t, int64(5), *posts[0].LikeCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresPostProvider_LoadEnriched_FiltersOnConsolidationTimestamp
// pins the WHERE clause to consolidation_timestamp, not sync_timestamp:
// spec §57's sync_timestamp <= consolidation_timestamp <= now invariant
// means a post can sync well before the lookback cutoff and still
// finish enrichment inside the window, so filtering on sync_timestamp
// would wrongly drop it (spec §106).
func TestPostgresPostProvider_LoadEnriched_FiltersOnConsolidationTimestamp(t *testing.T) {
	db, mock := newMockPostgresDB(t)
	provider := NewPostgresPostProvider(db, 2*time.Second)

	lookback := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?i)WHERE consolidation_timestamp >= \$1`).
		WithArgs(lookback).
		WillReturnRows(sqlmock.NewRows([]string{
			"uri", "author_did", "author_handle", "text", "source", "sync_timestamp",
			"consolidation_timestamp", "like_count", "similarity_score",
			"sociopolitical_labeled", "is_sociopolitical",
			"perspective_labeled", "prob_toxic", "prob_constructive", "prob_reasoning",
		}))

	_, err := provider.LoadEnriched(context.Background(), lookback)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPostProvider_LoadEnriched_WrapsQueryFailure(t *testing.T) {
	db, mock := newMockPostgresDB(t)
	provider := NewPostgresPostProvider(db, 2*time.Second)

	mock.ExpectQuery("SELECT uri, author_did").WillReturnError(assert.AnError)

	_, err := provider.LoadEnriched(context.Background(), time.Now())
	require.Error(t, err)
}

func TestPostgresExclusionProvider_Load_SplitsHandlesAndDIDs(t *testing.T) {
	db, mock := newMockPostgresDB(t)
	provider := NewPostgresExclusionProvider(db, 2*time.Second)

	rows := sqlmock.NewRows([]string{"handle", "did"}).
		AddRow("spammer.bsky.social", "").
		AddRow("", "did:plc:excluded")

	mock.ExpectQuery("SELECT handle, did FROM manual_exclude_list").WillReturnRows(rows)

	exclusions, err := provider.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, exclusions.Handles, "spammer.bsky.social")
	assert.Contains(t, exclusions.DIDs, "did:plc:excluded")
	assert.Len(t, exclusions.Handles, 1)
	assert.Len(t, exclusions.DIDs, 1)
}

func TestPostgresExclusionProvider_Load_WrapsQueryFailure(t *testing.T) {
	db, mock := newMockPostgresDB(t)
	provider := NewPostgresExclusionProvider(db, 2*time.Second)

	mock.ExpectQuery("SELECT handle, did FROM manual_exclude_list").WillReturnError(assert.AnError)

	_, err := provider.Load(context.Background())
	require.Error(t, err)
}
