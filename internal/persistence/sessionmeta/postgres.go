// Package sessionmeta implements SessionMetadataAdapter (spec §6):
// recording one row per completed session for operator/ops queries.
// Grounded on the teacher's internal/persistence/postgres/regime_repo.go
// (single-table insert, sqlx + pq.Error handling).
package sessionmeta

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// Adapter is the SessionMetadataAdapter implementation.
type Adapter struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAdapter constructs an Adapter.
func NewAdapter(db *sqlx.DB, timeout time.Duration) *Adapter {
	return &Adapter{db: db, timeout: timeout}
}

// InsertSessionMetadata records one SessionAnalytics row, wrapped as a
// StorageError on failure (spec §4.11 step 10).
func (a *Adapter) InsertSessionMetadata(ctx context.Context, analytics domain.SessionAnalytics) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := json.Marshal(analytics)
	if err != nil {
		return rankerrors.NewStorageError("session_metadata.encode", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO feed_generation_sessions (session_timestamp, analytics)
		VALUES ($1, $2)
		ON CONFLICT (session_timestamp) DO UPDATE SET analytics = EXCLUDED.analytics`,
		analytics.SessionTimestamp, payload)
	if err != nil {
		return rankerrors.NewStorageError("session_metadata.insert", err)
	}
	return nil
}
