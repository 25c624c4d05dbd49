package providers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// storedFeedPostJSON mirrors domain.StoredFeedPost's JSON shape, read
// back out of the persisted feed column.
type storedFeedPostJSON struct {
	Item        string `json:"item"`
	IsInNetwork bool   `json:"is_in_network"`
}

// PostgresPreviousFeedProvider implements orchestrator.PreviousFeedProvider
// by reading each user's latest exported feed row, reproducing
// original_source's DataLoadingService.load_latest_feeds (there, an
// Athena query over exported feed rows) as a SQL read over the same
// table FeedStorageRepository's writes eventually land in.
type PostgresPreviousFeedProvider struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresPreviousFeedProvider constructs a PostgresPreviousFeedProvider.
func NewPostgresPreviousFeedProvider(db *sqlx.DB, timeout time.Duration) *PostgresPreviousFeedProvider {
	return &PostgresPreviousFeedProvider{db: db, timeout: timeout}
}

// Load returns, for every user_did that has an exported feed
// (including the "default" key), the set of URIs in that user's most
// recent feed.
func (p *PostgresPreviousFeedProvider) Load(ctx context.Context) (map[string]map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryxContext(ctx, `
		SELECT DISTINCT ON (user_did) user_did, feed
		FROM custom_feeds
		ORDER BY user_did, feed_generation_timestamp DESC`)
	if err != nil {
		return nil, rankerrors.NewStorageError("previous_feeds.load", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]struct{})
	for rows.Next() {
		var userDID string
		var feedJSON []byte
		if err := rows.Scan(&userDID, &feedJSON); err != nil {
			return nil, rankerrors.NewStorageError("previous_feeds.load.scan", err)
		}

		var posts []storedFeedPostJSON
		if err := json.Unmarshal(feedJSON, &posts); err != nil {
			continue
		}

		uris := make(map[string]struct{}, len(posts))
		for _, post := range posts {
			uris[post.Item] = struct{}{}
		}
		out[userDID] = uris
	}
	return out, nil
}
