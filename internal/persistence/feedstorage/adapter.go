// Package feedstorage implements FeedStorageRepository / FeedTTLAdapter
// (spec §4.3, §6): S3-backed and local-filesystem adapters, both keyed
// by a partition-date derived from the session timestamp. Grounded on
// original_source/services/rank_score_feeds/storage/adapters.py
// (S3FeedStorageAdapter, LocalFeedStorageAdapter).
package feedstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// Root key prefixes for the two artifact kinds the Orchestrator writes
// and later retires via TTLAdapter.MoveToCache (spec §4.3, §6).
const (
	FeedsRootKey     = "custom_feeds"
	AnalyticsRootKey = "feed_analytics"
)

// Adapter is the capability interface the Orchestrator writes through
// (spec §6's FeedStorageAdapter).
type Adapter interface {
	WriteFeeds(ctx context.Context, feeds []domain.StoredFeed, sessionTimestamp string) error
	WriteSessionAnalytics(ctx context.Context, analytics domain.SessionAnalytics, sessionTimestamp string) error
}

// TTLAdapter retires old artifacts, keeping the newest keepCount under
// a prefix (spec §6's FeedTTLAdapter).
type TTLAdapter interface {
	MoveToCache(ctx context.Context, prefix string, keepCount int) error
}

// partitionDate derives a sortable YYYY-MM-DD partition key from a
// session timestamp, the way the original's
// get_partition_date_from_timestamp does for key layout (SPEC_FULL
// "Supplemented features" 4).
func partitionDate(sessionTimestamp string) string {
	if len(sessionTimestamp) >= 10 {
		return sessionTimestamp[:10]
	}
	return sessionTimestamp
}

func feedsKey(sessionTimestamp string) string {
	return fmt.Sprintf("%s/active/%s/custom_feeds_%s.jsonl", FeedsRootKey, partitionDate(sessionTimestamp), sessionTimestamp)
}

func analyticsKey(sessionTimestamp string) string {
	return fmt.Sprintf("%s/active/%s/feed_analytics_%s.jsonl", AnalyticsRootKey, partitionDate(sessionTimestamp), sessionTimestamp)
}

// keyDate extracts the partition-date path segment from a generated
// key, used by TTL sort/keep logic.
func keyDate(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func encodeJSONL(rows []domain.StoredFeed) ([]byte, error) {
	var buf strings.Builder
	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}
	return []byte(buf.String()), nil
}
