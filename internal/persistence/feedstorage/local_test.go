package feedstorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedstudy/rankfeed/internal/domain"
)

func TestLocalAdapter_WriteFeeds_LayoutMatchesPartitionKey(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalAdapter(dir)

	feeds := []domain.StoredFeed{{FeedID: "user1::2024-06-01T00:00:00Z"}}
	err := adapter.WriteFeeds(context.Background(), feeds, "2024-06-01T00:00:00Z")
	require.NoError(t, err)

	expected := filepath.Join(dir, "custom_feeds", "active", "2024-06-01", "custom_feeds_2024-06-01T00:00:00Z.jsonl")
	assert.FileExists(t, expected)
}

func TestLocalAdapter_WriteSessionAnalytics_Layout(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalAdapter(dir)

	err := adapter.WriteSessionAnalytics(context.Background(), domain.SessionAnalytics{TotalFeeds: 3}, "2024-06-01T00:00:00Z")
	require.NoError(t, err)

	expected := filepath.Join(dir, "feed_analytics", "active", "2024-06-01", "feed_analytics_2024-06-01T00:00:00Z.jsonl")
	assert.FileExists(t, expected)
}

func TestLocalAdapter_MoveToCache_RetiresOldestPartitions(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalAdapter(dir)

	for _, date := range []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "custom_feeds", "active", date), 0o755))
	}

	err := adapter.MoveToCache(context.Background(), "custom_feeds", 2)
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(dir, "custom_feeds", "active", "2024-06-01"))
	assert.NoDirExists(t, filepath.Join(dir, "custom_feeds", "active", "2024-06-02"))
	assert.DirExists(t, filepath.Join(dir, "custom_feeds", "active", "2024-06-03"))
	assert.DirExists(t, filepath.Join(dir, "custom_feeds", "active", "2024-06-04"))
	assert.DirExists(t, filepath.Join(dir, "custom_feeds", "cache", "2024-06-01"))
}

func TestLocalAdapter_MoveToCache_NoopWhenUnderKeepCount(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalAdapter(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "custom_feeds", "active", "2024-06-01"), 0o755))

	err := adapter.MoveToCache(context.Background(), "custom_feeds", 3)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(dir, "custom_feeds", "active", "2024-06-01"))
}
