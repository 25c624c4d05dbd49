package feedstorage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// LocalAdapter writes feeds/analytics under a root directory, mirroring
// the S3 key layout one-to-one, for dev and test use.
type LocalAdapter struct {
	root string
}

// NewLocalAdapter constructs a LocalAdapter rooted at dir.
func NewLocalAdapter(dir string) *LocalAdapter {
	return &LocalAdapter{root: dir}
}

func (a *LocalAdapter) WriteFeeds(ctx context.Context, feeds []domain.StoredFeed, sessionTimestamp string) error {
	body, err := encodeJSONL(feeds)
	if err != nil {
		return rankerrors.NewStorageError("write_feeds.encode", err)
	}
	return a.writeFile(feedsKey(sessionTimestamp), body)
}

func (a *LocalAdapter) WriteSessionAnalytics(ctx context.Context, analytics domain.SessionAnalytics, sessionTimestamp string) error {
	encoded, err := json.Marshal(analytics)
	if err != nil {
		return rankerrors.NewStorageError("write_analytics.encode", err)
	}
	return a.writeFile(analyticsKey(sessionTimestamp), append(encoded, '\n'))
}

func (a *LocalAdapter) writeFile(relKey string, body []byte) error {
	path := filepath.Join(a.root, filepath.FromSlash(relKey))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return rankerrors.NewStorageError("write_file.mkdir", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return rankerrors.NewStorageError("write_file", err)
	}
	return nil
}

// MoveToCache moves partition-date directories under prefix/active/
// older than the newest keepCount into prefix/cache/.
func (a *LocalAdapter) MoveToCache(ctx context.Context, prefix string, keepCount int) error {
	activeDir := filepath.Join(a.root, prefix, "active")
	entries, err := os.ReadDir(activeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rankerrors.NewStorageError("ttl.readdir", err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() {
			dates = append(dates, e.Name())
		}
	}
	sort.Strings(dates)
	if len(dates) <= keepCount {
		return nil
	}

	toRetire := dates[:len(dates)-keepCount]
	cacheDir := filepath.Join(a.root, prefix, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return rankerrors.NewStorageError("ttl.mkdir", err)
	}

	for _, d := range toRetire {
		src := filepath.Join(activeDir, d)
		dst := filepath.Join(cacheDir, d)
		if err := os.Rename(src, dst); err != nil {
			return rankerrors.NewStorageError("ttl.rename", err)
		}
	}
	return nil
}
