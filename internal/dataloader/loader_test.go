package dataloader

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedstudy/rankfeed/internal/domain"
)

type fakePostProvider struct {
	posts []domain.Post
	err   error
}

func (f *fakePostProvider) LoadEnriched(ctx context.Context, lookback time.Time) ([]domain.Post, error) {
	return f.posts, f.err
}

type fakeExclusionProvider struct {
	excl Exclusions
	err  error
}

func (f *fakeExclusionProvider) Load(ctx context.Context) (Exclusions, error) {
	return f.excl, f.err
}

func TestLoad_ScenarioD_DedupKeepsLatestConsolidationTimestamp(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	posts := &fakePostProvider{posts: []domain.Post{
		{URI: "X", ConsolidationTimestamp: older, Text: "old"},
		{URI: "X", ConsolidationTimestamp: newer, Text: "new"},
	}}
	loader := NewLoader(posts, &fakeExclusionProvider{}, zerolog.Nop())

	result, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "new", result[0].Text)
}

func TestLoad_ScenarioE_ExcludesByHandle(t *testing.T) {
	posts := &fakePostProvider{posts: []domain.Post{
		{URI: "p1", AuthorHandle: "bad.bsky.social"},
		{URI: "p2", AuthorHandle: "bad.bsky.social"},
		{URI: "p3", AuthorHandle: "good.bsky.social"},
	}}
	excl := &fakeExclusionProvider{excl: Exclusions{
		Handles: map[string]struct{}{"bad.bsky.social": {}},
	}}
	loader := NewLoader(posts, excl, zerolog.Nop())

	result, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "p3", result[0].URI)
}

func TestLoad_ExclusionLoadFailureDegradesToNoExclusions(t *testing.T) {
	posts := &fakePostProvider{posts: []domain.Post{{URI: "p1", AuthorHandle: "anyone"}}}
	excl := &fakeExclusionProvider{err: assert.AnError}
	loader := NewLoader(posts, excl, zerolog.Nop())

	result, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, result, 1)
}

func TestLoad_PreservesOrderAfterDedup(t *testing.T) {
	posts := &fakePostProvider{posts: []domain.Post{
		{URI: "a"}, {URI: "b"}, {URI: "c"},
	}}
	loader := NewLoader(posts, &fakeExclusionProvider{}, zerolog.Nop())

	result, err := loader.Load(context.Background(), 1)
	require.NoError(t, err)
	var uris []string
	for _, p := range result {
		uris = append(uris, p.URI)
	}
	assert.Equal(t, []string{"a", "b", "c"}, uris)
}
