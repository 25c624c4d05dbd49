package candidates

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
)

func scenarioAPosts() []domain.Post {
	return []domain.Post{
		{URI: "P1", AuthorDID: "A", Source: domain.SourceFirehose, EngagementScore: 5.0},
		{URI: "P2", AuthorDID: "A", Source: domain.SourceFirehose, EngagementScore: 4.0},
		{URI: "P3", AuthorDID: "B", Source: domain.SourceMostLiked, EngagementScore: 3.0},
		{URI: "P4", AuthorDID: "C", Source: domain.SourceMostLiked, EngagementScore: 2.0},
		{URI: "P5", AuthorDID: "D", Source: domain.SourceFirehose, EngagementScore: 1.0},
	}
}

func TestBuild_ScenarioA_EngagementPoolSortOrder(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxNumTimesUserCanAppearInFeed = 3
	finalized, err := config.Finalize(cfg)
	require.NoError(t, err)

	pools := NewBuilder(finalized, zerolog.Nop()).Build(scenarioAPosts())

	var uris []string
	for _, p := range pools.Engagement {
		uris = append(uris, p.URI)
	}
	assert.Equal(t, []string{"P1", "P2", "P3", "P4", "P5"}, uris)
}

func TestBuild_ReverseChronologicalOnlyFirehose(t *testing.T) {
	finalized, err := config.New()
	require.NoError(t, err)

	pools := NewBuilder(finalized, zerolog.Nop()).Build(scenarioAPosts())
	for _, p := range pools.ReverseChronological {
		assert.Equal(t, domain.SourceFirehose, p.Source)
	}
	assert.Len(t, pools.ReverseChronological, 3)
}

func TestBuild_PerAuthorCapEnforced(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxNumTimesUserCanAppearInFeed = 1
	finalized, err := config.Finalize(cfg)
	require.NoError(t, err)

	posts := []domain.Post{
		{URI: "x1", AuthorDID: "A", EngagementScore: 9},
		{URI: "x2", AuthorDID: "A", EngagementScore: 8},
		{URI: "x3", AuthorDID: "A", EngagementScore: 7},
	}
	pools := NewBuilder(finalized, zerolog.Nop()).Build(posts)
	require.Len(t, pools.Engagement, 1)
	assert.Equal(t, "x1", pools.Engagement[0].URI)
}

func TestBuild_EmptyReverseChronologicalReturnsEmptyNotNil(t *testing.T) {
	finalized, err := config.New()
	require.NoError(t, err)

	posts := []domain.Post{{URI: "p1", AuthorDID: "A", Source: domain.SourceMostLiked}}
	pools := NewBuilder(finalized, zerolog.Nop()).Build(posts)
	assert.NotNil(t, pools.ReverseChronological)
	assert.Empty(t, pools.ReverseChronological)
}
