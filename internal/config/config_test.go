package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsAreValid(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxFeedLength)
	assert.Equal(t, 5, cfg.MaxNumTimesUserCanAppearInFeed)
	assert.Equal(t, 3, cfg.KeepCount)
	assert.InDelta(t, 3.0/24.0, cfg.FreshnessDecayRatio, 1e-9)
}

func TestFinalize_RejectsOutOfRangeRatio(t *testing.T) {
	cfg := defaults()
	cfg.MaxInNetworkPostsRatio = 1.5
	_, err := Finalize(cfg)
	require.Error(t, err)
}

func TestFinalize_RejectsZeroMaxFeedLength(t *testing.T) {
	cfg := defaults()
	cfg.MaxFeedLength = 0
	_, err := Finalize(cfg)
	require.Error(t, err)
}

func TestLoad_MissingPathFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/rankfeed.yaml")
	require.NoError(t, err)
	assert.Equal(t, defaults().MaxFeedLength, cfg.MaxFeedLength)
}

func TestDerivedHelpers(t *testing.T) {
	cfg := defaults()
	cfg.MaxFeedLength = 4
	cfg.MaxInNetworkPostsRatio = 0.5
	cfg.MaxPropOldPosts = 0.6
	cfg.FeedPreprocessingMultiplier = 2

	assert.Equal(t, 2, cfg.MaxInNetworkPosts())
	assert.Equal(t, 2, cfg.MaxOldPosts())
	assert.Equal(t, 8, cfg.PreprocessingWindow())
}
