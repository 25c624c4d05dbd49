// Package config centralizes feed-generation configuration as a single
// immutable, validated value (spec §4.1), the way the teacher centralizes
// tunables in one config struct rather than module-level globals.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// Config is the validated, immutable configuration for one feed
// generation session. Construct via New or Load; never mutate a
// Config after validation succeeds.
type Config struct {
	MaxFeedLength                    int     `yaml:"max_feed_length" validate:"required,gt=0"`
	MaxNumTimesUserCanAppearInFeed    int     `yaml:"max_num_times_user_can_appear_in_feed" validate:"required,gt=0"`
	MaxPropOldPosts                   float64 `yaml:"max_prop_old_posts" validate:"gte=0,lte=1"`
	MaxInNetworkPostsRatio            float64 `yaml:"max_in_network_posts_ratio" validate:"gte=0,lte=1"`
	FeedPreprocessingMultiplier       int     `yaml:"feed_preprocessing_multiplier" validate:"required,gt=0"`

	CoefToxicity          float64 `yaml:"coef_toxicity" validate:"gt=0"`
	CoefConstructiveness  float64 `yaml:"coef_constructiveness" validate:"gt=0"`
	SuperposterCoef       float64 `yaml:"superposter_coef" validate:"gt=0,lte=1"`
	EngagementCoef        float64 `yaml:"engagement_coef" validate:"gt=0"`

	DefaultMaxFreshnessScore  float64 `yaml:"default_max_freshness_score" validate:"gt=0"`
	FreshnessLambdaFactor     float64 `yaml:"freshness_lambda_factor" validate:"gt=0,lte=1"`
	FreshnessExponentialBase  float64 `yaml:"freshness_exponential_base" validate:"gt=0"`

	DefaultScoringLookbackDays int `yaml:"default_scoring_lookback_days" validate:"required,gt=0"`

	DefaultSimilarityScore      float64 `yaml:"default_similarity_score" validate:"gte=0,lte=1"`
	AveragePopularPostLikeCount int     `yaml:"average_popular_post_like_count" validate:"required,gt=0"`

	JitterAmount int `yaml:"jitter_amount" validate:"gte=0"`
	KeepCount    int `yaml:"keep_count" validate:"required,gt=0"`

	// FreshnessDecayRatio is derived, not configured: see §4.1.
	// default_max_freshness_score / (default_lookback_days * 24).
	FreshnessDecayRatio float64 `yaml:"-"`
}

// defaults mirrors the field-by-field defaults in spec §4.1 /
// original_source's FeedConfig dataclass.
func defaults() Config {
	return Config{
		MaxFeedLength:                 100,
		MaxNumTimesUserCanAppearInFeed: 5,
		MaxPropOldPosts:               0.6,
		MaxInNetworkPostsRatio:        0.5,
		FeedPreprocessingMultiplier:   2,

		CoefToxicity:         0.965,
		CoefConstructiveness: 1.02,
		SuperposterCoef:      0.95,
		EngagementCoef:       1.0,

		DefaultMaxFreshnessScore: 3.0,
		FreshnessLambdaFactor:    0.95,
		FreshnessExponentialBase: 1.0,

		DefaultScoringLookbackDays: 1,

		DefaultSimilarityScore:      0.8,
		AveragePopularPostLikeCount: 100,

		JitterAmount: 2,
		KeepCount:    3,
	}
}

var validate = validator.New()

// New returns the default Config after computing derived fields and
// validating it. Callers that need non-default values should use
// Load or mutate a copy of Defaults() before calling Finalize.
func New() (*Config, error) {
	cfg := defaults()
	return Finalize(cfg)
}

// Defaults returns the spec's default values as a plain (unvalidated,
// un-derived) struct, for callers building a custom configuration.
func Defaults() Config {
	return defaults()
}

// Load reads YAML configuration from path, overlaying it onto the
// documented defaults, and validates the result. A missing path is not
// an error: it falls back to pure defaults (the orchestrator can always
// run with the documented values, matching the teacher's
// scheduler.NewScheduler falling back to config/scheduler.yaml).
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Finalize(cfg)
			}
			return nil, &rankerrors.ConfigError{Field: "path", Reason: err.Error()}
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, &rankerrors.ConfigError{Field: "yaml", Reason: err.Error()}
		}
	}
	return Finalize(cfg)
}

// Finalize computes derived fields and validates cfg, returning a
// pointer to the immutable result. Callers must not mutate the
// returned Config.
func Finalize(cfg Config) (*Config, error) {
	cfg.FreshnessDecayRatio = cfg.DefaultMaxFreshnessScore / float64(cfg.DefaultScoringLookbackDays*24)

	if err := validate.Struct(cfg); err != nil {
		return nil, &rankerrors.ConfigError{Field: "config", Reason: err.Error()}
	}
	if cfg.MaxFeedLength <= 0 {
		return nil, &rankerrors.ConfigError{Field: "max_feed_length", Reason: "must be > 0"}
	}
	return &cfg, nil
}

// MaxInNetworkPosts returns floor(max_feed_length * max_in_network_posts_ratio)
// (spec §4.1, used by the Ranker).
func (c *Config) MaxInNetworkPosts() int {
	return int(float64(c.MaxFeedLength) * c.MaxInNetworkPostsRatio)
}

// MaxOldPosts returns floor(max_feed_length * max_prop_old_posts)
// (spec §4.1, used by the Reranker).
func (c *Config) MaxOldPosts() int {
	return int(float64(c.MaxFeedLength) * c.MaxPropOldPosts)
}

// PreprocessingWindow returns max_feed_length * feed_preprocessing_multiplier
// (spec §4.1, used by the Reranker's first clip stage).
func (c *Config) PreprocessingWindow() int {
	return c.MaxFeedLength * c.FeedPreprocessingMultiplier
}
