package scoring

import (
	"math"
	"time"

	"github.com/feedstudy/rankfeed/internal/config"
)

// postAgeHours clamps the elapsed time since syncedAt to
// [0, lookback_days*24], per spec §4.5.
func postAgeHours(syncedAt, now time.Time, lookbackDays int) float64 {
	hours := now.Sub(syncedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	maxHours := float64(lookbackDays * 24)
	if hours > maxHours {
		hours = maxHours
	}
	return hours
}

// linearFreshness implements the linear decay mode: max(base - ratio*age, 0).
func linearFreshness(cfg *config.Config, ageHours float64) float64 {
	v := cfg.DefaultMaxFreshnessScore - cfg.FreshnessDecayRatio*ageHours
	return math.Max(v, 0)
}

// exponentialFreshness implements the default decay mode:
// base * (exponential_base * lambda_factor)^age.
func exponentialFreshness(cfg *config.Config, ageHours float64) float64 {
	decay := cfg.FreshnessExponentialBase * cfg.FreshnessLambdaFactor
	return cfg.DefaultMaxFreshnessScore * math.Pow(decay, ageHours)
}

// Mode selects the freshness decay function. Exponential is the
// spec-default; Linear is kept for operators who want the older curve.
type Mode int

const (
	ModeExponential Mode = iota
	ModeLinear
)

func freshness(cfg *config.Config, mode Mode, syncedAt, now time.Time) float64 {
	age := postAgeHours(syncedAt, now, cfg.DefaultScoringLookbackDays)
	if mode == ModeLinear {
		return linearFreshness(cfg, age)
	}
	return exponentialFreshness(cfg, age)
}
