package scoring

import (
	"math"

	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
)

// effectiveLikes resolves the like count used for likeability, falling
// through the documented defaults in spec §4.5: the real like_count if
// present, else average_popular_post_like_count*similarity_score, else
// average_popular_post_like_count*default_similarity_score. It never
// panics: a malformed like count is treated as absent.
func effectiveLikes(cfg *config.Config, p *domain.Post) float64 {
	if p.LikeCount != nil && *p.LikeCount >= 0 {
		return float64(*p.LikeCount)
	}
	if p.SimilarityScore != nil {
		return float64(cfg.AveragePopularPostLikeCount) * *p.SimilarityScore
	}
	return float64(cfg.AveragePopularPostLikeCount) * cfg.DefaultSimilarityScore
}

// likeability returns ln(effective_likes + 1).
func likeability(cfg *config.Config, p *domain.Post) float64 {
	return math.Log(effectiveLikes(cfg, p) + 1)
}
