// Package reranking applies the fixed-order business-rule state machine
// to the Ranker's output: clip -> enforce fresh content -> truncate ->
// jitter -> validate (spec §4.9). Grounded on
// original_source/services/rank_score_feeds/services/reranking.py.
package reranking

import (
	"math/rand"

	"github.com/feedstudy/rankfeed/internal/config"
	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// Reranker is stateless; Rerank is safe to call concurrently across
// users as long as each call is given its own RNG (spec §5: per-worker,
// seedable RNG).
type Reranker struct {
	cfg *config.Config
}

// NewReranker constructs a Reranker.
func NewReranker(cfg *config.Config) *Reranker {
	return &Reranker{cfg: cfg}
}

// Rerank runs the fixed state machine over posts. previousFeedURIs is
// the set of URIs in this user's previous feed (empty if none). rng
// drives the jitter step and must be seeded by the caller for
// reproducibility.
func (r *Reranker) Rerank(posts []domain.FeedPost, previousFeedURIs map[string]struct{}, rng *rand.Rand) ([]domain.FeedPost, error) {
	out := clipToPreprocessingWindow(posts, r.cfg.PreprocessingWindow())
	out = enforceFreshContent(out, previousFeedURIs, r.cfg.MaxOldPosts())
	out = truncate(out, r.cfg.MaxFeedLength)
	out = jitter(out, r.cfg.JitterAmount, rng)

	if len(out) < r.cfg.MaxFeedLength {
		return out, rankerrors.ErrUnderlongFeed
	}
	return out, nil
}

func clipToPreprocessingWindow(posts []domain.FeedPost, window int) []domain.FeedPost {
	if len(posts) <= window {
		return posts
	}
	return posts[:window]
}

// enforceFreshContent keeps every post not in previousFeedURIs, and
// admits posts that are in it only up to maxOldPosts, preserving
// relative order (spec §4.9 step 2).
func enforceFreshContent(posts []domain.FeedPost, previousFeedURIs map[string]struct{}, maxOldPosts int) []domain.FeedPost {
	if len(previousFeedURIs) == 0 {
		return posts
	}

	out := make([]domain.FeedPost, 0, len(posts))
	oldAdmitted := 0
	for _, p := range posts {
		if _, isOld := previousFeedURIs[p.URI]; !isOld {
			out = append(out, p)
			continue
		}
		if oldAdmitted < maxOldPosts {
			out = append(out, p)
			oldAdmitted++
		}
	}
	return out
}

func truncate(posts []domain.FeedPost, maxLen int) []domain.FeedPost {
	if len(posts) <= maxLen {
		return posts
	}
	return posts[:maxLen]
}

// jitter walks from the end to the start, drawing a bounded random
// shift for each position and re-inserting the element at its new
// clamped position (spec §4.9 step 4). jitterAmount = 0 is a no-op.
func jitter(posts []domain.FeedPost, jitterAmount int, rng *rand.Rand) []domain.FeedPost {
	if jitterAmount <= 0 || len(posts) == 0 {
		return posts
	}

	out := append([]domain.FeedPost(nil), posts...)
	n := len(out)
	for i := n - 1; i >= 0; i-- {
		delta := rng.Intn(2*jitterAmount+1) - jitterAmount
		newPos := clamp(i+delta, 0, n-1)
		if newPos == i {
			continue
		}
		el := out[i]
		out = append(out[:i], out[i+1:]...)
		out = insertAt(out, newPos, el)
	}
	return out
}

func insertAt(s []domain.FeedPost, pos int, el domain.FeedPost) []domain.FeedPost {
	if pos >= len(s) {
		return append(s, el)
	}
	s = append(s, domain.FeedPost{})
	copy(s[pos+1:], s[pos:])
	s[pos] = el
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
