// Package stats computes per-feed and per-session analytics (spec
// §4.10). Grounded on
// original_source/services/rank_score_feeds/services/feed_statistics.py
// and feed_generation_session_analytics.py.
package stats

import (
	"math"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// FeedStatistics computes the per-feed statistics payload attached to
// each stored feed (spec §4.10).
func FeedStatistics(posts []domain.FeedPost) domain.FeedStatistics {
	totalInNetwork := 0
	for _, p := range posts {
		if p.IsInNetwork {
			totalInNetwork++
		}
	}

	prop := 0.0
	if len(posts) > 0 {
		prop = round(float64(totalInNetwork)/float64(len(posts)), 3)
	}

	return domain.FeedStatistics{
		FeedLength:     len(posts),
		TotalInNetwork: totalInNetwork,
		PropInNetwork:  prop,
	}
}

// SessionInput is one user's feed-generation outcome, folded into
// session analytics. FeedURIs is that user's final, post-rerank feed —
// the engagement/treatment unique-URI and overlap metrics are computed
// over the union of feed URIs per condition bucket (spec §4.10,
// Scenario F), not over the candidate pools.
type SessionInput struct {
	Condition      domain.Condition
	FeedLength     int
	TotalInNetwork int
	FeedURIs       []string
}

// Session computes the session-wide analytics over every successful
// user outcome (spec §4.10). sessionTimestamp is passed through
// verbatim — the Orchestrator owns timestamp generation.
func Session(inputs []SessionInput, sessionTimestamp string) domain.SessionAnalytics {
	totalFeeds := len(inputs)
	totalPosts := 0
	totalInNetworkPosts := 0
	engagementURIs := make(map[string]struct{})
	treatmentURIs := make(map[string]struct{})
	perCondition := map[domain.Condition]int{
		domain.ConditionReverseChronological:       0,
		domain.ConditionEngagement:                 0,
		domain.ConditionRepresentativeDiversification: 0,
	}

	for _, in := range inputs {
		totalPosts += in.FeedLength
		totalInNetworkPosts += in.TotalInNetwork
		perCondition[in.Condition]++

		switch in.Condition {
		case domain.ConditionEngagement:
			for _, uri := range in.FeedURIs {
				engagementURIs[uri] = struct{}{}
			}
		case domain.ConditionRepresentativeDiversification:
			for _, uri := range in.FeedURIs {
				treatmentURIs[uri] = struct{}{}
			}
		}
	}

	totalInNetworkProp := 0.0
	if totalPosts > 0 {
		totalInNetworkProp = round(float64(totalInNetworkPosts)/float64(totalPosts), 2)
	}

	overlapCount := intersectionSize(engagementURIs, treatmentURIs)

	propOverlapTreatmentInEngagement := 0.0
	if len(treatmentURIs) > 0 {
		propOverlapTreatmentInEngagement = round(float64(overlapCount)/float64(len(treatmentURIs)), 3)
	}

	propOverlapEngagementInTreatment := 0.0
	if len(engagementURIs) > 0 {
		propOverlapEngagementInTreatment = round(float64(overlapCount)/float64(len(engagementURIs)), 3)
	}

	return domain.SessionAnalytics{
		TotalFeeds:                               totalFeeds,
		TotalPosts:                               totalPosts,
		TotalInNetworkPosts:                       totalInNetworkPosts,
		TotalInNetworkPostsProp:                   totalInNetworkProp,
		TotalUniqueEngagementURIs:                 len(engagementURIs),
		TotalUniqueTreatmentURIs:                  len(treatmentURIs),
		PropOverlapTreatmentURIsInEngagementURIs: propOverlapTreatmentInEngagement,
		PropOverlapEngagementURIsInTreatmentURIs: propOverlapEngagementInTreatment,
		TotalFeedsPerCondition:                   perCondition,
		SessionTimestamp:                         sessionTimestamp,
	}
}

func intersectionSize(a, b map[string]struct{}) int {
	count := 0
	for uri := range a {
		if _, ok := b[uri]; ok {
			count++
		}
	}
	return count
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
