package domain

// SessionAnalytics is the per-session aggregate computed after all
// user feeds are generated (spec §3, §4.10).
type SessionAnalytics struct {
	TotalFeeds                               int                  `json:"total_feeds"`
	TotalPosts                               int                  `json:"total_posts"`
	TotalInNetworkPosts                      int                  `json:"total_in_network_posts"`
	TotalInNetworkPostsProp                  float64              `json:"total_in_network_posts_prop"`
	TotalUniqueEngagementURIs                int                  `json:"total_unique_engagement_uris"`
	TotalUniqueTreatmentURIs                 int                  `json:"total_unique_treatment_uris"`
	PropOverlapTreatmentURIsInEngagementURIs float64              `json:"prop_overlap_treatment_uris_in_engagement_uris"`
	PropOverlapEngagementURIsInTreatmentURIs float64              `json:"prop_overlap_engagement_uris_in_treatment_uris"`
	TotalFeedsPerCondition                   map[Condition]int    `json:"total_feeds_per_condition"`
	SessionTimestamp                         string               `json:"session_timestamp"`
}
