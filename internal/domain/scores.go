package domain

import "time"

// PostScoreByAlgorithm is a cached (uri, engagement_score,
// treatment_score) triple (spec §3). The cache keeps the row with the
// latest ScoredTimestamp per uri.
type PostScoreByAlgorithm struct {
	URI             string
	EngagementScore float64
	TreatmentScore  float64
}

// ScoredPost is what gets persisted back to the ScoresRepository after
// a fresh (non-cached) score computation. Text is carried along purely
// for operator debuggability (SPEC_FULL §"Supplemented features" 1),
// mirroring original_source's ScoredPostModel.
type ScoredPost struct {
	URI             string
	Text            string
	Source          Source
	EngagementScore float64
	TreatmentScore  float64
	ScoredTimestamp time.Time
}
