// Package domain holds the data model shared across the feed-generation
// pipeline: posts, study users, scores, feeds, and session analytics
// (spec §3). Optional attributes are modeled as pointers, the way the
// teacher's persistence layer models nullable columns
// (persistence.PremoveArtifact in the teacher repo uses *float64 for
// every optional score component).
package domain

import "time"

// Source identifies where a post entered the corpus.
type Source string

const (
	SourceFirehose  Source = "firehose"
	SourceMostLiked Source = "most_liked"
)

// Post is the enriched post record ranking operates over (spec §3).
// Optional ML labels and the like count are nil when absent upstream;
// the Scorer pattern-matches on nil rather than zero values so that an
// un-labeled post is never confused with a post labeled "not toxic".
type Post struct {
	URI                    string
	AuthorDID              string
	AuthorHandle           string
	Text                   string
	Source                 Source
	SyncTimestamp          time.Time
	ConsolidationTimestamp time.Time

	LikeCount        *int64
	SimilarityScore  *float64

	SociopoliticalLabeled *bool
	IsSociopolitical      *bool

	PerspectiveLabeled *bool
	ProbToxic          *float64
	ProbConstructive   *float64
	ProbReasoning      *float64

	// Derived at scoring time.
	EngagementScore float64
	TreatmentScore  float64
}

// IsSuccessfullyLabeledSociopolitical reports whether both the
// sociopolitical label succeeded and flagged the post, per spec §3's
// invariant that an unsuccessful label forces non-sociopolitical
// treatment regardless of the IsSociopolitical value.
func (p *Post) IsSuccessfullyLabeledSociopolitical() bool {
	return p.SociopoliticalLabeled != nil && *p.SociopoliticalLabeled &&
		p.IsSociopolitical != nil && *p.IsSociopolitical
}

// HasPerspectiveLabels reports whether the perspective labeler
// succeeded for this post.
func (p *Post) HasPerspectiveLabels() bool {
	return p.PerspectiveLabeled != nil && *p.PerspectiveLabeled
}
