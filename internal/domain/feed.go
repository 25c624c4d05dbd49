package domain

import "time"

// FeedPost is one entry in a ranked or rerank feed: a post URI tagged
// with whether it came from the user's in-network subset (spec §3).
type FeedPost struct {
	URI         string
	IsInNetwork bool
}

// Feed is the final, length-bounded ordering produced for one user on
// one session (spec §3).
type Feed struct {
	UserDID            string
	BlueskyHandle      string
	Condition          Condition
	Posts              []FeedPost
	GenerationTimestamp time.Time
}

// FeedStatistics is the per-feed analytics payload, JSON-encoded and
// attached to the stored feed record (spec §4.10).
type FeedStatistics struct {
	FeedLength      int     `json:"feed_length"`
	TotalInNetwork  int     `json:"total_in_network"`
	PropInNetwork   float64 `json:"prop_in_network"`
}

// StoredFeed is the external, bit-level contract for a persisted feed
// record (spec §6). It keeps both User and BlueskyUserDID for the same
// value for backwards compatibility with older readers, the way
// original_source's CustomFeedModel keeps `user` and `bluesky_user_did`
// side by side (SPEC_FULL §"Supplemented features" 2).
type StoredFeed struct {
	FeedID              string `json:"feed_id"`
	User                string `json:"user"`
	BlueskyHandle       string `json:"bluesky_handle"`
	BlueskyUserDID      string `json:"bluesky_user_did"`
	Condition           string `json:"condition"`
	FeedGenerationTimestamp string `json:"feed_generation_timestamp"`
	FeedStatistics      string `json:"feed_statistics"`
	Feed                []StoredFeedPost `json:"feed"`
	PartitionDate       string `json:"partition_date"`
}

// StoredFeedPost is one (uri, is_in_network) tuple as it appears in the
// persisted feed record's `feed` array.
type StoredFeedPost struct {
	Item        string `json:"item"`
	IsInNetwork bool   `json:"is_in_network"`
}
