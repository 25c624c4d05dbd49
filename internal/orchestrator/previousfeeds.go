package orchestrator

import "context"

// PreviousFeedProvider loads the previous-feed index: for every
// user_did (including the literal "default" key), the set of URIs in
// their most recently exported feed (spec §5 "previous-feed index"
// shared-read state; §9 open question 2 for the "default" key).
// Grounded on original_source/services/rank_score_feeds/services/data_loading.py's
// DataLoadingService.load_latest_feeds, which queries the previously
// exported feed rows rather than holding state in-process.
type PreviousFeedProvider interface {
	Load(ctx context.Context) (map[string]map[string]struct{}, error)
}
