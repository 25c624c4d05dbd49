// Package personalization computes each study user's in-network post
// URI set (spec §4.7). Grounded on
// original_source/services/rank_score_feeds/services/context.py's
// per-user join over the social graph and firehose-sourced posts.
package personalization

import (
	"github.com/rs/zerolog"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// SocialGraph maps a user_did to the set of DIDs they follow.
type SocialGraph map[string]map[string]struct{}

// Context computes in-network URI sets for every study user against one
// batch of scored posts.
type Context struct {
	log zerolog.Logger
}

// NewContext constructs a Context.
func NewContext(log zerolog.Logger) *Context {
	return &Context{log: log.With().Str("component", "personalization_context").Logger()}
}

// BuildAll computes the in-network URI list for every user in users,
// preserving the firehose subset's pool order (spec §4.7).
func (c *Context) BuildAll(posts []domain.Post, graph SocialGraph, users []domain.StudyUser) map[string][]string {
	baseline := firehosePosts(posts)
	if len(baseline) == 0 {
		c.log.Warn().Msg("firehose baseline in-network candidates are empty")
	}

	out := make(map[string][]string, len(users))
	for _, u := range users {
		out[u.UserDID] = c.inNetworkURIs(baseline, graph, u.UserDID)
	}
	return out
}

// inNetworkURIs returns the list of baseline URIs authored by a DID the
// user follows. A user absent from graph gets an empty (not nil) slice.
func (c *Context) inNetworkURIs(baseline []domain.Post, graph SocialGraph, userDID string) []string {
	followed, ok := graph[userDID]
	if !ok || len(followed) == 0 {
		return []string{}
	}

	uris := make([]string, 0)
	for _, p := range baseline {
		if _, following := followed[p.AuthorDID]; following {
			uris = append(uris, p.URI)
		}
	}
	return uris
}

func firehosePosts(posts []domain.Post) []domain.Post {
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.Source == domain.SourceFirehose {
			out = append(out, p)
		}
	}
	return out
}
