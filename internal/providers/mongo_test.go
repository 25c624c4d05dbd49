package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// fakeFinder substitutes a live *mongo.Collection with an in-memory
// cursor, since the driver exposes no collection interface of its own.
type fakeFinder struct {
	docs []interface{}
	err  error
}

func (f *fakeFinder) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func TestMongoStudyUserProvider_GetAll_MapsDocuments(t *testing.T) {
	finder := &fakeFinder{docs: []interface{}{
		bson.M{"user_did": "did:plc:a", "handle": "alice.bsky.social", "condition": "engagement", "is_study_user": true, "is_test_user": false},
		bson.M{"user_did": "did:plc:b", "handle": "bob.bsky.social", "condition": "representative_diversification", "is_study_user": true, "is_test_user": true},
	}}
	provider := &MongoStudyUserProvider{collection: finder}

	users, err := provider.GetAll(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "did:plc:a", users[0].UserDID)
	assert.Equal(t, domain.Condition("engagement"), users[0].Condition)
	assert.Equal(t, "did:plc:b", users[1].UserDID)
}

func TestMongoStudyUserProvider_GetAll_PropagatesFindError(t *testing.T) {
	finder := &fakeFinder{err: assert.AnError}
	provider := &MongoStudyUserProvider{collection: finder}

	_, err := provider.GetAll(context.Background(), false)
	require.Error(t, err)
}

func TestMongoSocialGraphProvider_Load_BuildsFollowedSets(t *testing.T) {
	finder := &fakeFinder{docs: []interface{}{
		bson.M{"user_did": "did:plc:a", "followed_dids": []string{"did:plc:b", "did:plc:c"}},
		bson.M{"user_did": "did:plc:b", "followed_dids": []string{}},
	}}
	provider := &MongoSocialGraphProvider{collection: finder}

	graph, err := provider.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, graph, 2)
	assert.Contains(t, graph["did:plc:a"], "did:plc:b")
	assert.Contains(t, graph["did:plc:a"], "did:plc:c")
	assert.Empty(t, graph["did:plc:b"])
}
