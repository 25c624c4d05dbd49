// Package providers implements the boundary interfaces the core
// consumes for study users, social graph, superposters, posts, and
// exclusions (spec §6). Grounded on
// sandeepkv93-anonymous-support-backend's mongo-driver collection
// wrappers (NewXRepository(db *mongo.Database), bson.M filters,
// context-scoped Find/FindOne calls).
package providers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// mongoFinder is the narrow slice of *mongo.Collection this package
// exercises. Mirrors the teacher's own narrow-stub pattern over wide
// third-party interfaces (s3iface.S3API in internal/persistence/feedstorage);
// mongo.Collection has no seam of its own, so tests substitute a fake
// built on mongo.NewCursorFromDocuments instead of a live collection.
type mongoFinder interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// studyUserDoc is the Mongo document shape for one participant.
type studyUserDoc struct {
	UserDID     string `bson:"user_did"`
	Handle      string `bson:"handle"`
	Condition   string `bson:"condition"`
	IsStudyUser bool   `bson:"is_study_user"`
	IsTestUser  bool   `bson:"is_test_user"`
}

// MongoStudyUserProvider implements StudyUserProvider against a
// participant collection.
type MongoStudyUserProvider struct {
	collection mongoFinder
}

// NewMongoStudyUserProvider constructs a MongoStudyUserProvider.
func NewMongoStudyUserProvider(db *mongo.Database) *MongoStudyUserProvider {
	return &MongoStudyUserProvider{collection: db.Collection("study_users")}
}

// GetAll returns study users, optionally restricted to the fixture set
// used for self-test runs (spec §6, SPEC_FULL "Supplemented features" 5).
func (p *MongoStudyUserProvider) GetAll(ctx context.Context, testMode bool) ([]domain.StudyUser, error) {
	filter := bson.M{"is_study_user": true}
	if testMode {
		filter["is_test_user"] = true
	}

	cursor, err := p.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.StudyUser
	for cursor.Next(ctx) {
		var doc studyUserDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, domain.StudyUser{
			UserDID:     doc.UserDID,
			Handle:      doc.Handle,
			Condition:   domain.Condition(doc.Condition),
			IsStudyUser: doc.IsStudyUser,
		})
	}
	return out, cursor.Err()
}

// socialGraphDoc is the Mongo document shape for one user's followed set.
type socialGraphDoc struct {
	UserDID      string   `bson:"user_did"`
	FollowedDIDs []string `bson:"followed_dids"`
}

// MongoSocialGraphProvider implements SocialGraphProvider against a
// social-graph collection.
type MongoSocialGraphProvider struct {
	collection mongoFinder
}

// NewMongoSocialGraphProvider constructs a MongoSocialGraphProvider.
func NewMongoSocialGraphProvider(db *mongo.Database) *MongoSocialGraphProvider {
	return &MongoSocialGraphProvider{collection: db.Collection("social_graph")}
}

// Load returns the full user_did -> followed-DID-set map (spec §6).
func (p *MongoSocialGraphProvider) Load(ctx context.Context) (map[string]map[string]struct{}, error) {
	cursor, err := p.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make(map[string]map[string]struct{})
	for cursor.Next(ctx) {
		var doc socialGraphDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		followed := make(map[string]struct{}, len(doc.FollowedDIDs))
		for _, did := range doc.FollowedDIDs {
			followed[did] = struct{}{}
		}
		out[doc.UserDID] = followed
	}
	return out, cursor.Err()
}
