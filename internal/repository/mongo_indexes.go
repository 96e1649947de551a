package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rancho-chat/internal/domain/invitation"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const mongoAccountEmailIndex = "uq_accounts_email"

// isDuplicateKeyOn reports whether err is a duplicate key error raised by the
// named index. Other unique hits, such as an _id collision, do not match.
func isDuplicateKeyOn(err error, index string) bool {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return false
	}
	for _, e := range we.WriteErrors {
		if e.Code == 11000 && strings.Contains(e.Message, "index: "+index+" ") {
			return true
		}
	}
	return false
}

// Collections lists the collections indexed by EnsureMongoIndexes.
var Collections = []string{accountsCollection, conversationsCollection, invitationsCollection}

func mongoIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		accountsCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(mongoAccountEmailIndex),
			},
			{Keys: bson.D{{Key: "access_token", Value: 1}}},
		},
		conversationsCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "messages.id", Value: 1}}},
		},
		invitationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}}},
			{
				Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "conversation_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName(pendingInvitationIndex).
					SetPartialFilterExpression(bson.M{"status": invitation.StatusPending}),
			},
		},
	}
}

// EnsureMongoIndexes creates the indexes the Mongo repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for name, indexes := range mongoIndexes() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("mongo indexes for %s: %w", name, err)
		}
	}
	return nil
}
