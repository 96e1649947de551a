package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rancho-chat/internal/domain/invitation"
	rancho_errors "rancho-chat/pkg/errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type invitationDoc struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversation_id"`
	UserID         string    `bson:"user_id"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (d invitationDoc) toDomain() invitation.Invitation {
	return invitation.Invitation{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		UserID:         d.UserID,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
	}
}

type MongoInvitationRepository struct {
	coll *mongo.Collection
}

func NewMongoInvitationRepository(db *mongo.Database) InvitationRepository {
	return &MongoInvitationRepository{coll: db.Collection(invitationsCollection)}
}

func (r *MongoInvitationRepository) Save(ctx context.Context, inv invitation.Invitation) (string, error) {
	doc := invitationDoc{
		ID:             inv.ID,
		ConversationID: inv.ConversationID,
		UserID:         inv.UserID,
		Status:         inv.Status,
		CreatedAt:      inv.CreatedAt,
	}
	if doc.ID == "" {
		doc.ID = newID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isDuplicateKeyOn(err, pendingInvitationIndex) {
			return "", rancho_errors.ErrAlreadyExists
		}
		return "", fmt.Errorf("save invitation: %w", err)
	}
	return doc.ID, nil
}

func (r *MongoInvitationRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("remove invitation: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (r *MongoInvitationRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	return countOne(ctx, r.coll, bson.M{"_id": id})
}

// UpdateStatus reports a match rather than a modification so that setting
// the current status again still succeeds.
func (r *MongoInvitationRepository) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	if !invitation.ValidStatus(status) {
		return false, rancho_errors.ErrInvalidInput
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return false, fmt.Errorf("update invitation status: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoInvitationRepository) Get(ctx context.Context, id string) (*invitation.Invitation, error) {
	var doc invitationDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	inv := doc.toDomain()
	return &inv, nil
}

func (r *MongoInvitationRepository) ListUserInvitations(ctx context.Context, userID string) ([]invitation.Invitation, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *MongoInvitationRepository) ListConversationInvitations(ctx context.Context, conversationID string) ([]invitation.Invitation, error) {
	return r.list(ctx, bson.M{"conversation_id": conversationID})
}

func (r *MongoInvitationRepository) list(ctx context.Context, filter bson.M) ([]invitation.Invitation, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	var docs []invitationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	out := make([]invitation.Invitation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
