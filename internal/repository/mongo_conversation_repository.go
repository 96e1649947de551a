package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rancho-chat/internal/domain/conversation"
	"rancho-chat/internal/domain/message"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Messages live inside their conversation document and are addressed by
// conversation id plus the embedded message id.

type messageDoc struct {
	ID       string    `bson:"id"`
	SenderID string    `bson:"sender_id"`
	Content  *string   `bson:"content"`
	Date     time.Time `bson:"date"`
}

type conversationDoc struct {
	ID             string       `bson:"_id"`
	Name           string       `bson:"name"`
	Description    string       `bson:"description"`
	OwnerID        string       `bson:"owner_id"`
	MemberUserIDs  []string     `bson:"member_user_ids"`
	Messages       []messageDoc `bson:"messages,omitempty"`
	Visibility     string       `bson:"visibility"`
	InvitationCode int          `bson:"invitation_code"`
	CreatedAt      time.Time    `bson:"created_at"`
}

func (d conversationDoc) preview() conversation.Preview {
	members := d.MemberUserIDs
	if members == nil {
		members = []string{}
	}
	return conversation.Preview{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		OwnerID:        d.OwnerID,
		MemberUserIDs:  members,
		Visibility:     d.Visibility,
		InvitationCode: d.InvitationCode,
		CreatedAt:      d.CreatedAt,
	}
}

func (d conversationDoc) messages() []message.Message {
	out := make([]message.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		out = append(out, m.toDomain(d.ID))
	}
	return out
}

func (m messageDoc) toDomain(conversationID string) message.Message {
	return message.Message{
		ID:             m.ID,
		ConversationID: conversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Date:           m.Date,
	}
}

type MongoConversationRepository struct {
	coll        *mongo.Collection
	invitations *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &MongoConversationRepository{
		coll:        db.Collection(conversationsCollection),
		invitations: db.Collection(invitationsCollection),
	}
}

func (r *MongoConversationRepository) Save(ctx context.Context, d conversation.Details) (string, error) {
	code, err := newInvitationCode()
	if err != nil {
		return "", err
	}
	doc := conversationDoc{
		ID:             newID(),
		Name:           d.Name,
		Description:    d.Description,
		OwnerID:        d.OwnerID,
		MemberUserIDs:  []string{d.OwnerID},
		Visibility:     d.Visibility,
		InvitationCode: code,
		CreatedAt:      time.Now().UTC(),
	}
	if doc.Visibility == "" {
		doc.Visibility = conversation.VisibilityPublic
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("save conversation: %w", err)
	}
	return doc.ID, nil
}

// Remove deletes the conversation and then its invitations, matching the
// cascade of the relational schema.
func (r *MongoConversationRepository) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("remove conversation: %w", err)
	}
	if res.DeletedCount != 1 {
		return false, nil
	}
	if _, err := r.invitations.DeleteMany(ctx, bson.M{"conversation_id": id}); err != nil {
		return false, fmt.Errorf("remove invitations of %s: %w", id, err)
	}
	return true, nil
}

func (r *MongoConversationRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	return countOne(ctx, r.coll, bson.M{"_id": id})
}

func (r *MongoConversationRepository) GetByID(ctx context.Context, id string) (*conversation.Conversation, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": id})
	if err != nil || doc == nil {
		return nil, err
	}
	return &conversation.Conversation{Preview: doc.preview(), Messages: doc.messages()}, nil
}

func (r *MongoConversationRepository) ListAllConversations(ctx context.Context, ownerID string) ([]conversation.Preview, error) {
	opts := options.Find().
		SetProjection(bson.M{"messages": 0}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	var docs []conversationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	previews := make([]conversation.Preview, 0, len(docs))
	for _, d := range docs {
		previews = append(previews, d.preview())
	}
	return previews, nil
}

// ListAllMessages returns nil when the conversation does not exist.
func (r *MongoConversationRepository) ListAllMessages(ctx context.Context, conversationID string) ([]message.Message, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": conversationID}, options.FindOne().SetProjection(bson.M{"messages": 1}))
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.messages(), nil
}

func (r *MongoConversationRepository) ListUserIDs(ctx context.Context, conversationID string) ([]string, error) {
	doc, err := r.findOne(ctx, bson.M{"_id": conversationID}, options.FindOne().SetProjection(bson.M{"member_user_ids": 1}))
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.MemberUserIDs == nil {
		return []string{}, nil
	}
	return doc.MemberUserIDs, nil
}

func (r *MongoConversationRepository) RemoveUserID(ctx context.Context, userID, conversationID string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID, "member_user_ids": userID},
		bson.M{"$pull": bson.M{"member_user_ids": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoConversationRepository) AddUserID(ctx context.Context, userID, conversationID string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID, "member_user_ids": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"member_user_ids": userID}},
	)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// SaveMessage returns an empty id when the conversation is gone.
func (r *MongoConversationRepository) SaveMessage(ctx context.Context, d message.Draft) (string, error) {
	content := d.Content
	doc := messageDoc{
		ID:       newID(),
		SenderID: d.SenderID,
		Content:  &content,
		Date:     time.Now().UTC(),
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": d.ConversationID},
		bson.M{"$push": bson.M{"messages": doc}},
	)
	if err != nil {
		return "", fmt.Errorf("save message: %w", err)
	}
	if res.MatchedCount == 0 {
		return "", nil
	}
	return doc.ID, nil
}

func (r *MongoConversationRepository) GetMessageByID(ctx context.Context, messageID, conversationID string) (*message.Message, error) {
	return r.findMessage(ctx, bson.M{"_id": conversationID, "messages.id": messageID})
}

func (r *MongoConversationRepository) FindMessage(ctx context.Context, messageID string) (*message.Message, error) {
	return r.findMessage(ctx, bson.M{"messages.id": messageID})
}

func (r *MongoConversationRepository) RemoveMessageContent(ctx context.Context, messageID, conversationID string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID, "messages.id": messageID},
		bson.M{"$set": bson.M{"messages.$.content": nil}},
	)
	if err != nil {
		return false, fmt.Errorf("remove message content: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoConversationRepository) findMessage(ctx context.Context, filter bson.M) (*message.Message, error) {
	doc, err := r.findOne(ctx, filter, options.FindOne().SetProjection(bson.M{"messages.$": 1}))
	if err != nil || doc == nil {
		return nil, err
	}
	if len(doc.Messages) == 0 {
		return nil, nil
	}
	m := doc.Messages[0].toDomain(doc.ID)
	return &m, nil
}

func (r *MongoConversationRepository) findOne(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOneOptions]) (*conversationDoc, error) {
	var doc conversationDoc
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &doc, nil
}
