package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rancho-chat/internal/domain/account"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	accountsCollection      = "accounts"
	conversationsCollection = "conversations"
	invitationsCollection   = "invitations"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	AccessToken  *string   `bson:"access_token,omitempty"`
	Roles        []string  `bson:"roles,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d accountDoc) toDomain() *account.Account {
	return &account.Account{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		AccessToken:  d.AccessToken,
		Roles:        d.Roles,
		CreatedAt:    d.CreatedAt,
	}
}

type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) AccountRepository {
	return &MongoAccountRepository{coll: db.Collection(accountsCollection)}
}

func (r *MongoAccountRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	return countOne(ctx, r.coll, bson.M{"_id": id})
}

func (r *MongoAccountRepository) CheckByEmail(ctx context.Context, email string) (bool, error) {
	return countOne(ctx, r.coll, bson.M{"email": email})
}

func (r *MongoAccountRepository) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoAccountRepository) AddNewAccount(ctx context.Context, a account.Account) (bool, error) {
	doc := accountDoc{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Roles:        a.Roles,
		CreatedAt:    a.CreatedAt,
	}
	if doc.ID == "" {
		doc.ID = newID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isDuplicateKeyOn(err, mongoAccountEmailIndex) {
			return false, nil
		}
		return false, fmt.Errorf("add account: %w", err)
	}
	return true, nil
}

func (r *MongoAccountRepository) UpdateAccessToken(ctx context.Context, id, token string) error {
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"access_token": token}}); err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	return nil
}

func (r *MongoAccountRepository) GetAccountByToken(ctx context.Context, token, role string) (*account.Account, error) {
	filter := bson.M{"access_token": token}
	if role != "" {
		filter["$or"] = bson.A{bson.M{"roles": role}, bson.M{"roles": account.RoleAdmin}}
	}
	var doc accountDoc
	opts := options.FindOne().SetProjection(bson.M{"password_hash": 0})
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by token: %w", err)
	}
	return doc.toDomain(), nil
}

func countOne(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	return n > 0, nil
}
