package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.pilab.hu/loginbroker/domain"
)

const AccountsCollection = "accounts"

// AccountRepository implements domain.AccountStore on MongoDB.
type AccountRepository struct {
	collection *mongo.Collection
}

// NewAccountRepository creates the repository and ensures its indexes.
func NewAccountRepository(ctx context.Context, db *mongo.Database) (*AccountRepository, error) {
	repo := &AccountRepository{collection: db.Collection(AccountsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s indexes: %w", AccountsCollection, err)
	}
	return repo, nil
}

func (r *AccountRepository) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			// A specific external identity maps to at most one account.
			Keys:    bson.D{{Key: "identities.provider_id", Value: 1}, {Key: "identities.provider_user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "primary_email", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexModels)
	if err != nil {
		return err
	}
	log.Debug().Msgf("Indexes for %s collection ensured.", AccountsCollection)
	return nil
}

// FindByIdentity implements domain.AccountStore.FindByIdentity.
func (r *AccountRepository) FindByIdentity(ctx context.Context, providerID, providerUserID string) (*domain.Account, error) {
	filter := bson.M{"identities": bson.M{"$elemMatch": bson.M{
		"provider_id":      providerID,
		"provider_user_id": providerUserID,
	}}}
	var account domain.Account
	err := r.collection.FindOne(ctx, filter).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account by identity: %w", err)
	}
	return &account, nil
}

// FindByEmail implements domain.AccountStore.FindByEmail.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if email == "" {
		return nil, domain.ErrAccountNotFound
	}
	var account domain.Account
	err := r.collection.FindOne(ctx, bson.M{"primary_email": email}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return &account, nil
}

// Create implements domain.AccountStore.Create.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if _, err := r.collection.InsertOne(ctx, account); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// LinkIdentity implements domain.AccountStore.LinkIdentity. $addToSet keeps
// repeated links idempotent; the unique index rejects links already owned
// by another account.
func (r *AccountRepository) LinkIdentity(ctx context.Context, accountID string, link domain.IdentityLink) error {
	update := bson.M{
		"$addToSet": bson.M{"identities": link},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": accountID}, update)
	if err != nil {
		return fmt.Errorf("failed to link identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

var _ domain.AccountStore = (*AccountRepository)(nil)
