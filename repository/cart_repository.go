package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nebulamart/storefront-core/models"
)

// CartRepository defines the interface for cart data access. A user has at
// most one non-expired cart; Save upserts on user_id.
type CartRepository interface {
	// GetActive returns the user's cart whose expiry is after now, or
	// (nil, nil) when there is none.
	GetActive(ctx context.Context, userID string, now time.Time) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	// DeleteExpired removes every cart with expiresAt at or before now and
	// returns the number removed. The predicate runs in the store, so a
	// cart refreshed after a sweep began is not touched.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MongoCartRepository implements CartRepository on a MongoDB collection.
type MongoCartRepository struct {
	coll *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{coll: db.Collection("carts")}
}

// EnsureIndexes creates the unique user index and the expiry index.
func (r *MongoCartRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create cart indexes: %w", err)
	}
	return nil
}

func (r *MongoCartRepository) GetActive(ctx context.Context, userID string, now time.Time) (*models.Cart, error) {
	filter := bson.M{
		"user_id":    userID,
		"expires_at": bson.M{"$gt": now},
	}

	var cart models.Cart
	err := r.coll.FindOne(ctx, filter).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

func (r *MongoCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	filter := bson.M{"user_id": cart.UserID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.coll.ReplaceOne(ctx, filter, cart, opts); err != nil {
		return fmt.Errorf("save cart for user %s: %w", cart.UserID, err)
	}
	return nil
}

func (r *MongoCartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired carts: %w", err)
	}
	return res.DeletedCount, nil
}
