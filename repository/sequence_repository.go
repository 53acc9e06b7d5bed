package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SequenceRepository hands out strictly increasing integers, unique across
// all concurrent callers. Used for order numbers: the increment is a single
// atomic read-modify-write in the store, never a count of existing orders,
// which would mint duplicates under concurrency.
type SequenceRepository interface {
	Next(ctx context.Context, name string) (int64, error)
}

// MongoSequenceRepository implements SequenceRepository on a counters
// collection, one document per sequence name.
type MongoSequenceRepository struct {
	coll *mongo.Collection
}

func NewMongoSequenceRepository(db *mongo.Database) *MongoSequenceRepository {
	return &MongoSequenceRepository{coll: db.Collection("counters")}
}

func (r *MongoSequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	filter := bson.M{"_id": name}
	update := bson.M{"$inc": bson.M{"seq": int64(1)}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return 0, fmt.Errorf("next value for sequence %s: %w", name, err)
	}
	return doc.Seq, nil
}
