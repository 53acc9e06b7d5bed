package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nebulamart/storefront-core/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductReader is the read-only view of the catalog used for soft stock
// checks and order snapshots.
type ProductReader interface {
	Get(ctx context.Context, productID string) (*models.Product, error)
}

// ProductRepository is the core-facing contract with the catalog service.
// DecrementStock and IncrementStock are the only stock-mutating entry
// points, and only the inventory guard calls them.
type ProductRepository interface {
	ProductReader
	// DecrementStock subtracts quantity from the product's stock in a
	// single conditional update that only applies while the product is
	// active and has at least quantity in stock. Returns
	// ErrInsufficientStock when the condition does not hold (including
	// missing or inactive products).
	DecrementStock(ctx context.Context, productID string, quantity int) error
	// IncrementStock adds quantity back, compensating a prior decrement.
	IncrementStock(ctx context.Context, productID string, quantity int) error
}

// MongoProductRepository implements ProductRepository on the catalog's
// products collection.
type MongoProductRepository struct {
	coll *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{coll: db.Collection("products")}
}

type productDoc struct {
	ID            string               `bson:"_id"`
	Name          string               `bson:"name"`
	Price         primitive.Decimal128 `bson:"price"`
	StockQuantity int                  `bson:"stock_quantity"`
	IsActive      bool                 `bson:"is_active"`
}

func (r *MongoProductRepository) Get(ctx context.Context, productID string) (*models.Product, error) {
	var doc productDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product %s: %w", productID, err)
	}

	price, err := fromDecimal128(doc.Price)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}

	return &models.Product{
		ID:            doc.ID,
		Name:          doc.Name,
		Price:         price,
		StockQuantity: doc.StockQuantity,
		IsActive:      doc.IsActive,
	}, nil
}

func (r *MongoProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	filter := bson.M{
		"_id":            productID,
		"is_active":      true,
		"stock_quantity": bson.M{"$gte": quantity},
	}
	update := bson.M{"$inc": bson.M{"stock_quantity": -quantity}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("decrement stock for product %s: %w", productID, err)
	}
	if res.ModifiedCount == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *MongoProductRepository) IncrementStock(ctx context.Context, productID string, quantity int) error {
	update := bson.M{"$inc": bson.M{"stock_quantity": quantity}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": productID}, update)
	if err != nil {
		return fmt.Errorf("increment stock for product %s: %w", productID, err)
	}
	if res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}
