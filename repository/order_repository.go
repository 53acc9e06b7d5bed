package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nebulamart/storefront-core/models"
)

// ErrStatusConflict means a conditional status update matched no document:
// either the order is gone or its status moved underneath the caller.
var ErrStatusConflict = errors.New("order status changed concurrently")

// OrderRepository defines the interface for order data access. Orders are
// created once and never deleted; after creation only status and
// statusHistory change.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	// UpdateStatus applies the transition only while the order still holds
	// the expected current status, and appends one history entry.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, change models.StatusChange) error
}

// MongoOrderRepository implements OrderRepository on the orders collection.
type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection("orders")}
}

func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

type orderItemDoc struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	Variant   models.Variant       `bson:"variant,omitempty"`
}

type paymentDoc struct {
	Method   string               `bson:"method"`
	Status   string               `bson:"status"`
	Amount   primitive.Decimal128 `bson:"amount"`
	Currency string               `bson:"currency"`
}

type shippingDoc struct {
	Method         string               `bson:"method"`
	Cost           primitive.Decimal128 `bson:"cost"`
	TrackingNumber string               `bson:"tracking_number,omitempty"`
}

type orderDoc struct {
	ID              string                 `bson:"_id"`
	OrderNumber     string                 `bson:"order_number"`
	UserID          string                 `bson:"user_id"`
	Items           []orderItemDoc         `bson:"items"`
	ShippingAddress models.ShippingAddress `bson:"shipping_address"`
	Payment         paymentDoc             `bson:"payment"`
	Shipping        shippingDoc            `bson:"shipping"`
	Status          string                 `bson:"status"`
	Subtotal        primitive.Decimal128   `bson:"subtotal"`
	Tax             primitive.Decimal128   `bson:"tax"`
	Total           primitive.Decimal128   `bson:"total"`
	StatusHistory   []models.StatusChange  `bson:"status_history"`
	CreatedAt       time.Time              `bson:"created_at"`
}

func toOrderDoc(order *models.Order) (*orderDoc, error) {
	doc := &orderDoc{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		ShippingAddress: order.ShippingAddress,
		Status:          order.Status.String(),
		StatusHistory:   order.StatusHistory,
		CreatedAt:       order.CreatedAt,
	}

	var err error
	if doc.Subtotal, err = toDecimal128(order.Subtotal); err != nil {
		return nil, err
	}
	if doc.Tax, err = toDecimal128(order.Tax); err != nil {
		return nil, err
	}
	if doc.Total, err = toDecimal128(order.Total); err != nil {
		return nil, err
	}

	doc.Payment = paymentDoc{
		Method:   order.Payment.Method,
		Status:   string(order.Payment.Status),
		Currency: order.Payment.Currency,
	}
	if doc.Payment.Amount, err = toDecimal128(order.Payment.Amount); err != nil {
		return nil, err
	}

	doc.Shipping = shippingDoc{
		Method:         order.Shipping.Method,
		TrackingNumber: order.Shipping.TrackingNumber,
	}
	if doc.Shipping.Cost, err = toDecimal128(order.Shipping.Cost); err != nil {
		return nil, err
	}

	doc.Items = make([]orderItemDoc, 0, len(order.Items))
	for _, item := range order.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		doc.Items = append(doc.Items, orderItemDoc{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Variant:   item.Variant,
		})
	}
	return doc, nil
}

func fromOrderDoc(doc *orderDoc) (*models.Order, error) {
	order := &models.Order{
		ID:              doc.ID,
		OrderNumber:     doc.OrderNumber,
		UserID:          doc.UserID,
		ShippingAddress: doc.ShippingAddress,
		Status:          models.OrderStatus(doc.Status),
		StatusHistory:   doc.StatusHistory,
		CreatedAt:       doc.CreatedAt,
	}

	var err error
	if order.Subtotal, err = fromDecimal128(doc.Subtotal); err != nil {
		return nil, err
	}
	if order.Tax, err = fromDecimal128(doc.Tax); err != nil {
		return nil, err
	}
	if order.Total, err = fromDecimal128(doc.Total); err != nil {
		return nil, err
	}

	order.Payment = models.Payment{
		Method:   doc.Payment.Method,
		Status:   models.PaymentStatus(doc.Payment.Status),
		Currency: doc.Payment.Currency,
	}
	if order.Payment.Amount, err = fromDecimal128(doc.Payment.Amount); err != nil {
		return nil, err
	}

	order.Shipping = models.Shipping{
		Method:         doc.Shipping.Method,
		TrackingNumber: doc.Shipping.TrackingNumber,
	}
	if order.Shipping.Cost, err = fromDecimal128(doc.Shipping.Cost); err != nil {
		return nil, err
	}

	order.Items = make([]models.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		price, err := fromDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Variant:   item.Variant,
		})
	}
	return order, nil
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	doc, err := toOrderDoc(order)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.ID, err)
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create order %s: %w", order.ID, err)
	}
	return nil
}

func (r *MongoOrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	var doc orderDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return fromOrderDoc(&doc)
}

func (r *MongoOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders for user %s: %w", userID, err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0, limit)
	for cursor.Next(ctx) {
		var doc orderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode order: %w", err)
		}
		order, err := fromOrderDoc(&doc)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}

func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus, change models.StatusChange) error {
	filter := bson.M{"_id": id, "status": from.String()}
	update := bson.M{
		"$set":  bson.M{"status": to.String()},
		"$push": bson.M{"status_history": change},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update status for order %s: %w", id, err)
	}
	if res.ModifiedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}
