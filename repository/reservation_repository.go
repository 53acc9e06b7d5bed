package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nebulamart/storefront-core/models"
)

// ReservationRepository persists in-flight stock reservations so a checkout
// that dies between reserving and recording its order leaves a document the
// reaper can find and compensate.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	// Take removes and returns the reservation with the given id. Exactly
	// one caller wins when the orchestrator and the reaper race; the loser
	// gets ErrNotFound.
	Take(ctx context.Context, id string) (*models.Reservation, error)
	// ListCreatedBefore returns reservations older than the cutoff, i.e.
	// held longer than the hold timeout.
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
}

type MongoReservationRepository struct {
	coll *mongo.Collection
}

func NewMongoReservationRepository(db *mongo.Database) *MongoReservationRepository {
	return &MongoReservationRepository{coll: db.Collection("reservations")}
}

func (r *MongoReservationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create reservation indexes: %w", err)
	}
	return nil
}

func (r *MongoReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	if _, err := r.coll.InsertOne(ctx, reservation); err != nil {
		return fmt.Errorf("create reservation %s: %w", reservation.ID, err)
	}
	return nil
}

func (r *MongoReservationRepository) Take(ctx context.Context, id string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&reservation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take reservation %s: %w", id, err)
	}
	return &reservation, nil
}

func (r *MongoReservationRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return nil, fmt.Errorf("list stale reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []models.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("decode stale reservations: %w", err)
	}
	return reservations, nil
}
