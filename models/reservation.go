package models

import "time"

// ReservationItem is one (product, quantity) demand within a reservation.
type ReservationItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Reservation records a tentative batch stock decrement made during
// checkout. It is removed when the order is recorded (the decrement stands)
// or when the checkout fails (the decrement is compensated). Held
// reservations older than the hold timeout are released by the reaper so a
// crashed checkout cannot strand stock.
type Reservation struct {
	ID        string            `json:"id" bson:"_id"`
	UserID    string            `json:"user_id" bson:"user_id"`
	Items     []ReservationItem `json:"items" bson:"items"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}
