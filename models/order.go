package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

func (s OrderStatus) String() string { return string(s) }

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// statusTransitions is the forward order lifecycle. Cancellation is only
// allowed before the order ships; refunds from any paid state.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderItem is an order-time snapshot of a cart line. Name and price are
// copied at creation so later catalog changes never alter a placed order.
type OrderItem struct {
	ProductID string          `json:"product_id" bson:"product_id"`
	Name      string          `json:"name" bson:"name"`
	Price     decimal.Decimal `json:"price" bson:"-"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	Variant   Variant         `json:"variant,omitempty" bson:"variant,omitempty"`
}

type ShippingAddress struct {
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Email     string `json:"email" bson:"email"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Street    string `json:"street" bson:"street"`
	City      string `json:"city" bson:"city"`
	State     string `json:"state" bson:"state"`
	ZipCode   string `json:"zip_code" bson:"zip_code"`
	Country   string `json:"country" bson:"country"`
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment is recorded verbatim from the payment collaborator. The core
// never calls a payment processor.
type Payment struct {
	Method   string          `json:"method" bson:"method"`
	Status   PaymentStatus   `json:"status" bson:"status"`
	Amount   decimal.Decimal `json:"amount" bson:"-"`
	Currency string          `json:"currency" bson:"currency"`
}

type Shipping struct {
	Method         string          `json:"method" bson:"method"`
	Cost           decimal.Decimal `json:"cost" bson:"-"`
	TrackingNumber string          `json:"tracking_number,omitempty" bson:"tracking_number,omitempty"`
}

type StatusChange struct {
	Status    OrderStatus `json:"status" bson:"status"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Note      string      `json:"note,omitempty" bson:"note,omitempty"`
}

// Order is created once, atomically, at checkout. Afterwards only status
// and statusHistory mutate; orders are never deleted.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Payment         Payment         `json:"payment"`
	Shipping        Shipping        `json:"shipping"`
	Status          OrderStatus     `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	StatusHistory   []StatusChange  `json:"status_history"`
	CreatedAt       time.Time       `json:"created_at"`
}
