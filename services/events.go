package services

import (
	"context"
	"encoding/json"
	"time"

	awspkg "github.com/nebulamart/storefront-core/pkg/aws"

	"github.com/nebulamart/storefront-core/models"
)

// OrderCreatedEvent is the payload published after a successful checkout.
// Downstream collaborators (notifications, fulfilment) consume it; the core
// never blocks checkout on delivery.
type OrderCreatedEvent struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Total       string    `json:"total"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventPublisher publishes order lifecycle events, best-effort.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
}

func NewOrderCreatedEvent(order *models.Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		Event:       "order.created",
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total.StringFixed(2),
		Currency:    order.Payment.Currency,
		Timestamp:   order.CreatedAt,
	}
}

// SNSOrderPublisher mirrors order events to an SNS topic.
type SNSOrderPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSOrderPublisher(client awspkg.SNSPublisher, topicArn string) *SNSOrderPublisher {
	return &SNSOrderPublisher{client: client, topicArn: topicArn}
}

func (p *SNSOrderPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(NewOrderCreatedEvent(order))
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.topicArn, data)
}
