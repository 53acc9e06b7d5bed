package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/nebulamart/storefront-core/models"
	"github.com/nebulamart/storefront-core/services"
)

// Producer publishes order events to Kafka, keyed by user so one shopper's
// events stay ordered.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

func (p *Producer) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(services.NewOrderCreatedEvent(order))
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.UserID),
		Value: data,
	})
}

func (p *Producer) Close() {
	_ = p.writer.Close()
}
