package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/plant-shop-api/internal/model"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends placed orders to the orders queue.
type Publisher struct {
	ch publishChannel
}

func NewPublisher(ch publishChannel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishOrder(ctx context.Context, msg model.OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order message: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, "", orderQueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.OrderID.String(),
	})
	if err != nil {
		return fmt.Errorf("publish order %s: %w", msg.OrderID, err)
	}
	return nil
}
