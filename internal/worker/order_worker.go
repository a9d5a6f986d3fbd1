package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/plant-shop-api/internal/model"
	"github.com/flicky/plant-shop-api/internal/repository"
)

const (
	orderQueueName = "orders"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.dlq"
)

// OrderWorker consumes placed orders and clears the cart each was checked
// out from.
type OrderWorker struct {
	channel   *amqp.Channel
	cartRepo  repository.CartRepository
	processed Idempotency
	log       *slog.Logger
	done      chan struct{}
}

func NewOrderWorker(ch *amqp.Channel, cartRepo repository.CartRepository, processed Idempotency, log *slog.Logger) *OrderWorker {
	return &OrderWorker{
		channel:   ch,
		cartRepo:  cartRepo,
		processed: processed,
		log:       log,
		done:      make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

func (w *OrderWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var orderMsg model.OrderMessage
	if err := json.Unmarshal(msg.Body, &orderMsg); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("order_id", orderMsg.OrderID, "email", orderMsg.Email)

	done, err := w.processed.Seen(ctx, orderMsg.OrderID)
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if done {
		log.Info("order already processed, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.processOrder(ctx, orderMsg); err != nil {
		log.Error("process order failed", "error", err)
		_ = msg.Nack(false, false) // dead-lettered
		return
	}

	if err := w.processed.MarkProcessed(ctx, orderMsg.OrderID); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("order processed successfully")
}

// processOrder empties the checkout cart. A cart that no longer exists has
// nothing left to clear.
func (w *OrderWorker) processOrder(ctx context.Context, msg model.OrderMessage) error {
	key, ok := msg.CartKey()
	if !ok {
		return nil
	}
	_, err := w.cartRepo.Mutate(ctx, key, func(c *model.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrCartNotFound) {
		return fmt.Errorf("clear cart %s: %w", key, err)
	}
	return nil
}
