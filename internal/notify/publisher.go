package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restopos-backend/internal/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits fire-and-forget events to a topic exchange. It must
// only be invoked after the originating transaction has committed;
// observers never see state that can still roll back.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
}

// Dial connects to the broker and declares the event exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, exchange: exchange}, nil
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}

type event struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	TableID    int64  `json:"tableId,omitempty"`
	OrderID    int64  `json:"orderId,omitempty"`
	RegisterID int64  `json:"registerId,omitempty"`
	Status     string `json:"status,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

func (p *Publisher) TableUpdated(ctx context.Context, tableID int64) error {
	return p.publish(ctx, "table.updated", event{Kind: "table.updated", TableID: tableID})
}

func (p *Publisher) OrderUpdated(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	return p.publish(ctx, "order.updated", event{Kind: "order.updated", OrderID: orderID, Status: string(status)})
}

func (p *Publisher) CashRegisterUpdated(ctx context.Context, registerID int64) error {
	return p.publish(ctx, "register.updated", event{Kind: "register.updated", RegisterID: registerID})
}

func (p *Publisher) publish(ctx context.Context, key string, e event) error {
	e.ID = uuid.NewString()
	e.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
}
