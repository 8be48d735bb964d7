package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/altastore/commerce/internal/domain"
	pkgkafka "github.com/altastore/commerce/pkg/kafka"
)

// Aggregate type constants.
const (
	AggregateTypeInventory = "inventory"
	AggregateTypeOrder     = "order"
)

// Source identifier for events originating from this service.
const SourceCommerceAPI = "commerce-api"

// MoneyData is the wire representation of a monetary amount.
type MoneyData struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func moneyData(m domain.Money) MoneyData {
	return MoneyData{Amount: m.Amount().StringFixed(2), Currency: m.Currency()}
}

// InventoryCreatedData is the payload for an inventory.created event.
type InventoryCreatedData struct {
	ProductID    string    `json:"product_id"`
	InitialStock int       `json:"initial_stock"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// StockAdjustedData is the payload for an inventory.stock_adjusted event.
type StockAdjustedData struct {
	ProductID  string    `json:"product_id"`
	Adjustment int       `json:"adjustment"`
	Stock      int       `json:"stock"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StockReservedData is the payload for an inventory.stock_reserved event.
type StockReservedData struct {
	ProductID      string    `json:"product_id"`
	Quantity       int       `json:"quantity"`
	TotalReserved  int       `json:"total_reserved"`
	AvailableStock int       `json:"available_stock"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// StockReleasedData is the payload for an inventory.stock_released event.
type StockReleasedData struct {
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	TotalReserved int       `json:"total_reserved"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// StockDepletedData is the payload for an inventory.stock_depleted event.
type StockDepletedData struct {
	ProductID  string    `json:"product_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Total       MoneyData `json:"total"`
	ItemCount   int       `json:"item_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OrderPaidData is the payload for an order.paid event.
type OrderPaidData struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Total       MoneyData `json:"total"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OrderCompletedData is the payload for an order.completed event.
type OrderCompletedData struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OrderCancelledData is the payload for an order.cancelled event.
type OrderCancelledData struct {
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	Reason         string    `json:"reason"`
	RequiresRefund bool      `json:"requires_refund"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Producer publishes buffered domain events to Kafka. Each event name maps to
// its own topic under the shared prefix.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishAll publishes the given domain events in order. Publishing stops at
// the first failure so callers can log it; events before the failure are
// already on the wire.
func (p *Producer) PublishAll(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		if err := p.publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *Producer) publish(ctx context.Context, e domain.Event) error {
	data, aggregateType, err := payloadFor(e)
	if err != nil {
		return err
	}

	topic := pkgkafka.TopicPrefix + "." + e.EventName()

	event, err := pkgkafka.NewEvent(e.EventName(), e.AggregateID(), aggregateType, SourceCommerceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", e.EventName(), err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", e.EventName(), err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("event", e.EventName()),
		slog.String("aggregate_id", e.AggregateID()),
	)

	return nil
}

// payloadFor maps a domain event to its wire payload and aggregate type.
func payloadFor(e domain.Event) (any, string, error) {
	switch ev := e.(type) {
	case domain.InventoryCreated:
		return InventoryCreatedData{
			ProductID:    ev.ProductID,
			InitialStock: ev.InitialStock,
			OccurredAt:   ev.OccurredAt(),
		}, AggregateTypeInventory, nil

	case domain.StockAdjusted:
		return StockAdjustedData{
			ProductID:  ev.ProductID,
			Adjustment: ev.Adjustment,
			Stock:      ev.Stock,
			Reason:     ev.Reason,
			OccurredAt: ev.OccurredAt(),
		}, AggregateTypeInventory, nil

	case domain.StockReserved:
		return StockReservedData{
			ProductID:      ev.ProductID,
			Quantity:       ev.Quantity,
			TotalReserved:  ev.TotalReserved,
			AvailableStock: ev.AvailableStock,
			OccurredAt:     ev.OccurredAt(),
		}, AggregateTypeInventory, nil

	case domain.StockReleased:
		return StockReleasedData{
			ProductID:     ev.ProductID,
			Quantity:      ev.Quantity,
			TotalReserved: ev.TotalReserved,
			OccurredAt:    ev.OccurredAt(),
		}, AggregateTypeInventory, nil

	case domain.StockDepleted:
		return StockDepletedData{
			ProductID:  ev.ProductID,
			OccurredAt: ev.OccurredAt(),
		}, AggregateTypeInventory, nil

	case domain.OrderCreated:
		return OrderCreatedData{
			OrderID:     ev.AggregateID(),
			OrderNumber: ev.OrderNumber,
			UserID:      ev.UserID,
			Status:      string(ev.Status),
			Total:       moneyData(ev.Total),
			ItemCount:   ev.ItemCount,
			OccurredAt:  ev.OccurredAt(),
		}, AggregateTypeOrder, nil

	case domain.OrderPaid:
		return OrderPaidData{
			OrderID:     ev.AggregateID(),
			OrderNumber: ev.OrderNumber,
			Total:       moneyData(ev.Total),
			OccurredAt:  ev.OccurredAt(),
		}, AggregateTypeOrder, nil

	case domain.OrderStatusChanged:
		return OrderStatusChangedData{
			OrderID:     ev.AggregateID(),
			OrderNumber: ev.OrderNumber,
			OldStatus:   string(ev.From),
			NewStatus:   string(ev.To),
			OccurredAt:  ev.OccurredAt(),
		}, AggregateTypeOrder, nil

	case domain.OrderCompleted:
		return OrderCompletedData{
			OrderID:     ev.AggregateID(),
			OrderNumber: ev.OrderNumber,
			OccurredAt:  ev.OccurredAt(),
		}, AggregateTypeOrder, nil

	case domain.OrderCancelled:
		return OrderCancelledData{
			OrderID:        ev.AggregateID(),
			OrderNumber:    ev.OrderNumber,
			Reason:         ev.Reason,
			RequiresRefund: ev.RequiresRefund,
			OccurredAt:     ev.OccurredAt(),
		}, AggregateTypeOrder, nil

	default:
		return nil, "", fmt.Errorf("unknown domain event %q", e.EventName())
	}
}
