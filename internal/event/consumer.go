package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/altastore/commerce/internal/domain"
	pkgkafka "github.com/altastore/commerce/pkg/kafka"
)

// Kafka topics consumed by this service. Payment events arrive from the
// external payment gateway integration.
const (
	TopicPaymentSucceeded = "commerce.payment.succeeded"
	TopicPaymentFailed    = "commerce.payment.failed"
)

// OrderService defines the order operations required by the event consumer.
type OrderService interface {
	MarkPaid(ctx context.Context, orderID string) error
	Cancel(ctx context.Context, orderID, reason string) error
}

// PaymentSucceededData is the expected payload of a payment.succeeded event.
type PaymentSucceededData struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
}

// PaymentFailedData is the expected payload of a payment.failed event.
type PaymentFailedData struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Reason    string `json:"reason"`
}

// Consumer processes incoming payment events and drives the order state
// machine. Handlers are idempotent: redelivered events hit transitions that
// are already applied and return without error.
type Consumer struct {
	logger  *slog.Logger
	service OrderService
}

// NewConsumer creates a new payment event consumer.
func NewConsumer(service OrderService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandlePaymentSucceeded processes payment.succeeded events by marking the
// order as paid and confirming its stock reservations.
func (c *Consumer) HandlePaymentSucceeded(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentSucceededData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.succeeded data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing payment.succeeded event",
		slog.String("payment_id", data.PaymentID),
		slog.String("order_id", data.OrderID),
	)

	if err := c.service.MarkPaid(ctx, data.OrderID); err != nil {
		return fmt.Errorf("mark order %s paid: %w", data.OrderID, err)
	}

	c.logger.InfoContext(ctx, "order marked as paid",
		slog.String("order_id", data.OrderID),
	)

	return nil
}

// HandlePaymentFailed processes payment.failed events by cancelling the order
// and releasing its stock reservations. An order that already left
// PENDING_PAYMENT is left alone; the late failure is logged and skipped.
func (c *Consumer) HandlePaymentFailed(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentFailedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.failed data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing payment.failed event",
		slog.String("payment_id", data.PaymentID),
		slog.String("order_id", data.OrderID),
		slog.String("reason", data.Reason),
	)

	reason := data.Reason
	if reason == "" {
		reason = "payment failed"
	}

	if err := c.service.Cancel(ctx, data.OrderID, reason); err != nil {
		if errors.Is(err, domain.ErrOrderCannotBeCancelled) {
			c.logger.WarnContext(ctx, "payment failed for order that cannot be cancelled, skipping",
				slog.String("order_id", data.OrderID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fmt.Errorf("cancel order %s: %w", data.OrderID, err)
	}

	c.logger.InfoContext(ctx, "order cancelled after failed payment",
		slog.String("order_id", data.OrderID),
	)

	return nil
}
