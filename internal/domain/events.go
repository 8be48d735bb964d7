package domain

import (
	"time"
)

// Event names. These double as Kafka topic suffixes in the event layer.
const (
	EventInventoryCreated   = "inventory.created"
	EventStockAdjusted      = "inventory.stock_adjusted"
	EventStockReserved      = "inventory.stock_reserved"
	EventStockReleased      = "inventory.stock_released"
	EventStockDepleted      = "inventory.stock_depleted"
	EventOrderCreated       = "order.created"
	EventOrderPaid          = "order.paid"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCompleted     = "order.completed"
	EventOrderCancelled     = "order.cancelled"
)

// Event is a record of a state change produced by an aggregate mutation.
// Events are buffered on the aggregate and must only be dispatched after the
// enclosing transaction has committed.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// eventBase carries the fields shared by all events.
type eventBase struct {
	aggregateID string
	occurredAt  time.Time
}

func newEventBase(aggregateID string) eventBase {
	return eventBase{aggregateID: aggregateID, occurredAt: time.Now().UTC()}
}

func (e eventBase) AggregateID() string   { return e.aggregateID }
func (e eventBase) OccurredAt() time.Time { return e.occurredAt }

// eventRecorder buffers events for an aggregate. Aggregates own one by
// composition; the application layer drains it via the aggregate's PullEvents
// after a successful commit.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) pullEvents() []Event {
	events := r.events
	r.events = nil
	return events
}

// --- Inventory events ---

// InventoryCreated is emitted when stock tracking starts for a product.
type InventoryCreated struct {
	eventBase
	ProductID    string
	InitialStock int
}

func (InventoryCreated) EventName() string { return EventInventoryCreated }

// StockAdjusted is emitted for every change to the physical stock count.
// Adjustment is signed: positive for additions, negative for removals.
type StockAdjusted struct {
	eventBase
	ProductID  string
	Adjustment int
	Stock      int
	Reason     string
}

func (StockAdjusted) EventName() string { return EventStockAdjusted }

// StockReserved is emitted when units are put on hold for an order.
type StockReserved struct {
	eventBase
	ProductID      string
	Quantity       int
	TotalReserved  int
	AvailableStock int
}

func (StockReserved) EventName() string { return EventStockReserved }

// StockReleased is emitted when a hold is abandoned.
type StockReleased struct {
	eventBase
	ProductID     string
	Quantity      int
	TotalReserved int
}

func (StockReleased) EventName() string { return EventStockReleased }

// StockDepleted is emitted when available stock reaches zero.
type StockDepleted struct {
	eventBase
	ProductID string
}

func (StockDepleted) EventName() string { return EventStockDepleted }

// --- Order events ---

// OrderCreated is emitted once per order, for both draft and checkout paths.
type OrderCreated struct {
	eventBase
	OrderNumber string
	UserID      string
	Status      OrderStatus
	Total       Money
	ItemCount   int
}

func (OrderCreated) EventName() string { return EventOrderCreated }

// OrderPaid is emitted when payment is confirmed.
type OrderPaid struct {
	eventBase
	OrderNumber string
	Total       Money
}

func (OrderPaid) EventName() string { return EventOrderPaid }

// OrderStatusChanged is emitted for every status transition.
type OrderStatusChanged struct {
	eventBase
	OrderNumber string
	From        OrderStatus
	To          OrderStatus
}

func (OrderStatusChanged) EventName() string { return EventOrderStatusChanged }

// OrderCompleted is emitted when fulfillment finishes.
type OrderCompleted struct {
	eventBase
	OrderNumber string
}

func (OrderCompleted) EventName() string { return EventOrderCompleted }

// OrderCancelled is emitted when an order is cancelled. RequiresRefund is true
// when the order had already been paid.
type OrderCancelled struct {
	eventBase
	OrderNumber    string
	Reason         string
	RequiresRefund bool
}

func (OrderCancelled) EventName() string { return EventOrderCancelled }
