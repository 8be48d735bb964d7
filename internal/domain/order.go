package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order is the aggregate root for a purchase. It exclusively owns its line
// items, keeps total arithmetic consistent on every mutation, and enforces
// the status state machine. Once a terminal status is reached the order is
// immutable; re-invoking an already-satisfied transition is a no-op.
//
// Order never references Inventory directly. The application layer
// coordinates the two aggregates inside one unit-of-work transaction.
type Order struct {
	id             string
	number         OrderNumber
	userID         string
	status         OrderStatus
	items          []OrderItem
	currency       string
	subtotal       Money
	tax            Money
	shippingCost   Money
	discountAmount Money
	total          Money
	discountID     string
	notes          string
	cancelReason   string
	refundRequired bool
	createdAt      time.Time
	updatedAt      time.Time

	events eventRecorder
}

// OrderItemInput describes one line item of a new order.
type OrderItemInput struct {
	ProductID     string
	Quantity      int
	UnitPrice     Money
	OriginalPrice Money
}

// NewOrderInput holds the parameters for creating an order. Tax, ShippingCost
// and DiscountAmount default to zero in the order currency when left as the
// Money zero value.
type NewOrderInput struct {
	UserID         string
	Items          []OrderItemInput
	Tax            Money
	ShippingCost   Money
	DiscountAmount Money
	DiscountID     string
	Notes          string
	Currency       string
}

// NewOrder creates an order from a checkout command. The checkout flow goes
// straight to PENDING_PAYMENT; stock must already be reserved by the caller
// within the same transaction.
func NewOrder(input NewOrderInput) (*Order, error) {
	return newOrder(input, OrderStatusPendingPayment)
}

// NewDraft creates an order in DRAFT. Use Submit to move it into checkout.
func NewDraft(input NewOrderInput) (*Order, error) {
	return newOrder(input, OrderStatusDraft)
}

func newOrder(input NewOrderInput, status OrderStatus) (*Order, error) {
	if input.UserID == "" {
		return nil, &OrderStateConflictError{Message: "user id is required"}
	}
	if len(input.Items) == 0 {
		return nil, ErrOrderIsEmpty
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if !IsSupportedCurrency(currency) {
		return nil, &OrderStateConflictError{Message: "unsupported currency " + currency}
	}

	notes := input.Notes
	if notes != "" && strings.TrimSpace(notes) == "" {
		return nil, &OrderStateConflictError{Message: "notes must not be blank"}
	}

	zero, err := ZeroMoney(currency)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, len(input.Items))
	subtotal := zero
	for i, in := range input.Items {
		item, err := NewOrderItem(in.ProductID, in.Quantity, in.UnitPrice, in.OriginalPrice)
		if err != nil {
			return nil, err
		}
		subtotal, err = subtotal.Add(item.Subtotal())
		if err != nil {
			return nil, err
		}
		items[i] = item
	}

	now := time.Now().UTC()
	o := &Order{
		id:             uuid.New().String(),
		number:         GenerateOrderNumber(),
		userID:         input.UserID,
		status:         status,
		items:          items,
		currency:       currency,
		subtotal:       subtotal,
		tax:            moneyOrZero(input.Tax, zero),
		shippingCost:   moneyOrZero(input.ShippingCost, zero),
		discountAmount: moneyOrZero(input.DiscountAmount, zero),
		discountID:     input.DiscountID,
		notes:          notes,
		createdAt:      now,
		updatedAt:      now,
	}

	if err := o.recomputeTotal(); err != nil {
		return nil, err
	}

	o.events.record(OrderCreated{
		eventBase:   newEventBase(o.id),
		OrderNumber: o.number.String(),
		UserID:      o.userID,
		Status:      o.status,
		Total:       o.total,
		ItemCount:   len(o.items),
	})

	return o, nil
}

func moneyOrZero(m Money, zero Money) Money {
	if !m.IsValid() {
		return zero
	}
	return m
}

func (o *Order) ID() string            { return o.id }
func (o *Order) Number() OrderNumber   { return o.number }
func (o *Order) UserID() string        { return o.userID }
func (o *Order) Status() OrderStatus   { return o.status }
func (o *Order) Currency() string      { return o.currency }
func (o *Order) Subtotal() Money       { return o.subtotal }
func (o *Order) Tax() Money            { return o.tax }
func (o *Order) ShippingCost() Money   { return o.shippingCost }
func (o *Order) DiscountAmount() Money { return o.discountAmount }
func (o *Order) Total() Money          { return o.total }
func (o *Order) DiscountID() string    { return o.discountID }
func (o *Order) Notes() string         { return o.notes }
func (o *Order) CancelReason() string  { return o.cancelReason }
func (o *Order) CreatedAt() time.Time  { return o.createdAt }
func (o *Order) UpdatedAt() time.Time  { return o.updatedAt }

// Items returns a copy of the line items; callers cannot mutate the aggregate
// through it.
func (o *Order) Items() []OrderItem {
	items := make([]OrderItem, len(o.items))
	copy(items, o.items)
	return items
}

// --- Status queries ---

func (o *Order) IsDraft() bool          { return o.status == OrderStatusDraft }
func (o *Order) IsPendingPayment() bool { return o.status == OrderStatusPendingPayment }
func (o *Order) IsPaid() bool           { return o.status == OrderStatusPaid }
func (o *Order) IsInFulfillment() bool  { return o.status == OrderStatusFulfillment }
func (o *Order) IsCompleted() bool      { return o.status == OrderStatusCompleted }
func (o *Order) IsCancelled() bool      { return o.status == OrderStatusCancelled }
func (o *Order) IsTerminal() bool       { return o.status.IsTerminal() }

func (o *Order) CanBePaid() bool           { return CanTransition(o.status, OrderStatusPaid) }
func (o *Order) CanBeCancelled() bool      { return CanTransition(o.status, OrderStatusCancelled) }
func (o *Order) CanBeModified() bool       { return !o.IsTerminal() }
func (o *Order) CanStartFulfillment() bool { return CanTransition(o.status, OrderStatusFulfillment) }
func (o *Order) CanBeCompleted() bool      { return CanTransition(o.status, OrderStatusCompleted) }

// RequiresRefundOnCancellation reports whether the order was PAID when it was
// cancelled, signalling the application layer to start a refund workflow.
func (o *Order) RequiresRefundOnCancellation() bool { return o.refundRequired }

// --- Transitions ---

// Submit moves a draft order into checkout. Idempotent once pending payment.
func (o *Order) Submit() error {
	if o.status == OrderStatusPendingPayment {
		return nil
	}
	return o.transition(OrderStatusPendingPayment)
}

// MarkAsPaid records a confirmed payment. Idempotent when already paid.
func (o *Order) MarkAsPaid() error {
	if o.status == OrderStatusPaid {
		return nil
	}
	from := o.status
	if !CanTransition(from, OrderStatusPaid) {
		return &InvalidOrderStatusTransitionError{From: from, To: OrderStatusPaid}
	}

	o.status = OrderStatusPaid
	o.touch()

	o.events.record(OrderPaid{
		eventBase:   newEventBase(o.id),
		OrderNumber: o.number.String(),
		Total:       o.total,
	})
	o.recordStatusChanged(from)

	return nil
}

// StartFulfillment begins shipping preparation. Idempotent once started.
func (o *Order) StartFulfillment() error {
	if o.status == OrderStatusFulfillment {
		return nil
	}
	return o.transition(OrderStatusFulfillment)
}

// Complete finishes fulfillment. Idempotent once completed.
func (o *Order) Complete() error {
	if o.status == OrderStatusCompleted {
		return nil
	}
	from := o.status
	if !CanTransition(from, OrderStatusCompleted) {
		return &InvalidOrderStatusTransitionError{From: from, To: OrderStatusCompleted}
	}

	o.status = OrderStatusCompleted
	o.touch()

	o.events.record(OrderCompleted{
		eventBase:   newEventBase(o.id),
		OrderNumber: o.number.String(),
	})
	o.recordStatusChanged(from)

	return nil
}

// Cancel aborts the order. Idempotent once cancelled. The caller is
// responsible for releasing any stock reservations in the same transaction.
func (o *Order) Cancel(reason string) error {
	if o.status == OrderStatusCancelled {
		return nil
	}
	from := o.status
	if !CanTransition(from, OrderStatusCancelled) {
		return &OrderCannotBeCancelledError{OrderID: o.id, Status: from}
	}

	o.status = OrderStatusCancelled
	o.cancelReason = reason
	o.refundRequired = from == OrderStatusPaid
	o.touch()

	o.events.record(OrderCancelled{
		eventBase:      newEventBase(o.id),
		OrderNumber:    o.number.String(),
		Reason:         reason,
		RequiresRefund: o.refundRequired,
	})
	o.recordStatusChanged(from)

	return nil
}

// --- Mutations guarded by terminal status ---

// UpdateNotes replaces the order notes. An empty string clears them; a
// blank-only string is rejected.
func (o *Order) UpdateNotes(notes string) error {
	if err := o.ensureNotTerminal(); err != nil {
		return err
	}
	if notes != "" && strings.TrimSpace(notes) == "" {
		return &OrderStateConflictError{OrderID: o.id, Message: "notes must not be blank"}
	}
	o.notes = notes
	o.touch()
	return nil
}

// ApplyDiscount sets the order-level discount and recomputes the total.
func (o *Order) ApplyDiscount(discountID string, amount Money) error {
	if err := o.ensureNotTerminal(); err != nil {
		return err
	}
	if discountID == "" {
		return &OrderStateConflictError{OrderID: o.id, Message: "discount id is required"}
	}
	if amount.Currency() != o.currency {
		return &OrderStateConflictError{OrderID: o.id, Message: "discount currency does not match order currency"}
	}

	prevID, prevAmount := o.discountID, o.discountAmount
	o.discountID = discountID
	o.discountAmount = amount
	if err := o.recomputeTotal(); err != nil {
		o.discountID, o.discountAmount = prevID, prevAmount
		return &OrderStateConflictError{OrderID: o.id, Message: "discount exceeds order total"}
	}
	o.touch()
	return nil
}

// RemoveDiscount clears the order-level discount and recomputes the total.
func (o *Order) RemoveDiscount() error {
	if err := o.ensureNotTerminal(); err != nil {
		return err
	}
	zero, err := ZeroMoney(o.currency)
	if err != nil {
		return err
	}
	o.discountID = ""
	o.discountAmount = zero
	if err := o.recomputeTotal(); err != nil {
		return err
	}
	o.touch()
	return nil
}

// PullEvents drains the buffered events. Call after the enclosing transaction
// has committed.
func (o *Order) PullEvents() []Event {
	return o.events.pullEvents()
}

// transition applies a table-checked status change that emits only
// OrderStatusChanged.
func (o *Order) transition(to OrderStatus) error {
	from := o.status
	if !CanTransition(from, to) {
		return &InvalidOrderStatusTransitionError{From: from, To: to}
	}
	o.status = to
	o.touch()
	o.recordStatusChanged(from)
	return nil
}

func (o *Order) recordStatusChanged(from OrderStatus) {
	o.events.record(OrderStatusChanged{
		eventBase:   newEventBase(o.id),
		OrderNumber: o.number.String(),
		From:        from,
		To:          o.status,
	})
}

func (o *Order) ensureNotTerminal() error {
	if o.IsTerminal() {
		return &OrderStateConflictError{OrderID: o.id, Message: "order is " + o.status.String() + " and cannot be modified"}
	}
	return nil
}

// recomputeTotal enforces total = subtotal + tax + shipping - discount.
func (o *Order) recomputeTotal() error {
	total, err := o.subtotal.Add(o.tax)
	if err != nil {
		return err
	}
	total, err = total.Add(o.shippingCost)
	if err != nil {
		return err
	}
	total, err = total.Subtract(o.discountAmount)
	if err != nil {
		return err
	}
	o.total = total
	return nil
}

func (o *Order) touch() {
	o.updatedAt = time.Now().UTC()
}

// OrderSnapshot is the persistence shape of the aggregate.
type OrderSnapshot struct {
	ID             string
	Number         string
	UserID         string
	Status         OrderStatus
	Items          []OrderItemSnapshot
	Currency       string
	Subtotal       Money
	Tax            Money
	ShippingCost   Money
	DiscountAmount Money
	Total          Money
	DiscountID     string
	Notes          string
	CancelReason   string
	RefundRequired bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot exports the aggregate state for persistence.
func (o *Order) Snapshot() OrderSnapshot {
	items := make([]OrderItemSnapshot, len(o.items))
	for i, item := range o.items {
		items[i] = item.Snapshot()
	}
	return OrderSnapshot{
		ID:             o.id,
		Number:         o.number.String(),
		UserID:         o.userID,
		Status:         o.status,
		Items:          items,
		Currency:       o.currency,
		Subtotal:       o.subtotal,
		Tax:            o.tax,
		ShippingCost:   o.shippingCost,
		DiscountAmount: o.discountAmount,
		Total:          o.total,
		DiscountID:     o.discountID,
		Notes:          o.notes,
		CancelReason:   o.cancelReason,
		RefundRequired: o.refundRequired,
		CreatedAt:      o.createdAt,
		UpdatedAt:      o.updatedAt,
	}
}

// RestoreOrder rebuilds the aggregate from a persisted snapshot.
func RestoreOrder(s OrderSnapshot) (*Order, error) {
	if s.ID == "" || s.UserID == "" {
		return nil, &OrderStateConflictError{OrderID: s.ID, Message: "snapshot is missing identity"}
	}
	number, err := ParseOrderNumber(s.Number)
	if err != nil {
		return nil, err
	}
	status, err := ParseOrderStatus(string(s.Status))
	if err != nil {
		return nil, &OrderStateConflictError{OrderID: s.ID, Message: err.Error()}
	}
	if len(s.Items) == 0 {
		return nil, ErrOrderIsEmpty
	}
	if s.UpdatedAt.Before(s.CreatedAt) {
		return nil, &OrderStateConflictError{OrderID: s.ID, Message: "updated_at precedes created_at"}
	}

	items := make([]OrderItem, len(s.Items))
	for i, is := range s.Items {
		item, err := RestoreOrderItem(is)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}

	return &Order{
		id:             s.ID,
		number:         number,
		userID:         s.UserID,
		status:         status,
		items:          items,
		currency:       s.Currency,
		subtotal:       s.Subtotal,
		tax:            s.Tax,
		shippingCost:   s.ShippingCost,
		discountAmount: s.DiscountAmount,
		total:          s.Total,
		discountID:     s.DiscountID,
		notes:          s.Notes,
		cancelReason:   s.CancelReason,
		refundRequired: s.RefundRequired,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}, nil
}
