package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stock adjustment reasons recorded on StockAdjusted events.
const (
	AdjustReasonRestock    = "restock"
	AdjustReasonCorrection = "correction"
	AdjustReasonFulfilled  = "fulfilled"
)

// Inventory is the aggregate root owning the stock and reservation counters
// for one product. The invariant 0 <= reserved <= stock holds after every
// operation: each mutation validates fully before touching state, so a failed
// call leaves the aggregate unchanged.
//
// The aggregate itself is a plain synchronous value holder; serializing
// concurrent reserve/confirm cycles against the same product is the
// transaction layer's job (row locks around load-mutate-save).
type Inventory struct {
	id        string
	productID string
	stock     StockQuantity
	reserved  StockQuantity
	createdAt time.Time
	updatedAt time.Time

	events eventRecorder
}

// NewInventory starts stock tracking for a product. initialStock may be zero.
func NewInventory(productID string, initialStock int) (*Inventory, error) {
	if productID == "" {
		return nil, &InventoryStateConflictError{ProductID: productID, Message: "product id is required"}
	}
	stock, err := NewStockQuantity(initialStock)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &Inventory{
		id:        uuid.New().String(),
		productID: productID,
		stock:     stock,
		reserved:  0,
		createdAt: now,
		updatedAt: now,
	}

	inv.events.record(InventoryCreated{
		eventBase:    newEventBase(inv.id),
		ProductID:    productID,
		InitialStock: initialStock,
	})

	return inv, nil
}

func (inv *Inventory) ID() string           { return inv.id }
func (inv *Inventory) ProductID() string    { return inv.productID }
func (inv *Inventory) Stock() int           { return inv.stock.Int() }
func (inv *Inventory) Reserved() int        { return inv.reserved.Int() }
func (inv *Inventory) CreatedAt() time.Time { return inv.createdAt }
func (inv *Inventory) UpdatedAt() time.Time { return inv.updatedAt }

// AvailableStock returns stock minus reserved.
func (inv *Inventory) AvailableStock() int {
	return inv.stock.Int() - inv.reserved.Int()
}

// HasAvailableStock checks whether quantity units could be reserved right now.
func (inv *Inventory) HasAvailableStock(quantity int) bool {
	return quantity > 0 && inv.AvailableStock() >= quantity
}

// IsDepleted reports whether no units are available.
func (inv *Inventory) IsDepleted() bool {
	return inv.AvailableStock() <= 0
}

// HasReservations reports whether any units are on hold.
func (inv *Inventory) HasReservations() bool {
	return inv.reserved > 0
}

// AddStock increases the physical stock count.
func (inv *Inventory) AddStock(quantity int, reason string) error {
	if quantity <= 0 {
		return &InvalidStockQuantityError{Value: quantity}
	}

	stock, err := inv.stock.Add(quantity)
	if err != nil {
		return err
	}
	inv.stock = stock
	inv.touch()

	inv.events.record(StockAdjusted{
		eventBase:  newEventBase(inv.id),
		ProductID:  inv.productID,
		Adjustment: quantity,
		Stock:      inv.stock.Int(),
		Reason:     reason,
	})

	return nil
}

// RemoveStock decreases the physical stock count. Reserved units are
// untouchable: only available stock can be removed.
func (inv *Inventory) RemoveStock(quantity int, reason string) error {
	if quantity <= 0 {
		return &InvalidStockQuantityError{Value: quantity}
	}
	if available := inv.AvailableStock(); available < quantity {
		return &InsufficientStockError{ProductID: inv.productID, Requested: quantity, Available: available}
	}

	stock, err := inv.stock.Subtract(quantity)
	if err != nil {
		return err
	}
	inv.stock = stock
	inv.touch()

	inv.events.record(StockAdjusted{
		eventBase:  newEventBase(inv.id),
		ProductID:  inv.productID,
		Adjustment: -quantity,
		Stock:      inv.stock.Int(),
		Reason:     reason,
	})
	inv.recordDepletedIfNeeded()

	return nil
}

// SetStock replaces the stock count outright (admin override). The new count
// must still cover existing reservations.
func (inv *Inventory) SetStock(quantity int, reason string) error {
	stock, err := NewStockQuantity(quantity)
	if err != nil {
		return err
	}
	if quantity < inv.reserved.Int() {
		return &InventoryStateConflictError{
			ProductID: inv.productID,
			Message:   "stock cannot be set below the reserved count",
		}
	}

	delta := quantity - inv.stock.Int()
	inv.stock = stock
	inv.touch()

	inv.events.record(StockAdjusted{
		eventBase:  newEventBase(inv.id),
		ProductID:  inv.productID,
		Adjustment: delta,
		Stock:      inv.stock.Int(),
		Reason:     reason,
	})
	inv.recordDepletedIfNeeded()

	return nil
}

// Reserve puts quantity units on hold. This is the overselling-prevention
// primitive: checkout must reserve before committing an order to
// PENDING_PAYMENT, inside a transaction that serializes reservations for the
// same product.
func (inv *Inventory) Reserve(quantity int) error {
	if quantity <= 0 {
		return &InvalidReservationError{ProductID: inv.productID, Requested: quantity, Reserved: inv.reserved.Int()}
	}
	if available := inv.AvailableStock(); available < quantity {
		return &InsufficientStockError{ProductID: inv.productID, Requested: quantity, Available: available}
	}

	reserved, err := inv.reserved.Add(quantity)
	if err != nil {
		return err
	}
	inv.reserved = reserved
	inv.touch()

	inv.events.record(StockReserved{
		eventBase:      newEventBase(inv.id),
		ProductID:      inv.productID,
		Quantity:       quantity,
		TotalReserved:  inv.reserved.Int(),
		AvailableStock: inv.AvailableStock(),
	})

	return nil
}

// Release abandons a hold on quantity units (cancelled order, expired
// checkout) and makes them available again.
func (inv *Inventory) Release(quantity int) error {
	if quantity <= 0 || quantity > inv.reserved.Int() {
		return &InvalidReservationError{ProductID: inv.productID, Requested: quantity, Reserved: inv.reserved.Int()}
	}

	reserved, err := inv.reserved.Subtract(quantity)
	if err != nil {
		return err
	}
	inv.reserved = reserved
	inv.touch()

	inv.events.record(StockReleased{
		eventBase:     newEventBase(inv.id),
		ProductID:     inv.productID,
		Quantity:      quantity,
		TotalReserved: inv.reserved.Int(),
	})

	return nil
}

// ConfirmReservation converts a hold into a permanent deduction: both stock
// and reserved decrease by quantity. Used when the order is paid.
func (inv *Inventory) ConfirmReservation(quantity int) error {
	if quantity <= 0 || quantity > inv.reserved.Int() {
		return &InvalidReservationError{ProductID: inv.productID, Requested: quantity, Reserved: inv.reserved.Int()}
	}

	stock, err := inv.stock.Subtract(quantity)
	if err != nil {
		return err
	}
	reserved, err := inv.reserved.Subtract(quantity)
	if err != nil {
		return err
	}
	inv.stock = stock
	inv.reserved = reserved
	inv.touch()

	inv.events.record(StockAdjusted{
		eventBase:  newEventBase(inv.id),
		ProductID:  inv.productID,
		Adjustment: -quantity,
		Stock:      inv.stock.Int(),
		Reason:     AdjustReasonFulfilled,
	})
	inv.recordDepletedIfNeeded()

	return nil
}

// PullEvents drains the buffered events. Call after the enclosing transaction
// has committed.
func (inv *Inventory) PullEvents() []Event {
	return inv.events.pullEvents()
}

func (inv *Inventory) touch() {
	inv.updatedAt = time.Now().UTC()
}

func (inv *Inventory) recordDepletedIfNeeded() {
	if inv.IsDepleted() {
		inv.events.record(StockDepleted{
			eventBase: newEventBase(inv.id),
			ProductID: inv.productID,
		})
	}
}

// InventorySnapshot is the persistence shape of the aggregate.
type InventorySnapshot struct {
	ID        string
	ProductID string
	Stock     int
	Reserved  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot exports the aggregate state for persistence.
func (inv *Inventory) Snapshot() InventorySnapshot {
	return InventorySnapshot{
		ID:        inv.id,
		ProductID: inv.productID,
		Stock:     inv.stock.Int(),
		Reserved:  inv.reserved.Int(),
		CreatedAt: inv.createdAt,
		UpdatedAt: inv.updatedAt,
	}
}

// RestoreInventory rebuilds the aggregate from a persisted snapshot,
// re-checking the invariants so a corrupt row cannot produce an invalid
// aggregate.
func RestoreInventory(s InventorySnapshot) (*Inventory, error) {
	if s.ID == "" || s.ProductID == "" {
		return nil, &InventoryStateConflictError{ProductID: s.ProductID, Message: "snapshot is missing identity"}
	}
	stock, err := NewStockQuantity(s.Stock)
	if err != nil {
		return nil, err
	}
	reserved, err := NewStockQuantity(s.Reserved)
	if err != nil {
		return nil, err
	}
	if reserved > stock {
		return nil, &InventoryStateConflictError{ProductID: s.ProductID, Message: "reserved exceeds stock"}
	}

	return &Inventory{
		id:        s.ID,
		productID: s.ProductID,
		stock:     stock,
		reserved:  reserved,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
	}, nil
}
