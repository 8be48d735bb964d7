package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is an immutable line item owned by an Order. Prices are a
// snapshot taken at order-creation time, not a live reference to the catalog.
type OrderItem struct {
	id            string
	productID     string
	quantity      int
	unitPrice     Money
	originalPrice Money
	createdAt     time.Time
}

// NewOrderItem builds a validated line item.
func NewOrderItem(productID string, quantity int, unitPrice, originalPrice Money) (OrderItem, error) {
	if productID == "" {
		return OrderItem{}, &OrderStateConflictError{Message: "order item product id is required"}
	}
	if quantity <= 0 {
		return OrderItem{}, &OrderStateConflictError{Message: "order item quantity must be positive"}
	}
	// The list price must not be below the charged price; DiscountPerUnit
	// would otherwise be negative.
	if _, err := originalPrice.Subtract(unitPrice); err != nil {
		return OrderItem{}, &OrderStateConflictError{Message: "original price must not be below unit price in the same currency"}
	}

	return OrderItem{
		id:            uuid.New().String(),
		productID:     productID,
		quantity:      quantity,
		unitPrice:     unitPrice,
		originalPrice: originalPrice,
		createdAt:     time.Now().UTC(),
	}, nil
}

func (i OrderItem) ID() string           { return i.id }
func (i OrderItem) ProductID() string    { return i.productID }
func (i OrderItem) Quantity() int        { return i.quantity }
func (i OrderItem) UnitPrice() Money     { return i.unitPrice }
func (i OrderItem) OriginalPrice() Money { return i.originalPrice }
func (i OrderItem) CreatedAt() time.Time { return i.createdAt }

// Subtotal returns unit price times quantity.
func (i OrderItem) Subtotal() Money {
	subtotal, _ := i.unitPrice.Multiply(i.quantity)
	return subtotal
}

// DiscountPerUnit returns the difference between list and charged price.
func (i OrderItem) DiscountPerUnit() Money {
	discount, _ := i.originalPrice.Subtract(i.unitPrice)
	return discount
}

// OrderItemSnapshot is the persistence shape of an OrderItem. It exists so
// repositories can rebuild items without the domain exposing setters.
type OrderItemSnapshot struct {
	ID            string
	ProductID     string
	Quantity      int
	UnitPrice     Money
	OriginalPrice Money
	CreatedAt     time.Time
}

// Snapshot exports the item for persistence.
func (i OrderItem) Snapshot() OrderItemSnapshot {
	return OrderItemSnapshot{
		ID:            i.id,
		ProductID:     i.productID,
		Quantity:      i.quantity,
		UnitPrice:     i.unitPrice,
		OriginalPrice: i.originalPrice,
		CreatedAt:     i.createdAt,
	}
}

// RestoreOrderItem rebuilds an item from its persisted snapshot.
func RestoreOrderItem(s OrderItemSnapshot) (OrderItem, error) {
	if s.ID == "" || s.ProductID == "" {
		return OrderItem{}, &OrderStateConflictError{Message: "order item snapshot is missing identity"}
	}
	if s.Quantity <= 0 {
		return OrderItem{}, &OrderStateConflictError{Message: "order item snapshot quantity must be positive"}
	}
	return OrderItem{
		id:            s.ID,
		productID:     s.ProductID,
		quantity:      s.Quantity,
		unitPrice:     s.UnitPrice,
		originalPrice: s.OriginalPrice,
		createdAt:     s.CreatedAt,
	}, nil
}
