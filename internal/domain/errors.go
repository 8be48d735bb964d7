package domain

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is against these to classify a domain
// failure; the typed errors below carry the structured details.
var (
	ErrInsufficientStock            = errors.New("insufficient stock")
	ErrInvalidReservation           = errors.New("invalid reservation")
	ErrInventoryStateConflict       = errors.New("inventory state conflict")
	ErrInvalidStockQuantity         = errors.New("invalid stock quantity")
	ErrInvalidMoney                 = errors.New("invalid money value")
	ErrCurrencyMismatch             = errors.New("currency mismatch")
	ErrOrderIsEmpty                 = errors.New("order must contain at least one item")
	ErrInvalidOrderStatusTransition = errors.New("invalid order status transition")
	ErrOrderCannotBeCancelled       = errors.New("order cannot be cancelled")
	ErrOrderStateConflict           = errors.New("order state conflict")
	ErrInvalidOrderNumber           = errors.New("invalid order number")
)

// InsufficientStockError is returned when a reservation or removal requests
// more units than are currently available.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidReservationError is returned for non-positive reservation quantities
// or attempts to release/confirm more than is reserved.
type InvalidReservationError struct {
	ProductID string
	Requested int
	Reserved  int
}

func (e *InvalidReservationError) Error() string {
	return fmt.Sprintf("invalid reservation for product %s: requested %d, reserved %d",
		e.ProductID, e.Requested, e.Reserved)
}

func (e *InvalidReservationError) Unwrap() error { return ErrInvalidReservation }

// InventoryStateConflictError is returned when a mutation would violate the
// reserved <= stock invariant.
type InventoryStateConflictError struct {
	ProductID string
	Message   string
}

func (e *InventoryStateConflictError) Error() string {
	return fmt.Sprintf("inventory state conflict for product %s: %s", e.ProductID, e.Message)
}

func (e *InventoryStateConflictError) Unwrap() error { return ErrInventoryStateConflict }

// InvalidStockQuantityError is returned when constructing a stock quantity
// from a negative value or adjusting by a non-positive amount.
type InvalidStockQuantityError struct {
	Value int
}

func (e *InvalidStockQuantityError) Error() string {
	return fmt.Sprintf("invalid stock quantity: %d", e.Value)
}

func (e *InvalidStockQuantityError) Unwrap() error { return ErrInvalidStockQuantity }

// InvalidOrderStatusTransitionError is returned when a requested transition is
// not present in the status graph.
type InvalidOrderStatusTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidOrderStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func (e *InvalidOrderStatusTransitionError) Unwrap() error { return ErrInvalidOrderStatusTransition }

// OrderCannotBeCancelledError is returned when cancellation is attempted from
// a status with no cancellation edge.
type OrderCannotBeCancelledError struct {
	OrderID string
	Status  OrderStatus
}

func (e *OrderCannotBeCancelledError) Error() string {
	return fmt.Sprintf("order %s cannot be cancelled in status %s", e.OrderID, e.Status)
}

func (e *OrderCannotBeCancelledError) Unwrap() error { return ErrOrderCannotBeCancelled }

// OrderStateConflictError is returned for mutations on a terminal order and
// for invalid field values on an order.
type OrderStateConflictError struct {
	OrderID string
	Message string
}

func (e *OrderStateConflictError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("order state conflict: %s", e.Message)
	}
	return fmt.Sprintf("order %s state conflict: %s", e.OrderID, e.Message)
}

func (e *OrderStateConflictError) Unwrap() error { return ErrOrderStateConflict }
