package domain

import "fmt"

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "DRAFT"
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusFulfillment    OrderStatus = "FULFILLMENT"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusDraft,
		OrderStatusPendingPayment,
		OrderStatusPaid,
		OrderStatusFulfillment,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// ParseOrderStatus validates a status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, status := range ValidOrderStatuses() {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

// AllowedTransitions defines the status graph. Cancellation edges live here
// too, so CanBeCancelled and Cancel share a single source of truth.
func AllowedTransitions() map[OrderStatus][]OrderStatus {
	return map[OrderStatus][]OrderStatus{
		OrderStatusDraft:          {OrderStatusPendingPayment},
		OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:           {OrderStatusFulfillment, OrderStatusCancelled},
		OrderStatusFulfillment:    {OrderStatusCompleted},
		OrderStatusCompleted:      {},
		OrderStatusCancelled:      {},
	}
}

// CanTransition checks whether the graph contains the from→to edge.
func CanTransition(from, to OrderStatus) bool {
	allowed, ok := AllowedTransitions()[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outbound transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) String() string { return string(s) }
