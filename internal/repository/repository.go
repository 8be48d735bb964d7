package repository

import (
	"context"

	"github.com/altastore/commerce/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	Status  *domain.OrderStatus
	Page    int
	PerPage int
}

// InventoryRepository persists the Inventory aggregate. Save writes the whole
// aggregate snapshot; implementations must serialize concurrent
// load-mutate-save cycles for the same product (row-level locks) when called
// inside a unit-of-work transaction.
type InventoryRepository interface {
	// FindByID loads the aggregate by its identity.
	FindByID(ctx context.Context, id string) (*domain.Inventory, error)

	// FindByProductID loads the aggregate for a product. Within a
	// transaction the row is locked for update.
	FindByProductID(ctx context.Context, productID string) (*domain.Inventory, error)

	// ExistsByProductID reports whether stock tracking exists for a product.
	ExistsByProductID(ctx context.Context, productID string) (bool, error)

	// Save upserts the full aggregate snapshot.
	Save(ctx context.Context, inventory *domain.Inventory) error

	// Delete removes the aggregate. This is a repository-level operation,
	// not a domain transition.
	Delete(ctx context.Context, id string) error

	// ListLowAvailability returns aggregates whose available stock is at or
	// below threshold, with the total count.
	ListLowAvailability(ctx context.Context, threshold, page, perPage int) ([]*domain.Inventory, int, error)
}

// OrderRepository persists the Order aggregate including its items.
type OrderRepository interface {
	// FindByID loads an order with its items.
	FindByID(ctx context.Context, id string) (*domain.Order, error)

	// FindByOrderNumber loads an order by its human-facing number.
	FindByOrderNumber(ctx context.Context, number domain.OrderNumber) (*domain.Order, error)

	// ExistsByOrderNumber reports whether an order number is taken.
	ExistsByOrderNumber(ctx context.Context, number domain.OrderNumber) (bool, error)

	// Save upserts the order and replaces its items.
	Save(ctx context.Context, order *domain.Order) error

	// Delete removes the order and its items.
	Delete(ctx context.Context, id string) error

	// List returns orders matching the filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, int, error)
}

// UnitOfWork scopes a load-mutate-save sequence to one transaction. The
// domain core never manages transactions itself; use cases that touch both
// Order and Inventory must run inside a single WithinTransaction call so a
// partial commit (stock reserved but no order, or vice versa) is impossible.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
