package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/altastore/commerce/internal/cache"
	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/internal/event"
	"github.com/altastore/commerce/internal/repository"
	apperrors "github.com/altastore/commerce/pkg/errors"
)

// OrderService implements the order lifecycle use cases. Flows that touch
// both the order and its stock reservations run inside a single unit-of-work
// transaction so a partial commit is impossible.
type OrderService struct {
	orders    repository.OrderRepository
	inventory repository.InventoryRepository
	uow       repository.UnitOfWork
	cache     *cache.AvailabilityCache
	producer  *event.Producer
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	inventory repository.InventoryRepository,
	uow repository.UnitOfWork,
	availability *cache.AvailabilityCache,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		inventory: inventory,
		uow:       uow,
		cache:     availability,
		producer:  producer,
		logger:    logger,
	}
}

// Checkout reserves stock for every line item and creates the order in
// PENDING_PAYMENT, all in one transaction. If any reservation fails the whole
// checkout rolls back and no stock stays on hold.
func (s *OrderService) Checkout(ctx context.Context, input domain.NewOrderInput) (*domain.Order, error) {
	var (
		order  *domain.Order
		events []domain.Event
	)

	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = domain.NewOrder(input)
		if err != nil {
			return err
		}

		taken, err := s.orders.ExistsByOrderNumber(ctx, order.Number())
		if err != nil {
			return fmt.Errorf("check order number: %w", err)
		}
		if taken {
			return apperrors.AlreadyExists("order", "order_number", order.Number().String())
		}

		events, err = s.reserveOrderStock(ctx, order)
		if err != nil {
			return err
		}

		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		events = append(events, order.PullEvents()...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, order, events)

	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("order_id", order.ID()),
		slog.String("order_number", order.Number().String()),
		slog.String("user_id", order.UserID()),
		slog.String("total", order.Total().String()),
	)

	return order, nil
}

// CreateDraft creates an order in DRAFT without touching stock. Reservations
// happen when the draft is submitted.
func (s *OrderService) CreateDraft(ctx context.Context, input domain.NewOrderInput) (*domain.Order, error) {
	order, err := domain.NewDraft(input)
	if err != nil {
		return nil, err
	}

	taken, err := s.orders.ExistsByOrderNumber(ctx, order.Number())
	if err != nil {
		return nil, fmt.Errorf("check order number: %w", err)
	}
	if taken {
		return nil, apperrors.AlreadyExists("order", "order_number", order.Number().String())
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save draft order: %w", err)
	}

	s.dispatchEvents(ctx, order.PullEvents())

	s.logger.InfoContext(ctx, "draft order created",
		slog.String("order_id", order.ID()),
		slog.String("order_number", order.Number().String()),
		slog.String("user_id", order.UserID()),
	)

	return order, nil
}

// SubmitDraft moves a draft into checkout, reserving stock for its items in
// the same transaction. Idempotent once the order is pending payment.
func (s *OrderService) SubmitDraft(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "order submitted", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		if order.IsPendingPayment() {
			return nil, nil
		}

		events, err := s.reserveOrderStock(ctx, order)
		if err != nil {
			return nil, err
		}
		if err := order.Submit(); err != nil {
			return nil, err
		}
		return events, nil
	})
}

// MarkPaid records a confirmed payment and converts the order's stock
// reservations into permanent deductions. Idempotent when already paid.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string) error {
	_, err := s.transition(ctx, orderID, "order paid", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		if order.IsPaid() {
			return nil, nil
		}
		if err := order.MarkAsPaid(); err != nil {
			return nil, err
		}
		return s.applyToOrderStock(ctx, order, func(inv *domain.Inventory, quantity int) error {
			return inv.ConfirmReservation(quantity)
		})
	})
	return err
}

// Cancel aborts the order. Pending orders release their holds; paid orders
// return the already-deducted units to stock and flag a refund. Idempotent
// once cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID, reason string) error {
	_, err := s.transition(ctx, orderID, "order cancelled", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		if order.IsCancelled() {
			return nil, nil
		}

		wasPending := order.IsPendingPayment()
		wasPaid := order.IsPaid()

		if err := order.Cancel(reason); err != nil {
			return nil, err
		}

		switch {
		case wasPending:
			return s.applyToOrderStock(ctx, order, func(inv *domain.Inventory, quantity int) error {
				return inv.Release(quantity)
			})
		case wasPaid:
			return s.applyToOrderStock(ctx, order, func(inv *domain.Inventory, quantity int) error {
				return inv.AddStock(quantity, domain.AdjustReasonRestock)
			})
		default:
			return nil, nil
		}
	})
	return err
}

// StartFulfillment begins shipping preparation for a paid order.
func (s *OrderService) StartFulfillment(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "fulfillment started", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		return nil, order.StartFulfillment()
	})
}

// Complete finishes fulfillment.
func (s *OrderService) Complete(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "order completed", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		return nil, order.Complete()
	})
}

// UpdateNotes replaces the order notes.
func (s *OrderService) UpdateNotes(ctx context.Context, orderID, notes string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "order notes updated", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		return nil, order.UpdateNotes(notes)
	})
}

// ApplyDiscount sets the order-level discount.
func (s *OrderService) ApplyDiscount(ctx context.Context, orderID, discountID string, amount domain.Money) (*domain.Order, error) {
	return s.transition(ctx, orderID, "discount applied", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		return nil, order.ApplyDiscount(discountID, amount)
	})
}

// RemoveDiscount clears the order-level discount.
func (s *OrderService) RemoveDiscount(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, "discount removed", func(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
		return nil, order.RemoveDiscount()
	})
}

// DeleteDraft removes a draft order. Orders past DRAFT are not deletable.
func (s *OrderService) DeleteDraft(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if !order.IsDraft() {
		return &domain.OrderStateConflictError{
			OrderID: orderID,
			Message: "only draft orders can be deleted",
		}
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("delete draft order: %w", err)
	}

	s.logger.InfoContext(ctx, "draft order deleted",
		slog.String("order_id", orderID),
	)

	return nil
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// GetOrderByNumber retrieves an order by its human-facing number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	parsed, err := domain.ParseOrderNumber(number)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByOrderNumber(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}
	return order, nil
}

// ListOrders returns orders matching the filter with the total count.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	return orders, total, nil
}

// transition runs a load-mutate-save cycle for one order inside a
// transaction, then dispatches buffered events and logs msg.
func (s *OrderService) transition(
	ctx context.Context,
	orderID string,
	msg string,
	fn func(ctx context.Context, order *domain.Order) ([]domain.Event, error),
) (*domain.Order, error) {
	if orderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}

	var (
		order  *domain.Order
		events []domain.Event
	)

	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}

		stockEvents, err := fn(ctx, order)
		if err != nil {
			return err
		}

		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}

		events = append(stockEvents, order.PullEvents()...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, order, events)

	s.logger.InfoContext(ctx, msg,
		slog.String("order_id", order.ID()),
		slog.String("order_number", order.Number().String()),
		slog.String("status", order.Status().String()),
	)

	return order, nil
}

// reserveOrderStock puts every line item's quantity on hold. Must run inside
// the caller's transaction.
func (s *OrderService) reserveOrderStock(ctx context.Context, order *domain.Order) ([]domain.Event, error) {
	return s.applyToOrderStock(ctx, order, func(inv *domain.Inventory, quantity int) error {
		return inv.Reserve(quantity)
	})
}

// applyToOrderStock loads the inventory row for each line item under a row
// lock, applies fn, and saves it. Must run inside the caller's transaction.
func (s *OrderService) applyToOrderStock(
	ctx context.Context,
	order *domain.Order,
	fn func(inv *domain.Inventory, quantity int) error,
) ([]domain.Event, error) {
	var events []domain.Event
	for _, item := range order.Items() {
		inv, err := s.inventory.FindByProductID(ctx, item.ProductID())
		if err != nil {
			return nil, fmt.Errorf("get inventory for product %s: %w", item.ProductID(), err)
		}
		if err := fn(inv, item.Quantity()); err != nil {
			return nil, err
		}
		if err := s.inventory.Save(ctx, inv); err != nil {
			return nil, fmt.Errorf("save inventory for product %s: %w", item.ProductID(), err)
		}
		events = append(events, inv.PullEvents()...)
	}
	return events, nil
}

// afterCommit dispatches buffered events and invalidates the availability
// cache for every product on the order. Failures are logged, never returned;
// the transaction is already committed.
func (s *OrderService) afterCommit(ctx context.Context, order *domain.Order, events []domain.Event) {
	s.dispatchEvents(ctx, events)
	for _, item := range order.Items() {
		if err := s.cache.Invalidate(ctx, item.ProductID()); err != nil {
			s.logger.WarnContext(ctx, "failed to invalidate availability cache",
				slog.String("product_id", item.ProductID()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *OrderService) dispatchEvents(ctx context.Context, events []domain.Event) {
	if err := s.producer.PublishAll(ctx, events); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order events",
			slog.String("error", err.Error()),
		)
	}
}
