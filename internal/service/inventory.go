package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/altastore/commerce/internal/cache"
	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/internal/event"
	"github.com/altastore/commerce/internal/repository"
	apperrors "github.com/altastore/commerce/pkg/errors"
)

// InventoryService implements the business logic for stock operations.
// Every mutation follows load-mutate-save inside a unit-of-work transaction;
// buffered domain events are dispatched only after the commit succeeds.
type InventoryService struct {
	repo     repository.InventoryRepository
	uow      repository.UnitOfWork
	cache    *cache.AvailabilityCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(
	repo repository.InventoryRepository,
	uow repository.UnitOfWork,
	availability *cache.AvailabilityCache,
	producer *event.Producer,
	logger *slog.Logger,
) *InventoryService {
	return &InventoryService{
		repo:     repo,
		uow:      uow,
		cache:    availability,
		producer: producer,
		logger:   logger,
	}
}

// CreateInventory starts stock tracking for a product.
func (s *InventoryService) CreateInventory(ctx context.Context, productID string, initialStock int) (*domain.Inventory, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}

	exists, err := s.repo.ExistsByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("check existing inventory: %w", err)
	}
	if exists {
		return nil, apperrors.AlreadyExists("inventory", "product_id", productID)
	}

	inv, err := domain.NewInventory(productID, initialStock)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("save inventory: %w", err)
	}

	s.dispatchEvents(ctx, inv.PullEvents())
	s.invalidateAvailability(ctx, productID)

	s.logger.InfoContext(ctx, "inventory created",
		slog.String("product_id", productID),
		slog.Int("initial_stock", initialStock),
	)

	return inv, nil
}

// GetInventory retrieves the inventory aggregate for a product.
func (s *InventoryService) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	inv, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return inv, nil
}

// GetAvailability returns the availability view for a product, served from
// the cache when possible.
func (s *InventoryService) GetAvailability(ctx context.Context, productID string) (*cache.Availability, error) {
	if cached, err := s.cache.Get(ctx, productID); err == nil {
		return cached, nil
	}

	inv, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get inventory for availability: %w", err)
	}

	availability := &cache.Availability{
		ProductID: productID,
		Available: inv.AvailableStock(),
		Reserved:  inv.Reserved(),
		CachedAt:  time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, availability); err != nil {
		s.logger.WarnContext(ctx, "failed to cache availability",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	return availability, nil
}

// AddStock increases the physical stock count for a product.
func (s *InventoryService) AddStock(ctx context.Context, productID string, quantity int, reason string) (*domain.Inventory, error) {
	if reason == "" {
		reason = domain.AdjustReasonRestock
	}
	return s.mutate(ctx, productID, func(inv *domain.Inventory) error {
		return inv.AddStock(quantity, reason)
	})
}

// RemoveStock decreases the physical stock count. Reserved units cannot be
// removed.
func (s *InventoryService) RemoveStock(ctx context.Context, productID string, quantity int, reason string) (*domain.Inventory, error) {
	if reason == "" {
		reason = domain.AdjustReasonCorrection
	}
	return s.mutate(ctx, productID, func(inv *domain.Inventory) error {
		return inv.RemoveStock(quantity, reason)
	})
}

// SetStock replaces the stock count outright. The new count must still cover
// existing reservations.
func (s *InventoryService) SetStock(ctx context.Context, productID string, quantity int, reason string) (*domain.Inventory, error) {
	if reason == "" {
		reason = domain.AdjustReasonCorrection
	}
	return s.mutate(ctx, productID, func(inv *domain.Inventory) error {
		return inv.SetStock(quantity, reason)
	})
}

// ListLowAvailability returns products whose available stock is at or below
// the threshold.
func (s *InventoryService) ListLowAvailability(ctx context.Context, threshold, page, perPage int) ([]*domain.Inventory, int, error) {
	if threshold < 0 {
		return nil, 0, apperrors.InvalidInput("threshold must be non-negative")
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	inventories, total, err := s.repo.ListLowAvailability(ctx, threshold, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list low availability: %w", err)
	}

	return inventories, total, nil
}

// DeleteInventory stops stock tracking for a product. Refused while any
// reservations are outstanding.
func (s *InventoryService) DeleteInventory(ctx context.Context, productID string) error {
	var id string
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.repo.FindByProductID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get inventory for delete: %w", err)
		}
		if inv.HasReservations() {
			return &domain.InventoryStateConflictError{
				ProductID: productID,
				Message:   "inventory has outstanding reservations",
			}
		}
		id = inv.ID()
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateAvailability(ctx, productID)

	s.logger.InfoContext(ctx, "inventory deleted",
		slog.String("product_id", productID),
		slog.String("inventory_id", id),
	)

	return nil
}

// mutate runs a load-mutate-save cycle for one product inside a transaction.
// The row lock taken by FindByProductID serializes concurrent mutations.
func (s *InventoryService) mutate(ctx context.Context, productID string, fn func(*domain.Inventory) error) (*domain.Inventory, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}

	var (
		inv    *domain.Inventory
		events []domain.Event
	)

	err := s.uow.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.repo.FindByProductID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get inventory: %w", err)
		}
		if err := fn(inv); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, inv); err != nil {
			return fmt.Errorf("save inventory: %w", err)
		}
		events = inv.PullEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchEvents(ctx, events)
	s.invalidateAvailability(ctx, productID)

	s.logger.InfoContext(ctx, "inventory updated",
		slog.String("product_id", productID),
		slog.Int("stock", inv.Stock()),
		slog.Int("reserved", inv.Reserved()),
		slog.Int("available", inv.AvailableStock()),
	)

	return inv, nil
}

// dispatchEvents publishes the given events. Publishing failures are logged
// and do not fail the operation; state is already committed.
func (s *InventoryService) dispatchEvents(ctx context.Context, events []domain.Event) {
	if err := s.producer.PublishAll(ctx, events); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish inventory events",
			slog.String("error", err.Error()),
		)
	}
}

func (s *InventoryService) invalidateAvailability(ctx context.Context, productID string) {
	if err := s.cache.Invalidate(ctx, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate availability cache",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
