package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/pkg/database"
	apperrors "github.com/altastore/commerce/pkg/errors"
)

// InventoryRepository implements repository.InventoryRepository using PostgreSQL.
type InventoryRepository struct {
	db database.DBTX
}

// NewInventoryRepository creates a new PostgreSQL-backed inventory repository.
func NewInventoryRepository(db database.DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const inventoryColumns = "id, product_id, stock, reserved, created_at, updated_at"

// FindByID loads the inventory aggregate by its identity.
func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*domain.Inventory, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventories WHERE id = $1`, inventoryColumns)
	return r.scanInventory(conn(ctx, r.db).QueryRow(ctx, query, id))
}

// FindByProductID loads the inventory aggregate for a product. Inside a
// unit-of-work transaction the row is locked with FOR UPDATE so concurrent
// reserve/confirm cycles against the same product serialize instead of
// overselling.
func (r *InventoryRepository) FindByProductID(ctx context.Context, productID string) (*domain.Inventory, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventories WHERE product_id = $1`, inventoryColumns)
	if inTransaction(ctx) {
		query += " FOR UPDATE"
	}
	return r.scanInventory(conn(ctx, r.db).QueryRow(ctx, query, productID))
}

// ExistsByProductID reports whether stock tracking exists for a product.
func (r *InventoryRepository) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM inventories WHERE product_id = $1)`
	if err := conn(ctx, r.db).QueryRow(ctx, query, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check inventory exists: %w", err)
	}
	return exists, nil
}

// Save upserts the full aggregate snapshot.
func (r *InventoryRepository) Save(ctx context.Context, inventory *domain.Inventory) error {
	s := inventory.Snapshot()

	query := `
		INSERT INTO inventories (id, product_id, stock, reserved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET stock = EXCLUDED.stock, reserved = EXCLUDED.reserved, updated_at = EXCLUDED.updated_at`

	if _, err := conn(ctx, r.db).Exec(ctx, query,
		s.ID, s.ProductID, s.Stock, s.Reserved, s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}

	return nil
}

// Delete removes the aggregate.
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	ct, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM inventories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("inventory", id)
	}
	return nil
}

// ListLowAvailability returns aggregates whose available stock is at or below
// threshold, most depleted first, with the total count.
func (r *InventoryRepository) ListLowAvailability(ctx context.Context, threshold, page, perPage int) ([]*domain.Inventory, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM inventories
		WHERE stock - reserved <= $1
		ORDER BY stock - reserved ASC, product_id
		LIMIT $2 OFFSET $3`, inventoryColumns)

	rows, err := conn(ctx, r.db).Query(ctx, query, threshold, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list low availability: %w", err)
	}
	defer rows.Close()

	var totalCount int
	inventories := make([]*domain.Inventory, 0)

	for rows.Next() {
		var s domain.InventorySnapshot
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Stock, &s.Reserved, &s.CreatedAt, &s.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan inventory row: %w", err)
		}
		inv, err := domain.RestoreInventory(s)
		if err != nil {
			return nil, 0, fmt.Errorf("restore inventory %s: %w", s.ID, err)
		}
		inventories = append(inventories, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate inventory rows: %w", err)
	}

	return inventories, totalCount, nil
}

func (r *InventoryRepository) scanInventory(row pgx.Row) (*domain.Inventory, error) {
	var s domain.InventorySnapshot
	if err := row.Scan(&s.ID, &s.ProductID, &s.Stock, &s.Reserved, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan inventory: %w", err)
	}

	inv, err := domain.RestoreInventory(s)
	if err != nil {
		return nil, fmt.Errorf("restore inventory %s: %w", s.ID, err)
	}
	return inv, nil
}
