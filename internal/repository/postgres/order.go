package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/internal/repository"
	"github.com/altastore/commerce/pkg/database"
	apperrors "github.com/altastore/commerce/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, status, currency, subtotal, tax,
	shipping_cost, discount_amount, total, discount_id, notes, cancel_reason,
	refund_required, created_at, updated_at`

// FindByID loads an order and its items.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	return r.loadOrder(ctx, query, id)
}

// FindByOrderNumber loads an order by its human-facing number.
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, number domain.OrderNumber) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE order_number = $1`, orderColumns)
	return r.loadOrder(ctx, query, number.String())
}

// ExistsByOrderNumber reports whether an order number is taken.
func (r *OrderRepository) ExistsByOrderNumber(ctx context.Context, number domain.OrderNumber) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`
	if err := conn(ctx, r.db).QueryRow(ctx, query, number.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return exists, nil
}

// Save upserts the order row and replaces its items atomically.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	s := order.Snapshot()

	return withTx(ctx, r.db, func(q database.DBTX) error {
		orderQuery := `
			INSERT INTO orders (id, order_number, user_id, status, currency, subtotal, tax,
				shipping_cost, discount_amount, total, discount_id, notes, cancel_reason,
				refund_required, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE
			SET status = EXCLUDED.status,
				subtotal = EXCLUDED.subtotal,
				tax = EXCLUDED.tax,
				shipping_cost = EXCLUDED.shipping_cost,
				discount_amount = EXCLUDED.discount_amount,
				total = EXCLUDED.total,
				discount_id = EXCLUDED.discount_id,
				notes = EXCLUDED.notes,
				cancel_reason = EXCLUDED.cancel_reason,
				refund_required = EXCLUDED.refund_required,
				updated_at = EXCLUDED.updated_at`

		if _, err := q.Exec(ctx, orderQuery,
			s.ID, s.Number, s.UserID, string(s.Status), s.Currency,
			s.Subtotal.Amount(), s.Tax.Amount(), s.ShippingCost.Amount(),
			s.DiscountAmount.Amount(), s.Total.Amount(),
			s.DiscountID, s.Notes, s.CancelReason, s.RefundRequired,
			s.CreatedAt, s.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert order: %w", err)
		}

		// Items are an immutable snapshot; replacing them wholesale keeps the
		// write path simple and covers the (rare) draft-edit case.
		if _, err := q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, s.ID); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}

		itemQuery := `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, original_price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		for _, item := range s.Items {
			if _, err := q.Exec(ctx, itemQuery,
				item.ID, s.ID, item.ProductID, item.Quantity,
				item.UnitPrice.Amount(), item.OriginalPrice.Amount(), item.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		return nil
	})
}

// Delete removes the order and its items.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(q database.DBTX) error {
		if _, err := q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		ct, err := q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("order", id)
		}
		return nil
	})
}

// List returns orders matching the given filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	var snapshots []domain.OrderSnapshot

	for rows.Next() {
		s, err := scanOrderSnapshot(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all orders in a single query to avoid N+1.
	if len(snapshots) > 0 {
		orderIDs := make([]string, len(snapshots))
		index := make(map[string]int, len(snapshots))
		for i := range snapshots {
			orderIDs[i] = snapshots[i].ID
			index[snapshots[i].ID] = i
		}

		itemsByOrder, err := r.loadItems(ctx, orderIDs)
		if err != nil {
			return nil, 0, err
		}
		for orderID, items := range itemsByOrder {
			snapshots[index[orderID]].Items = items
		}
	}

	orders := make([]*domain.Order, 0, len(snapshots))
	for _, s := range snapshots {
		order, err := restoreOrderSnapshot(s)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}

	return orders, totalCount, nil
}

func (r *OrderRepository) loadOrder(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var totalCount int
	row := conn(ctx, r.db).QueryRow(ctx, query, arg)

	s, err := scanOrderRow(row, &totalCount, false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	itemsByOrder, err := r.loadItems(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Items = itemsByOrder[s.ID]

	return restoreOrderSnapshot(s)
}

// loadItems retrieves item snapshots for the given orders, grouped by order id.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItemSnapshot, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price, i.original_price, o.currency, i.created_at
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.created_at, i.id`

	rows, err := conn(ctx, r.db).Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[string][]domain.OrderItemSnapshot, len(orderIDs))
	for rows.Next() {
		var (
			s         domain.OrderItemSnapshot
			orderID   string
			unitPrice decimal.Decimal
			origPrice decimal.Decimal
			currency  string
		)
		if err := rows.Scan(&s.ID, &orderID, &s.ProductID, &s.Quantity, &unitPrice, &origPrice, &currency, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if s.UnitPrice, err = domain.NewMoney(unitPrice, currency); err != nil {
			return nil, fmt.Errorf("restore item unit price: %w", err)
		}
		if s.OriginalPrice, err = domain.NewMoney(origPrice, currency); err != nil {
			return nil, fmt.Errorf("restore item original price: %w", err)
		}
		itemsByOrder[orderID] = append(itemsByOrder[orderID], s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return itemsByOrder, nil
}

// rawOrderRow holds the scanned column values before Money reconstruction.
type rawOrderRow struct {
	subtotal, tax, shipping, discount, total decimal.Decimal
}

func scanOrderRow(row pgx.Row, totalCount *int, withCount bool) (domain.OrderSnapshot, error) {
	var (
		s   domain.OrderSnapshot
		raw rawOrderRow
	)

	dest := []any{
		&s.ID, &s.Number, &s.UserID, &s.Status, &s.Currency,
		&raw.subtotal, &raw.tax, &raw.shipping, &raw.discount, &raw.total,
		&s.DiscountID, &s.Notes, &s.CancelReason, &s.RefundRequired,
		&s.CreatedAt, &s.UpdatedAt,
	}
	if withCount {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		return domain.OrderSnapshot{}, err
	}

	var err error
	if s.Subtotal, err = domain.NewMoney(raw.subtotal, s.Currency); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("restore subtotal: %w", err)
	}
	if s.Tax, err = domain.NewMoney(raw.tax, s.Currency); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("restore tax: %w", err)
	}
	if s.ShippingCost, err = domain.NewMoney(raw.shipping, s.Currency); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("restore shipping cost: %w", err)
	}
	if s.DiscountAmount, err = domain.NewMoney(raw.discount, s.Currency); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("restore discount amount: %w", err)
	}
	if s.Total, err = domain.NewMoney(raw.total, s.Currency); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("restore total: %w", err)
	}

	return s, nil
}

func scanOrderSnapshot(rows pgx.Rows, totalCount *int) (domain.OrderSnapshot, error) {
	s, err := scanOrderRow(rows, totalCount, true)
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("scan order row: %w", err)
	}
	return s, nil
}

func restoreOrderSnapshot(s domain.OrderSnapshot) (*domain.Order, error) {
	order, err := domain.RestoreOrder(s)
	if err != nil {
		return nil, fmt.Errorf("restore order %s: %w", s.ID, err)
	}
	return order, nil
}
