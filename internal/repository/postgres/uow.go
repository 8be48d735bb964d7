package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/altastore/commerce/pkg/database"
)

type txKey struct{}

// UnitOfWork implements repository.UnitOfWork on top of pgx. The transaction
// is carried in the context, so every repository call made inside
// WithinTransaction automatically joins it.
type UnitOfWork struct {
	db database.DBTX
}

// NewUnitOfWork creates a unit of work backed by the given pool.
func NewUnitOfWork(db database.DBTX) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTransaction runs fn inside a transaction. A nested call joins the
// transaction already present in the context instead of opening a new one.
func (u *UnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (txErr error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("rollback transaction: %w", rollbackErr))
			}
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// txFromContext returns the transaction carried by the context, or nil.
func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// conn returns the context transaction when present, otherwise the pool.
func conn(ctx context.Context, db database.DBTX) database.DBTX {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// inTransaction reports whether the context carries a transaction.
func inTransaction(ctx context.Context) bool {
	return txFromContext(ctx) != nil
}

// withTx executes fn inside the context transaction when one is present, or
// wraps it in a short-lived transaction otherwise, so multi-statement writes
// stay atomic even outside a unit of work.
func withTx(ctx context.Context, db database.DBTX, fn func(q database.DBTX) error) (txErr error) {
	if tx := txFromContext(ctx); tx != nil {
		return fn(tx)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("rollback transaction: %w", rollbackErr))
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
