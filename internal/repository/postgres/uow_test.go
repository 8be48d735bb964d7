package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUnitOfWorkFixture(t *testing.T) (*UnitOfWork, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewUnitOfWork(mock), mock
}

func TestUnitOfWork_Commit(t *testing.T) {
	uow, mock := newUnitOfWorkFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	var called bool
	err := uow.WithinTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		assert.True(t, inTransaction(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_RollbackOnError(t *testing.T) {
	uow, mock := newUnitOfWorkFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := uow.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_BeginError(t *testing.T) {
	uow, mock := newUnitOfWorkFixture(t)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err := uow.WithinTransaction(context.Background(), func(ctx context.Context) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})

	assert.Error(t, err)
}

func TestUnitOfWork_NestedCallJoinsTransaction(t *testing.T) {
	uow, mock := newUnitOfWorkFixture(t)
	defer mock.Close()

	// Only one transaction is opened for the whole nested chain.
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return uow.WithinTransaction(ctx, func(inner context.Context) error {
			assert.True(t, inTransaction(inner))
			return nil
		})
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_NestedErrorRollsBackOuter(t *testing.T) {
	uow, mock := newUnitOfWorkFixture(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("inner failure")
	err := uow.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return uow.WithinTransaction(ctx, func(context.Context) error {
			return boom
		})
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_UsesPoolOutsideTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.False(t, inTransaction(context.Background()))
	assert.Equal(t, mock, conn(context.Background(), mock))
}
