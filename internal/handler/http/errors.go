package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/altastore/commerce/internal/domain"
	apperrors "github.com/altastore/commerce/pkg/errors"
	"github.com/altastore/commerce/pkg/httputil"
)

// writeError translates domain errors into the standard error envelope before
// falling back to the shared writer. Validation failures map to 400, state
// machine and stock conflicts to 409.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	if appErr := domainError(err); appErr != nil {
		httputil.WriteError(w, r, appErr, logger)
		return
	}
	httputil.WriteError(w, r, err, logger)
}

func domainError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return conflict("INSUFFICIENT_STOCK", err)
	case errors.Is(err, domain.ErrInvalidReservation):
		return conflict("INVALID_RESERVATION", err)
	case errors.Is(err, domain.ErrInventoryStateConflict):
		return conflict("INVENTORY_CONFLICT", err)
	case errors.Is(err, domain.ErrInvalidOrderStatusTransition):
		return conflict("INVALID_STATUS_TRANSITION", err)
	case errors.Is(err, domain.ErrOrderCannotBeCancelled):
		return conflict("ORDER_NOT_CANCELLABLE", err)
	case errors.Is(err, domain.ErrOrderStateConflict):
		return conflict("ORDER_CONFLICT", err)
	case errors.Is(err, domain.ErrInvalidStockQuantity),
		errors.Is(err, domain.ErrInvalidMoney),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrOrderIsEmpty),
		errors.Is(err, domain.ErrInvalidOrderNumber):
		return &apperrors.AppError{
			Code:    "INVALID_INPUT",
			Message: err.Error(),
			Status:  http.StatusBadRequest,
			Err:     err,
		}
	default:
		return nil
	}
}

func conflict(code string, err error) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    code,
		Message: err.Error(),
		Status:  http.StatusConflict,
		Err:     err,
	}
}
