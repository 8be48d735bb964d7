package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/internal/service"
	"github.com/altastore/commerce/pkg/httputil"
	"github.com/altastore/commerce/pkg/validator"
)

// InventoryHandler handles HTTP requests for inventory endpoints.
type InventoryHandler struct {
	service *service.InventoryService
	logger  *slog.Logger
}

// NewInventoryHandler creates a new inventory HTTP handler.
func NewInventoryHandler(svc *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateInventoryRequest is the JSON request body for starting stock tracking.
type CreateInventoryRequest struct {
	ProductID    string `json:"product_id" validate:"required"`
	InitialStock int    `json:"initial_stock" validate:"gte=0"`
}

// AdjustStockRequest is the JSON request body for adding or removing stock.
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" validate:"required,gte=1"`
	Reason   string `json:"reason" validate:"omitempty,oneof=restock correction"`
}

// SetStockRequest is the JSON request body for replacing the stock count.
type SetStockRequest struct {
	Quantity int    `json:"quantity" validate:"gte=0"`
	Reason   string `json:"reason" validate:"omitempty,oneof=restock correction"`
}

// --- Response DTOs ---

// InventoryResponse is the JSON shape of the inventory aggregate.
type InventoryResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Stock     int       `json:"stock"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	Depleted  bool      `json:"depleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newInventoryResponse(inv *domain.Inventory) InventoryResponse {
	return InventoryResponse{
		ID:        inv.ID(),
		ProductID: inv.ProductID(),
		Stock:     inv.Stock(),
		Reserved:  inv.Reserved(),
		Available: inv.AvailableStock(),
		Depleted:  inv.IsDepleted(),
		CreatedAt: inv.CreatedAt(),
		UpdatedAt: inv.UpdatedAt(),
	}
}

// --- Handlers ---

// CreateInventory handles POST /api/v1/inventory
func (h *InventoryHandler) CreateInventory(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[CreateInventoryRequest](w, r)
	if !ok {
		return
	}

	inv, err := h.service.CreateInventory(r.Context(), req.ProductID, req.InitialStock)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: newInventoryResponse(inv)})
}

// GetInventory handles GET /api/v1/inventory/{productId}
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	inv, err := h.service.GetInventory(r.Context(), productID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newInventoryResponse(inv)})
}

// GetAvailability handles GET /api/v1/inventory/{productId}/availability
func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	availability, err := h.service.GetAvailability(r.Context(), productID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: availability})
}

// AddStock handles POST /api/v1/inventory/{productId}/stock/add
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	req, ok := decodeBody[AdjustStockRequest](w, r)
	if !ok {
		return
	}

	inv, err := h.service.AddStock(r.Context(), productID, req.Quantity, req.Reason)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newInventoryResponse(inv)})
}

// RemoveStock handles POST /api/v1/inventory/{productId}/stock/remove
func (h *InventoryHandler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	req, ok := decodeBody[AdjustStockRequest](w, r)
	if !ok {
		return
	}

	inv, err := h.service.RemoveStock(r.Context(), productID, req.Quantity, req.Reason)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newInventoryResponse(inv)})
}

// SetStock handles PUT /api/v1/inventory/{productId}/stock
func (h *InventoryHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	req, ok := decodeBody[SetStockRequest](w, r)
	if !ok {
		return
	}

	inv, err := h.service.SetStock(r.Context(), productID, req.Quantity, req.Reason)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newInventoryResponse(inv)})
}

// DeleteInventory handles DELETE /api/v1/inventory/{productId}
func (h *InventoryHandler) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	if err := h.service.DeleteInventory(r.Context(), productID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListLowAvailability handles GET /api/v1/inventory/low-stock
func (h *InventoryHandler) ListLowAvailability(w http.ResponseWriter, r *http.Request) {
	threshold := 10
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil || t < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "threshold must be a non-negative integer"},
			})
			return
		}
		threshold = t
	}

	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	inventories, total, err := h.service.ListLowAvailability(r.Context(), threshold, page, perPage)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	responses := make([]InventoryResponse, len(inventories))
	for i, inv := range inventories {
		responses[i] = newInventoryResponse(inv)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(responses, total, page, perPage))
}

// decodeBody decodes and validates a JSON request body, writing the error
// response itself when either step fails.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return req, false
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return req, false
	}

	return req, true
}

// parsePagination reads page/per_page query parameters, writing a 400 on
// invalid values.
func parsePagination(w http.ResponseWriter, r *http.Request) (page, perPage int, ok bool) {
	page = 1
	perPage = 20

	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return 0, 0, false
		}
		page = p
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < 1 || pp > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return 0, 0, false
		}
		perPage = pp
	}

	return page, perPage, true
}
