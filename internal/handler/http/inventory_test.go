package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/altastore/commerce/internal/cache"
	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/internal/event"
	"github.com/altastore/commerce/internal/repository"
	"github.com/altastore/commerce/internal/service"
	apperrors "github.com/altastore/commerce/pkg/errors"
	"github.com/altastore/commerce/pkg/httputil"
	pkgkafka "github.com/altastore/commerce/pkg/kafka"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockInventoryRepo struct {
	mock.Mock
}

func (m *mockInventoryRepo) FindByID(ctx context.Context, id string) (*domain.Inventory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *mockInventoryRepo) FindByProductID(ctx context.Context, productID string) (*domain.Inventory, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Inventory), args.Error(1)
}

func (m *mockInventoryRepo) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInventoryRepo) Save(ctx context.Context, inventory *domain.Inventory) error {
	args := m.Called(ctx, inventory)
	return args.Error(0)
}

func (m *mockInventoryRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockInventoryRepo) ListLowAvailability(ctx context.Context, threshold, page, perPage int) ([]*domain.Inventory, int, error) {
	args := m.Called(ctx, threshold, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Inventory), args.Int(1), args.Error(2)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) FindByOrderNumber(ctx context.Context, number domain.OrderNumber) (*domain.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) ExistsByOrderNumber(ctx context.Context, number domain.OrderNumber) (bool, error) {
	args := m.Called(ctx, number)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Order), args.Int(1), args.Error(2)
}

// stubUOW runs the callback directly; transactional behavior is covered by the
// postgres unit of work tests.
type stubUOW struct{}

func (stubUOW) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ============================================================================
// Test Helpers
// ============================================================================

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	// No broker is running; publish failures are logged, never surfaced.
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig([]string{"localhost:9092"}), logger)
	return event.NewProducer(kafkaProducer, logger)
}

func handlerTestCache(t *testing.T) *cache.AvailabilityCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewAvailabilityCache(client, time.Minute)
}

// setupTestRouter mirrors the production API routes without the global
// middleware stack.
func setupTestRouter(t *testing.T, invRepo *mockInventoryRepo, ordRepo *mockOrderRepo) *chi.Mux {
	t.Helper()
	logger := handlerTestLogger()
	availability := handlerTestCache(t)
	producer := handlerTestProducer()

	inventoryService := service.NewInventoryService(invRepo, stubUOW{}, availability, producer, logger)
	orderService := service.NewOrderService(ordRepo, invRepo, stubUOW{}, availability, producer, logger)

	inventoryHandler := NewInventoryHandler(inventoryService, logger)
	orderHandler := NewOrderHandler(orderService, logger)

	r := chi.NewRouter()
	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Post("/", inventoryHandler.CreateInventory)
		r.Get("/low-stock", inventoryHandler.ListLowAvailability)
		r.Get("/{productId}", inventoryHandler.GetInventory)
		r.Delete("/{productId}", inventoryHandler.DeleteInventory)
		r.Get("/{productId}/availability", inventoryHandler.GetAvailability)
		r.Post("/{productId}/stock/add", inventoryHandler.AddStock)
		r.Post("/{productId}/stock/remove", inventoryHandler.RemoveStock)
		r.Put("/{productId}/stock", inventoryHandler.SetStock)
	})
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", orderHandler.Checkout)
		r.Get("/", orderHandler.ListOrders)
		r.Post("/drafts", orderHandler.CreateDraft)
		r.Get("/number/{orderNumber}", orderHandler.GetOrderByNumber)
		r.Get("/{orderId}", orderHandler.GetOrder)
		r.Delete("/{orderId}", orderHandler.DeleteDraft)
		r.Post("/{orderId}/submit", orderHandler.SubmitDraft)
		r.Post("/{orderId}/pay", orderHandler.MarkPaid)
		r.Post("/{orderId}/cancel", orderHandler.Cancel)
		r.Post("/{orderId}/fulfillment", orderHandler.StartFulfillment)
		r.Post("/{orderId}/complete", orderHandler.Complete)
		r.Put("/{orderId}/notes", orderHandler.UpdateNotes)
		r.Put("/{orderId}/discount", orderHandler.ApplyDiscount)
		r.Delete("/{orderId}/discount", orderHandler.RemoveDiscount)
	})
	return r
}

func performJSON(t *testing.T, router *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func responseData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	return data
}

func testInventory(t *testing.T, productID string, stock, reserved int) *domain.Inventory {
	t.Helper()
	now := time.Now().UTC()
	inv, err := domain.RestoreInventory(domain.InventorySnapshot{
		ID:        "inv-" + productID,
		ProductID: productID,
		Stock:     stock,
		Reserved:  reserved,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return inv
}

// ============================================================================
// CreateInventory Tests
// ============================================================================

func TestCreateInventory_Success(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("ExistsByProductID", mock.Anything, "prod-1").Return(false, nil)
	invRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	rec := performJSON(t, router, http.MethodPost, "/api/v1/inventory", map[string]any{
		"product_id":    "prod-1",
		"initial_stock": 10,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	data := responseData(t, rec)
	assert.Equal(t, "prod-1", data["product_id"])
	assert.Equal(t, float64(10), data["stock"])
	assert.Equal(t, float64(0), data["reserved"])
	invRepo.AssertExpectations(t)
}

func TestCreateInventory_ValidationError(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	rec := performJSON(t, router, http.MethodPost, "/api/v1/inventory", map[string]any{
		"initial_stock": 10,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	invRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateInventory_AlreadyExists(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("ExistsByProductID", mock.Anything, "prod-1").Return(true, nil)

	rec := performJSON(t, router, http.MethodPost, "/api/v1/inventory", map[string]any{
		"product_id":    "prod-1",
		"initial_stock": 10,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

// ============================================================================
// GetInventory / GetAvailability Tests
// ============================================================================

func TestGetInventory_Success(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(testInventory(t, "prod-1", 10, 3), nil)

	rec := performJSON(t, router, http.MethodGet, "/api/v1/inventory/prod-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := responseData(t, rec)
	assert.Equal(t, float64(7), data["available"])
	assert.Equal(t, false, data["depleted"])
}

func TestGetInventory_NotFound(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("FindByProductID", mock.Anything, "missing").Return(nil, apperrors.NotFound("inventory", "missing"))

	rec := performJSON(t, router, http.MethodGet, "/api/v1/inventory/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestGetAvailability_Success(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(testInventory(t, "prod-1", 10, 4), nil)

	rec := performJSON(t, router, http.MethodGet, "/api/v1/inventory/prod-1/availability", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := responseData(t, rec)
	assert.Equal(t, float64(6), data["available"])
	assert.Equal(t, float64(4), data["reserved"])
}

// ============================================================================
// Stock Adjustment Tests
// ============================================================================

func TestAddStock_Success(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(testInventory(t, "prod-1", 10, 0), nil)
	invRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	rec := performJSON(t, router, http.MethodPost, "/api/v1/inventory/prod-1/stock/add", map[string]any{
		"quantity": 5,
		"reason":   "restock",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	data := responseData(t, rec)
	assert.Equal(t, float64(15), data["stock"])
	invRepo.AssertExpectations(t)
}

func TestRemoveStock_InsufficientStock(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	// 10 on hand, 3 reserved: only 7 removable.
	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(testInventory(t, "prod-1", 10, 3), nil)

	rec := performJSON(t, router, http.MethodPost, "/api/v1/inventory/prod-1/stock/remove", map[string]any{
		"quantity": 8,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	invRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSetStock_BelowReserved(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(testInventory(t, "prod-1", 10, 5), nil)

	rec := performJSON(t, router, http.MethodPut, "/api/v1/inventory/prod-1/stock", map[string]any{
		"quantity": 3,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVENTORY_CONFLICT", resp.Error.Code)
}

// ============================================================================
// Delete / List Tests
// ============================================================================

func TestDeleteInventory_Success(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	inv := testInventory(t, "prod-1", 10, 0)
	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(inv, nil)
	invRepo.On("Delete", mock.Anything, inv.ID()).Return(nil)

	rec := performJSON(t, router, http.MethodDelete, "/api/v1/inventory/prod-1", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	invRepo.AssertExpectations(t)
}

func TestDeleteInventory_OutstandingReservations(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("FindByProductID", mock.Anything, "prod-1").Return(testInventory(t, "prod-1", 10, 2), nil)

	rec := performJSON(t, router, http.MethodDelete, "/api/v1/inventory/prod-1", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	invRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestListLowAvailability_Success(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	invRepo.On("ListLowAvailability", mock.Anything, 5, 1, 20).
		Return([]*domain.Inventory{testInventory(t, "prod-1", 2, 1)}, 1, nil)

	rec := performJSON(t, router, http.MethodGet, "/api/v1/inventory/low-stock?threshold=5", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	invRepo.AssertExpectations(t)
}

func TestListLowAvailability_InvalidThreshold(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	rec := performJSON(t, router, http.MethodGet, "/api/v1/inventory/low-stock?threshold=abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
	invRepo.AssertNotCalled(t, "ListLowAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListLowAvailability_InvalidPerPage(t *testing.T) {
	invRepo := new(mockInventoryRepo)
	router := setupTestRouter(t, invRepo, new(mockOrderRepo))

	rec := performJSON(t, router, http.MethodGet, "/api/v1/inventory/low-stock?per_page=500", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}
