package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/altastore/commerce/internal/domain"
	"github.com/altastore/commerce/internal/repository"
	"github.com/altastore/commerce/internal/service"
	"github.com/altastore/commerce/pkg/httputil"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// OrderItemRequest is one line item of a checkout or draft request. Amounts
// are decimal strings in the order currency.
type OrderItemRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,gte=1"`
	UnitPrice     string `json:"unit_price" validate:"required"`
	OriginalPrice string `json:"original_price" validate:"omitempty"`
}

// CreateOrderRequest is the JSON request body for checkout and draft creation.
type CreateOrderRequest struct {
	UserID         string             `json:"user_id" validate:"required"`
	Items          []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Currency       string             `json:"currency" validate:"omitempty,iso4217"`
	Tax            string             `json:"tax" validate:"omitempty"`
	ShippingCost   string             `json:"shipping_cost" validate:"omitempty"`
	DiscountAmount string             `json:"discount_amount" validate:"omitempty"`
	DiscountID     string             `json:"discount_id" validate:"omitempty"`
	Notes          string             `json:"notes" validate:"omitempty,max=1000"`
}

// CancelOrderRequest is the JSON request body for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// UpdateNotesRequest is the JSON request body for replacing order notes.
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// ApplyDiscountRequest is the JSON request body for applying a discount.
type ApplyDiscountRequest struct {
	DiscountID string `json:"discount_id" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
}

// --- Response DTOs ---

// MoneyResponse is the JSON shape of a monetary amount.
type MoneyResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func newMoneyResponse(m domain.Money) MoneyResponse {
	return MoneyResponse{Amount: m.Amount().StringFixed(2), Currency: m.Currency()}
}

// OrderItemResponse is the JSON shape of an order line item.
type OrderItemResponse struct {
	ID            string        `json:"id"`
	ProductID     string        `json:"product_id"`
	Quantity      int           `json:"quantity"`
	UnitPrice     MoneyResponse `json:"unit_price"`
	OriginalPrice MoneyResponse `json:"original_price"`
	Subtotal      MoneyResponse `json:"subtotal"`
}

// OrderResponse is the JSON shape of the order aggregate.
type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"order_number"`
	UserID         string              `json:"user_id"`
	Status         string              `json:"status"`
	Items          []OrderItemResponse `json:"items"`
	Currency       string              `json:"currency"`
	Subtotal       MoneyResponse       `json:"subtotal"`
	Tax            MoneyResponse       `json:"tax"`
	ShippingCost   MoneyResponse       `json:"shipping_cost"`
	DiscountAmount MoneyResponse       `json:"discount_amount"`
	Total          MoneyResponse       `json:"total"`
	DiscountID     string              `json:"discount_id,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	CancelReason   string              `json:"cancel_reason,omitempty"`
	RefundRequired bool                `json:"refund_required"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	items := order.Items()
	itemResponses := make([]OrderItemResponse, len(items))
	for i, item := range items {
		itemResponses[i] = OrderItemResponse{
			ID:            item.ID(),
			ProductID:     item.ProductID(),
			Quantity:      item.Quantity(),
			UnitPrice:     newMoneyResponse(item.UnitPrice()),
			OriginalPrice: newMoneyResponse(item.OriginalPrice()),
			Subtotal:      newMoneyResponse(item.Subtotal()),
		}
	}

	return OrderResponse{
		ID:             order.ID(),
		OrderNumber:    order.Number().String(),
		UserID:         order.UserID(),
		Status:         order.Status().String(),
		Items:          itemResponses,
		Currency:       order.Currency(),
		Subtotal:       newMoneyResponse(order.Subtotal()),
		Tax:            newMoneyResponse(order.Tax()),
		ShippingCost:   newMoneyResponse(order.ShippingCost()),
		DiscountAmount: newMoneyResponse(order.DiscountAmount()),
		Total:          newMoneyResponse(order.Total()),
		DiscountID:     order.DiscountID(),
		Notes:          order.Notes(),
		CancelReason:   order.CancelReason(),
		RefundRequired: order.RequiresRefundOnCancellation(),
		CreatedAt:      order.CreatedAt(),
		UpdatedAt:      order.UpdatedAt(),
	}
}

// --- Handlers ---

// Checkout handles POST /api/v1/orders
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[CreateOrderRequest](w, r)
	if !ok {
		return
	}

	input, err := h.toOrderInput(req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Checkout(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: newOrderResponse(order)})
}

// CreateDraft handles POST /api/v1/orders/drafts
func (h *OrderHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[CreateOrderRequest](w, r)
	if !ok {
		return
	}

	input, err := h.toOrderInput(req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.CreateDraft(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: newOrderResponse(order)})
}

// SubmitDraft handles POST /api/v1/orders/{orderId}/submit
func (h *OrderHandler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.service.SubmitDraft(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// MarkPaid handles POST /api/v1/orders/{orderId}/pay
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	if err := h.service.MarkPaid(r.Context(), orderID.String()); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// Cancel handles POST /api/v1/orders/{orderId}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	req, ok := decodeBody[CancelOrderRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), orderID.String(), req.Reason); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// StartFulfillment handles POST /api/v1/orders/{orderId}/fulfillment
func (h *OrderHandler) StartFulfillment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.service.StartFulfillment(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// Complete handles POST /api/v1/orders/{orderId}/complete
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.service.Complete(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// UpdateNotes handles PUT /api/v1/orders/{orderId}/notes
func (h *OrderHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	req, ok := decodeBody[UpdateNotesRequest](w, r)
	if !ok {
		return
	}

	order, err := h.service.UpdateNotes(r.Context(), orderID.String(), req.Notes)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// ApplyDiscount handles PUT /api/v1/orders/{orderId}/discount
func (h *OrderHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	req, ok := decodeBody[ApplyDiscountRequest](w, r)
	if !ok {
		return
	}

	current, err := h.service.GetOrder(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	amount, err := domain.NewMoneyFromString(req.Amount, current.Currency())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	order, err := h.service.ApplyDiscount(r.Context(), orderID.String(), req.DiscountID, amount)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// RemoveDiscount handles DELETE /api/v1/orders/{orderId}/discount
func (h *OrderHandler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.service.RemoveDiscount(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// DeleteDraft handles DELETE /api/v1/orders/{orderId}
func (h *OrderHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	if err := h.service.DeleteDraft(r.Context(), orderID.String()); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOrder handles GET /api/v1/orders/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "orderId"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// GetOrderByNumber handles GET /api/v1/orders/number/{orderNumber}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")

	order, err := h.service.GetOrderByNumber(r.Context(), number)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newOrderResponse(order)})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	filter := repository.OrderFilter{Page: page, PerPage: perPage}

	if v := r.URL.Query().Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := domain.ParseOrderStatus(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "invalid order status: " + v},
			})
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	responses := make([]OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = newOrderResponse(order)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(responses, total, page, perPage))
}

// toOrderInput converts a request body into domain input, parsing the decimal
// amount strings in the request currency.
func (h *OrderHandler) toOrderInput(req CreateOrderRequest) (domain.NewOrderInput, error) {
	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	items := make([]domain.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		unitPrice, err := domain.NewMoneyFromString(item.UnitPrice, currency)
		if err != nil {
			return domain.NewOrderInput{}, err
		}
		originalPrice := unitPrice
		if item.OriginalPrice != "" {
			originalPrice, err = domain.NewMoneyFromString(item.OriginalPrice, currency)
			if err != nil {
				return domain.NewOrderInput{}, err
			}
		}
		items[i] = domain.OrderItemInput{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			UnitPrice:     unitPrice,
			OriginalPrice: originalPrice,
		}
	}

	input := domain.NewOrderInput{
		UserID:     req.UserID,
		Items:      items,
		Currency:   currency,
		DiscountID: req.DiscountID,
		Notes:      req.Notes,
	}

	var err error
	if req.Tax != "" {
		if input.Tax, err = domain.NewMoneyFromString(req.Tax, currency); err != nil {
			return domain.NewOrderInput{}, err
		}
	}
	if req.ShippingCost != "" {
		if input.ShippingCost, err = domain.NewMoneyFromString(req.ShippingCost, currency); err != nil {
			return domain.NewOrderInput{}, err
		}
	}
	if req.DiscountAmount != "" {
		if input.DiscountAmount, err = domain.NewMoneyFromString(req.DiscountAmount, currency); err != nil {
			return domain.NewOrderInput{}, err
		}
	}

	return input, nil
}
