package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/altastore/commerce/internal/service"
	"github.com/altastore/commerce/pkg/health"
	"github.com/altastore/commerce/pkg/middleware"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	PprofEnabled      bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all commerce API routes registered.
func NewRouter(
	inventoryService *service.InventoryService,
	orderService *service.OrderService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. RequestLogger must come after RequestLogging and
	// Tracing so the context logger picks up correlation and trace IDs.
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("commerce"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("commerce"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	inventoryHandler := NewInventoryHandler(inventoryService, logger)
	orderHandler := NewOrderHandler(orderService, logger)

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", inventoryHandler.CreateInventory)
		r.Get("/low-stock", inventoryHandler.ListLowAvailability)

		r.Get("/{productId}", inventoryHandler.GetInventory)
		r.Delete("/{productId}", inventoryHandler.DeleteInventory)

		// Availability is read-heavy and tolerates short staleness.
		r.With(middleware.CacheControl(5)).Get("/{productId}/availability", inventoryHandler.GetAvailability)

		r.Post("/{productId}/stock/add", inventoryHandler.AddStock)
		r.Post("/{productId}/stock/remove", inventoryHandler.RemoveStock)
		r.Put("/{productId}/stock", inventoryHandler.SetStock)
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)

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
