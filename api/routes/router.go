package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillpoint/tillpoint-backend/api/controllers"
	"github.com/tillpoint/tillpoint-backend/api/middleware"
	"github.com/tillpoint/tillpoint-backend/internal/customers"
	"github.com/tillpoint/tillpoint-backend/internal/loyalty"
	"github.com/tillpoint/tillpoint-backend/internal/pricing"
	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/internal/purchasing"
	"github.com/tillpoint/tillpoint-backend/internal/reporting"
	"github.com/tillpoint/tillpoint-backend/internal/sales"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/internal/suppliers"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	"github.com/tillpoint/tillpoint-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	productService products.Service,
	pricingService pricing.Service,
	stockService stock.Service,
	saleService sales.Service,
	loyaltyService loyalty.Service,
	customerService customers.Service,
	supplierService suppliers.Service,
	purchasingService purchasing.Service,
	reportingService reporting.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		httpMetrics.Middleware,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if promRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	manager := middleware.RequireRole(string(enums.UserRoleManager), logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		var idemStore redis.IdempotencyStore
		if redisClient != nil {
			idemStore = redisClient
		}
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
			r.With(manager).Post("/", controllers.ProductCreate(productService, logg))
			r.With(manager).Patch("/{productId}", controllers.ProductUpdate(productService, logg))
			r.With(manager).Delete("/{productId}", controllers.ProductDeactivate(productService, logg))

			r.Get("/{productId}/unit-pricing", controllers.ProductListTiers(pricingService, logg))
			r.With(manager).Put("/{productId}/unit-pricing", controllers.ProductSetTiers(pricingService, logg))

			r.Get("/{productId}/stock", controllers.StockDetail(stockService, logg))
			r.With(manager).Post("/{productId}/stock/adjust", controllers.StockAdjust(stockService, logg))
			r.With(manager).Put("/{productId}/stock/thresholds", controllers.StockSetThresholds(stockService, logg))
		})

		r.Get("/stock/low", controllers.StockLowReport(stockService, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.SaleCreate(saleService, logg))
			r.Get("/", controllers.SaleList(saleService, logg))
			r.Get("/{saleId}", controllers.SaleDetail(saleService, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CustomerCreate(customerService, logg))
			r.Get("/", controllers.CustomerList(customerService, logg))
			r.Get("/{customerId}", controllers.CustomerDetail(customerService, logg))
			r.Patch("/{customerId}", controllers.CustomerUpdate(customerService, logg))

			r.Get("/{customerId}/loyalty", controllers.LoyaltyBalance(loyaltyService, logg))
			r.Get("/{customerId}/loyalty/history", controllers.LoyaltyHistory(loyaltyService, logg))
			r.With(manager).Post("/{customerId}/loyalty/adjust", controllers.LoyaltyAdjust(loyaltyService, logg))
			r.With(manager).Post("/{customerId}/loyalty/reconcile", controllers.LoyaltyReconcile(loyaltyService, logg))
		})

		r.With(manager).Post("/loyalty/reconcile", controllers.LoyaltyReconcileAll(loyaltyService, logg))

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.SupplierCreate(supplierService, logg))
			r.Get("/", controllers.SupplierList(supplierService, logg))
			r.Get("/{supplierId}", controllers.SupplierDetail(supplierService, logg))
			r.Patch("/{supplierId}", controllers.SupplierUpdate(supplierService, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Post("/", controllers.PurchaseOrderCreate(purchasingService, logg))
			r.Get("/", controllers.PurchaseOrderList(purchasingService, logg))
			r.Get("/{orderId}", controllers.PurchaseOrderDetail(purchasingService, logg))
			r.With(manager).Post("/{orderId}/status", controllers.PurchaseOrderDecide(purchasingService, logg))
			r.Post("/{orderId}/receive", controllers.PurchaseOrderReceive(purchasingService, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(manager)
			r.Get("/sales", controllers.ReportSalesSummary(reportingService, logg))
			r.Get("/top-products", controllers.ReportTopProducts(reportingService, logg))
		})
	})

	return r
}
