package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tillpoint/tillpoint-backend/api/routes"
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
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	"github.com/tillpoint/tillpoint-backend/pkg/migrate"
	"github.com/tillpoint/tillpoint-backend/pkg/outbox"
	"github.com/tillpoint/tillpoint-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	registry := prometheus.NewRegistry()

	pricingRepo := pricing.NewRepository(gormDB)
	stockRepo := stock.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	loyaltyRepo := loyalty.NewRepository(gormDB)
	saleRepo := sales.NewRepository(gormDB)
	customerRepo := customers.NewRepository(gormDB)
	supplierRepo := suppliers.NewRepository(gormDB)
	purchasingRepo := purchasing.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	pricingService, err := pricing.NewService(dbClient, pricingRepo, logg)
	requireService(logg, "pricing", err)
	stockService, err := stock.NewService(dbClient, stockRepo)
	requireService(logg, "stock", err)
	productService, err := products.NewService(dbClient, productRepo, pricingRepo, stockRepo)
	requireService(logg, "products", err)
	loyaltyService, err := loyalty.NewService(dbClient, loyaltyRepo, cfg.Loyalty, logg, outboxService)
	requireService(logg, "loyalty", err)
	saleService, err := sales.NewService(
		dbClient,
		saleRepo,
		pricingRepo,
		stockRepo,
		loyaltyService,
		productRepo,
		outboxService,
		metrics.NewSaleMetrics(registry),
	)
	requireService(logg, "sales", err)
	customerService, err := customers.NewService(customerRepo)
	requireService(logg, "customers", err)
	supplierService, err := suppliers.NewService(supplierRepo)
	requireService(logg, "suppliers", err)
	purchasingService, err := purchasing.NewService(dbClient, purchasingRepo, stockRepo, pricingRepo, outboxService)
	requireService(logg, "purchasing", err)
	reportingService, err := reporting.NewService(gormDB)
	requireService(logg, "reporting", err)

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		registry,
		metrics.NewHTTPMetrics(registry),
		productService,
		pricingService,
		stockService,
		saleService,
		loyaltyService,
		customerService,
		supplierService,
		purchasingService,
		reportingService,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
