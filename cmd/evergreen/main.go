package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/evergreen-pos/evergreen-pos/internal/app"
	"github.com/evergreen-pos/evergreen-pos/internal/auth"
	"github.com/evergreen-pos/evergreen-pos/internal/barcode"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/customers"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/products"
	"github.com/evergreen-pos/evergreen-pos/internal/catalog/suppliers"
	"github.com/evergreen-pos/evergreen-pos/internal/inventory"
	"github.com/evergreen-pos/evergreen-pos/internal/observability"
	"github.com/evergreen-pos/evergreen-pos/internal/payments"
	"github.com/evergreen-pos/evergreen-pos/internal/platform/db"
	"github.com/evergreen-pos/evergreen-pos/internal/receipts"
	"github.com/evergreen-pos/evergreen-pos/internal/reports"
	"github.com/evergreen-pos/evergreen-pos/internal/sales"
	"github.com/evergreen-pos/evergreen-pos/internal/shared"
	"github.com/evergreen-pos/evergreen-pos/internal/users"
	"github.com/evergreen-pos/evergreen-pos/jobs"
)

// saleEvents invalidates the dashboard snapshot and queues a summary
// refresh once a sale commits.
type saleEvents struct {
	reports *reports.Service
	queue   *jobs.Client
	logger  *slog.Logger
}

func (e *saleEvents) HandleSaleRecorded(ctx context.Context, evt sales.SaleEvent) error {
	if e.reports != nil {
		if err := e.reports.Invalidate(ctx); err != nil {
			return err
		}
	}
	if e.queue != nil {
		if _, err := e.queue.EnqueueDailySummary(ctx, evt.OccurredAt); err != nil {
			return err
		}
	}
	return nil
}

// movementEvents keeps the cached dashboard in step with direct stock
// movements. Cache bumps are advisory: the snapshot expires on its own,
// so a redis hiccup must not fail the movement.
type movementEvents struct {
	reports *reports.Service
	logger  *slog.Logger
}

func (e *movementEvents) HandleMovementRecorded(ctx context.Context, evt inventory.MovementRecordedEvent) error {
	if e.reports == nil {
		return nil
	}
	if err := e.reports.Invalidate(ctx); err != nil && e.logger != nil {
		e.logger.Warn("dashboard invalidation failed",
			slog.Int64("movement_id", evt.MovementID),
			slog.Any("error", err))
	}
	return nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.AuthSecret, cfg.AuthTokenTTL)
	authMiddleware := auth.Middleware{Tokens: tokens, Logger: logger}
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, authMiddleware)

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, authMiddleware)

	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(customersRepo)
	customersHandler := customers.NewHandler(logger, customersService, authMiddleware)

	// The movement adapter is bound to the reports service further down,
	// after the inventory service it reports on exists.
	movementAdapter := &movementEvents{logger: logger}
	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, idempotencyStore, movementAdapter)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, authMiddleware)

	productsRepo := products.NewRepository(dbpool)
	productsService := products.NewService(productsRepo, barcode.Validate, suppliersRepo)
	productsHandler := products.NewHandler(logger, productsService, inventoryService, authMiddleware)

	reportsRepo := reports.NewRepository(dbpool)
	reportsCache := reports.NewCache(redisClient, cfg.DashboardCacheTTL)
	reportsService := reports.NewService(reportsRepo, inventoryService, reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService)
	movementAdapter.reports = reportsService

	queueOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queueClient, err := jobs.NewClient(queueOpts)
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(logger, salesRepo, auditLogger, idempotencyStore, &saleEvents{
		reports: reportsService,
		queue:   queueClient,
		logger:  logger,
	})

	receiptClient := receipts.NewClient(cfg.GotenbergURL)
	receiptRenderer, err := receipts.NewRenderer(cfg.StoreName, receiptClient)
	if err != nil {
		logger.Error("init receipt renderer", slog.Any("error", err))
		os.Exit(1)
	}
	salesHandler := sales.NewHandler(logger, salesService, receiptRenderer, authMiddleware)

	gateway := &payments.MockGateway{}
	paymentsService := payments.NewService(logger, gateway, salesService, cfg.PaymentTimeout)
	paymentsHandler := payments.NewHandler(logger, paymentsService, authMiddleware)

	sequenceRepo := barcode.NewSequenceRepository(dbpool)
	barcodeService := barcode.NewService(cfg.BarcodePrefix, sequenceRepo, productsService, inventoryService)
	barcodeHandler := barcode.NewHandler(logger, barcodeService, authMiddleware)

	inspector := asynq.NewInspector(queueOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Auth:             authMiddleware,
		AuthHandler:      authHandler,
		ProductsHandler:  productsHandler,
		SuppliersHandler: suppliersHandler,
		CustomersHandler: customersHandler,
		SalesHandler:     salesHandler,
		InventoryHandler: inventoryHandler,
		PaymentsHandler:  paymentsHandler,
		BarcodeHandler:   barcodeHandler,
		ReportsHandler:   reportsHandler,
		UsersHandler:     usersHandler,
		JobHandler:       jobHandler,
		Pool:             dbpool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
