package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"produce-ledger/config"
	"produce-ledger/internal/api"
	"produce-ledger/internal/auth"
	"produce-ledger/internal/broker"
	"produce-ledger/internal/models"
	"produce-ledger/internal/redisclient"
	"produce-ledger/internal/service"
	"produce-ledger/internal/store"
	"produce-ledger/internal/util"
	"produce-ledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting produce ledger",
		zap.String("env", cfg.Server.Env),
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("auth_mode", cfg.Auth.Mode))

	tp, err := util.InitTracer("produce-ledger", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	ctx := context.Background()

	grid, err := openGrid(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open record store", zap.Error(err))
	}

	var storeOpts []store.Option
	var orderOpts []service.OrderOption
	var redisClient *redisclient.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected, table writes are serialized across replicas")

		storeOpts = append(storeOpts, store.WithLocker(redisClient))
		orderOpts = append(orderOpts, service.WithIdempotency(redisClient, cfg.Redis.IdempotencyTTL))
	}

	st := store.NewStore(grid, storeOpts...)
	audit := worker.NewAuditLog(st)

	accountOpts := []service.AccountOption{}
	if cfg.Auth.Mode == config.AuthModePassword {
		accountOpts = append(accountOpts, service.WithPasswords())
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var auditWorker *worker.AuditWorker
	if cfg.Kafka.Enabled() {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		eventPublisher := broker.NewEventPublisher(producer)
		orderOpts = append(orderOpts, service.WithOrderEvents(eventPublisher))
		accountOpts = append(accountOpts, service.WithCustomerEvents(eventPublisher))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		auditWorker = worker.NewAuditWorker(consumer, audit)
		go func() {
			if err := auditWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Audit worker error", zap.Error(err))
			}
		}()
	} else {
		orderOpts = append(orderOpts, service.WithOrderEvents(audit))
	}

	catalog := service.NewCatalog(st)
	orderService := service.NewOrderService(st, catalog, orderOpts...)
	accountService := service.NewAccountService(st, cfg.Auth.AdminUsername, accountOpts...)

	if err := ensureTables(ctx, st, cfg.Auth.Mode == config.AuthModePassword); err != nil {
		logger.Fatal("Failed to prepare tables", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orderService, accountService, catalog,
		auth.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL),
		api.WithRequestTimeout(cfg.Server.RequestTimeout),
		api.WithSecureCookies(cfg.IsProduction()),
		api.WithReadinessCheck(func(ctx context.Context) error {
			if _, err := grid.ListTables(ctx); err != nil {
				return fmt.Errorf("record store: %w", err)
			}
			if redisClient != nil {
				if err := redisClient.Ping(ctx); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		}),
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	if port := cfg.Observ.PrometheusPort; port != "" && port != cfg.Server.Port {
		go serveMetrics(port)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if auditWorker != nil {
		if err := auditWorker.Stop(); err != nil {
			logger.Error("Error stopping audit worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// serveMetrics exposes /metrics on a dedicated port for the scraper
func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	util.GetLogger().Info("Starting metrics server", zap.String("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		util.GetLogger().Error("Metrics server stopped", zap.Error(err))
	}
}

// openGrid connects the configured record store backend
func openGrid(ctx context.Context, cfg *config.Config) (store.Grid, error) {
	if cfg.Store.Backend == config.BackendMemory {
		util.GetLogger().Warn("Using in-memory record store, data is lost on exit")
		return store.NewMemoryGrid(), nil
	}

	creds, err := cfg.Store.Credentials()
	if err != nil {
		return nil, err
	}
	return store.NewSheetsGrid(ctx, cfg.Store.SpreadsheetID, creds)
}

// ensureTables reconciles every table header once at startup
func ensureTables(ctx context.Context, st *store.Store, withCredential bool) error {
	for _, schema := range models.Schemas(withCredential) {
		if _, err := st.EnsureTable(ctx, schema.Name, schema.Header); err != nil {
			return fmt.Errorf("failed to ensure table %s: %w", schema.Name, err)
		}
	}
	return nil
}
