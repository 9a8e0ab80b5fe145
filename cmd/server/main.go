package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-bench/config"
	"order-bench/internal/api"
	"order-bench/internal/broker"
	"order-bench/internal/executor"
	"order-bench/internal/redisclient"
	"order-bench/internal/service"
	"order-bench/internal/store"
	"order-bench/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var strategy, port string

	cmd := &cobra.Command{
		Use:   "order-bench",
		Short: "Serve order summaries with a selectable concurrency model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if strategy != "" {
				cfg.Execution.Strategy = strategy
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return run(cfg)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "execution strategy: thread, pool, reactive or coroutine (overrides EXECUTION_STRATEGY)")
	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()

	strategy, err := executor.ParseStrategy(cfg.Execution.Strategy)
	if err != nil {
		return err
	}
	rendering, err := store.ParseRendering(cfg.Execution.Rendering)
	if err != nil {
		return err
	}
	logger.Info("Starting order bench",
		zap.String("strategy", string(strategy)),
		zap.String("rendering", string(rendering)))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("order-bench", cfg.Observ.JaegerEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(store.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		SlowQuery:       cfg.Database.SlowQuery,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err := util.RegisterDBStats(db.GetDB().DB, "orders"); err != nil {
		logger.Warn("Failed to register pool metrics", zap.Error(err))
	}

	var list executor.ListSource = db.Entity()
	if rendering == store.RenderingNative {
		list = db.Native()
	}
	exec, err := executor.New(strategy, executor.Sources{
		List:     list,
		Stream:   db.Native(),
		Sequence: db.Native(),
	}, executor.Options{
		Timeout:  cfg.Execution.QueryTimeout,
		PoolSize: cfg.Execution.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer exec.Close()

	var publisher service.EventPublisher = service.NopPublisher{}
	var stats api.StatsReader
	if cfg.Observ.TelemetryEnabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized")

		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, /api/stats disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			stats = redisClient
		}
	}

	queryService := service.NewOrderQueryService(exec, publisher)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if cfg.Server.Env != "production" {
		router.Use(gin.Logger())
	}
	handler := api.NewHandler(queryService, db, stats)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}
