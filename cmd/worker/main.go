package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"order-bench/config"
	"order-bench/internal/broker"
	"order-bench/internal/redisclient"
	"order-bench/internal/util"
	"order-bench/internal/worker"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting stats worker")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	statsWorker := worker.NewStatsWorker(consumer, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := statsWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Stats worker error", zap.Error(err))
	}

	if err := statsWorker.Stop(); err != nil {
		logger.Error("Failed to close consumer", zap.Error(err))
	}
	logger.Info("Stats worker exited")
}
