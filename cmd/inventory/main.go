package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/repository"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/service"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/transport"
	inventoryHTTP "github.com/sakashimaa/order-fulfillment/internal/inventory/transport/http"
	"github.com/sakashimaa/order-fulfillment/pkg/config"
	"github.com/sakashimaa/order-fulfillment/pkg/db"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"github.com/sakashimaa/order-fulfillment/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "inventory-service")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: cfg.LogLevel,
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})

	bus, err := eventbus.NewKafkaBus(cfg.Kafka.Brokers, "inventory", logger)
	if err != nil {
		log.Fatalf("failed to create kafka bus: %v", err)
	}

	inventoryRepo := repository.NewPostgresRepository(pool, logger)
	inventoryService := service.NewCachedInventoryService(
		service.NewInventoryService(inventoryRepo, bus, logger),
		rdb,
	)

	transport.RegisterEventHandlers(bus, inventoryService)

	go func() {
		if err := bus.Run(ctx); err != nil {
			mylogger.Error(ctx, logger, "Kafka consumer stopped", zap.Error(err))
			stop()
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})
	inventoryHTTP.RegisterRoutes(app, inventoryHTTP.NewInventoryHandler(inventoryService, logger))

	go func() {
		mylogger.Info(ctx, logger, "Inventory service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			mylogger.Error(ctx, logger, "HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), time.Second*5)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down inventory service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down HTTP server", zap.Error(err))
	}

	if err := bus.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close kafka bus", zap.Error(err))
	}

	if err := rdb.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close redis client", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
