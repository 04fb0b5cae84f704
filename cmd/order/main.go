package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/sakashimaa/order-fulfillment/internal/order/repository"
	"github.com/sakashimaa/order-fulfillment/internal/order/service"
	"github.com/sakashimaa/order-fulfillment/internal/order/transport"
	orderHTTP "github.com/sakashimaa/order-fulfillment/internal/order/transport/http"
	"github.com/sakashimaa/order-fulfillment/pkg/config"
	"github.com/sakashimaa/order-fulfillment/pkg/db"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	outboxRepository "github.com/sakashimaa/order-fulfillment/pkg/outbox/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/outbox/worker"
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

	tp, err := utils.InitTracer(ctx, "order-service")
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

	bus, err := eventbus.NewKafkaBus(cfg.Kafka.Brokers, "order", logger)
	if err != nil {
		log.Fatalf("failed to create kafka bus: %v", err)
	}

	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)
	orderRepo := repository.NewPostgresRepository(pool, outboxRepo, logger)
	orderService := service.NewOrderService(orderRepo, bus, logger)

	transport.RegisterEventHandlers(bus, orderService)

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, bus, logger)
	go outboxProcessor.Start(ctx)

	go func() {
		if err := bus.Run(ctx); err != nil {
			mylogger.Error(ctx, logger, "Kafka consumer stopped", zap.Error(err))
			stop()
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})
	orderHTTP.RegisterRoutes(app, orderHTTP.NewOrderHandler(orderService, logger))

	go func() {
		mylogger.Info(ctx, logger, "Order service listening", zap.String("port", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			mylogger.Error(ctx, logger, "HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), time.Second*5)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down order service")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down HTTP server", zap.Error(err))
	}

	if err := bus.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to close kafka bus", zap.Error(err))
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	pool.Close()
}
