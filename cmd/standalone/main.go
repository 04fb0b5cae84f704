package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/order-fulfillment/internal/app"
	inventoryHTTP "github.com/sakashimaa/order-fulfillment/internal/inventory/transport/http"
	orderHTTP "github.com/sakashimaa/order-fulfillment/internal/order/transport/http"
	"github.com/sakashimaa/order-fulfillment/internal/payment/gateway"
	paymentHTTP "github.com/sakashimaa/order-fulfillment/internal/payment/transport/http"
	"github.com/sakashimaa/order-fulfillment/pkg/config"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.uber.org/zap"
)

// The standalone binary runs the whole saga in one process on
// in-memory storage and the in-process bus. Useful for demos and local
// poking without any infrastructure.
func main() {
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	system := app.NewStandalone(gateway.NewSimulated(cfg.Payment.SuccessRate, logger), logger)

	fiberApp := fiber.New(fiber.Config{
		ReadTimeout: cfg.HTTP.Timeout,
	})
	orderHTTP.RegisterRoutes(fiberApp, orderHTTP.NewOrderHandler(system.Orders, logger))
	paymentHTTP.RegisterRoutes(fiberApp, paymentHTTP.NewPaymentHandler(system.Payments, logger))
	inventoryHTTP.RegisterRoutes(fiberApp, inventoryHTTP.NewInventoryHandler(system.Inventory, logger))

	go func() {
		mylogger.Info(ctx, logger, "Standalone saga listening", zap.String("port", cfg.HTTP.Port))
		if err := fiberApp.Listen(cfg.HTTP.Port); err != nil {
			mylogger.Error(ctx, logger, "HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.Background(), time.Second*5)
	defer exit()

	mylogger.Info(shutdownCtx, logger, "Shutting down standalone saga")

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down HTTP server", zap.Error(err))
	}
}
