package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/internal/payment/repository"
	"github.com/sakashimaa/order-fulfillment/internal/payment/service"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service service.PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(service service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: logger}
}

func RegisterRoutes(app *fiber.App, h *PaymentHandler) {
	payments := app.Group("/payments")

	payments.Get("/:id", h.GetByID)
	payments.Get("/order/:orderId", h.GetByOrder)
	payments.Post("/:id/refund", h.Refund)
}

type paymentResponse struct {
	ID            uuid.UUID  `json:"id"`
	OrderID       uuid.UUID  `json:"order_id"`
	CustomerID    string     `json:"customer_id"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func toPaymentResponse(payment *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		CustomerID:    payment.CustomerID,
		Amount:        payment.Amount,
		Status:        string(payment.Status),
		FailureReason: payment.FailureReason,
		CreatedAt:     payment.CreatedAt,
		ProcessedAt:   payment.ProcessedAt,
	}
}

func (h *PaymentHandler) GetByID(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id must be a valid uuid",
		})
	}

	payment, err := h.service.GetPayment(c.UserContext(), paymentID)
	if err != nil {
		return h.renderError(c, paymentID.String(), err)
	}

	return c.JSON(toPaymentResponse(payment))
}

func (h *PaymentHandler) GetByOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "orderId must be a valid uuid",
		})
	}

	payment, err := h.service.GetPaymentByOrder(c.UserContext(), orderID)
	if err != nil {
		return h.renderError(c, orderID.String(), err)
	}

	return c.JSON(toPaymentResponse(payment))
}

func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id must be a valid uuid",
		})
	}

	if err := h.service.RefundPayment(c.UserContext(), paymentID); err != nil {
		if domain.IsInvalidTransition(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return h.renderError(c, paymentID.String(), err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PaymentHandler) renderError(c *fiber.Ctx, id string, err error) error {
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "payment not found",
		})
	}

	mylogger.Error(
		c.UserContext(),
		h.logger,
		"payment request failed",
		zap.String("id", id),
		zap.Error(err),
	)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
	})
}
