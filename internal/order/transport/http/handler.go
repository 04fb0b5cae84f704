package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
	"github.com/sakashimaa/order-fulfillment/internal/order/repository"
	"github.com/sakashimaa/order-fulfillment/internal/order/service"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"github.com/sakashimaa/order-fulfillment/pkg/utils"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func RegisterRoutes(app *fiber.App, h *OrderHandler) {
	orders := app.Group("/orders")

	orders.Post("", h.Create)
	orders.Get("", h.List)
	orders.Get("/:id", h.GetByID)
	orders.Post("/:id/cancel", h.Cancel)
}

type createOrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Price     int64  `json:"price" validate:"gte=0"`
}

type createOrderRequest struct {
	CustomerID string            `json:"customer_id" validate:"required"`
	Items      []createOrderItem `json:"items" validate:"required,min=1,dive"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type orderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  string              `json:"customer_id"`
	Status      string              `json:"status"`
	TotalAmount int64               `json:"total_amount"`
	Items       []orderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return orderResponse{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	input := new(createOrderRequest)

	if err := c.BodyParser(input); err != nil {
		h.logger.Warn(
			"failed to parse body in create order",
			zap.Error(err),
		)

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.service.CreateOrder(c.UserContext(), input.CustomerID, items)
	if err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"create order failed",
			zap.Error(err),
		)

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id must be a valid uuid",
		})
	}

	input := new(cancelOrderRequest)
	_ = c.BodyParser(input) // the body is optional
	if input.Reason == "" {
		input.Reason = "cancelled by customer"
	}

	if err := h.service.CancelOrder(c.UserContext(), orderID, input.Reason); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "order not found",
			})
		case domain.IsInvalidTransition(err):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			mylogger.Error(
				c.UserContext(),
				h.logger,
				"cancel order failed",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal error",
			})
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id must be a valid uuid",
		})
	}

	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "order not found",
			})
		}

		mylogger.Error(
			c.UserContext(),
			h.logger,
			"get order failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	return c.JSON(toOrderResponse(order))
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext())
	if err != nil {
		mylogger.Error(
			c.UserContext(),
			h.logger,
			"list orders failed",
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}

	return c.JSON(out)
}
