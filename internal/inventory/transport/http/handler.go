package http

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/repository"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/service"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"github.com/sakashimaa/order-fulfillment/pkg/utils"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	service  service.InventoryService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewInventoryHandler(service service.InventoryService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

func RegisterRoutes(app *fiber.App, h *InventoryHandler) {
	inventory := app.Group("/inventory")

	inventory.Post("", h.Create)
	inventory.Get("/:productId", h.GetAvailability)
	inventory.Post("/:productId/restock", h.Restock)
}

type createItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

type restockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type itemResponse struct {
	ProductID string    `json:"product_id"`
	InStock   int       `json:"in_stock"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toItemResponse(item *domain.InventoryItem) itemResponse {
	return itemResponse{
		ProductID: item.ProductID,
		InStock:   item.InStock,
		Reserved:  item.Reserved,
		Available: item.Available(),
		UpdatedAt: item.UpdatedAt,
	}
}

func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	input := new(createItemRequest)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	item, err := h.service.CreateItem(c.UserContext(), input.ProductID, input.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateProduct) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "inventory item already exists",
			})
		}

		mylogger.Error(
			c.UserContext(),
			h.logger,
			"create inventory item failed",
			zap.String("product_id", input.ProductID),
			zap.Error(err),
		)

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toItemResponse(item))
}

func (h *InventoryHandler) GetAvailability(c *fiber.Ctx) error {
	productID := c.Params("productId")

	item, err := h.service.GetAvailability(c.UserContext(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "inventory item not found",
			})
		}

		mylogger.Error(
			c.UserContext(),
			h.logger,
			"get availability failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	return c.JSON(toItemResponse(item))
}

func (h *InventoryHandler) Restock(c *fiber.Ctx) error {
	productID := c.Params("productId")

	input := new(restockRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	item, err := h.service.Restock(c.UserContext(), productID, input.Delta)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "inventory item not found",
			})
		case errors.Is(err, domain.ErrStockBelowReserved):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			mylogger.Error(
				c.UserContext(),
				h.logger,
				"restock failed",
				zap.String("product_id", productID),
				zap.Error(err),
			)

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal error",
			})
		}
	}

	return c.JSON(toItemResponse(item))
}
