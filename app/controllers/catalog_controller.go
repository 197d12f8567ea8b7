package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/mercatosoft/catalogsync/app/models"
	"github.com/mercatosoft/catalogsync/internal/pkg/catalog"
)

var catalogService *catalog.Service

// InitializeCatalogController wires the catalog service used by the
// management routes
func InitializeCatalogController(svc *catalog.Service) {
	catalogService = svc
}

// HandleProductCreate creates a product locally and in Stripe
func HandleProductCreate(c *fiber.Ctx) error {
	var p models.Product
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	p.ID = 0
	p.StripeProductID = ""

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := catalogService.CreateCatalogProduct(ctx, &p); err != nil {
		return catalogErrorResponse(c, err, "Failed to create product")
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// HandleProductGet returns one product by id
func HandleProductGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product id"})
	}

	p, err := catalogService.GetCatalogProduct(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load product"})
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

// HandleProductUpdate updates a product locally and pushes the change to
// Stripe
func HandleProductUpdate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product id"})
	}

	existing, err := catalogService.GetCatalogProduct(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load product"})
	}

	var p models.Product
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	p.ID = existing.ID
	p.StripeProductID = existing.StripeProductID
	p.CreatedAt = existing.CreatedAt

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := catalogService.UpdateCatalogProduct(ctx, &p); err != nil {
		return catalogErrorResponse(c, err, "Failed to update product")
	}
	return c.Status(fiber.StatusOK).JSON(p)
}

// HandleProductDelete removes a product with its plans locally and in Stripe
func HandleProductDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product id"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := catalogService.DeleteCatalogProduct(ctx, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		return catalogErrorResponse(c, err, "Failed to delete product")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Product deleted"})
}

// HandlePricingPlansList returns all active pricing plans with product info
func HandlePricingPlansList(c *fiber.Ctx) error {
	plans, err := catalogService.ListActivePlans()
	if err != nil {
		log.Errorf("[CatalogController] Failed to list pricing plans: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load pricing plans"})
	}
	return c.Status(fiber.StatusOK).JSON(plans)
}

func catalogErrorResponse(c *fiber.Ctx, err error, fallback string) error {
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Msg})
	}
	log.Errorf("[CatalogController] %s: %v", fallback, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}
