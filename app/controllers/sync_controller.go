package controllers

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mercatosoft/catalogsync/app/models"
	"github.com/mercatosoft/catalogsync/internal/pkg/catalog"
	"github.com/mercatosoft/catalogsync/internal/pkg/env"
	metrics "github.com/mercatosoft/catalogsync/internal/pkg/metrics/counter"
)

var syncService *catalog.Service

// InitializeSyncController wires the catalog service used by the sync routes
func InitializeSyncController(svc *catalog.Service) {
	syncService = svc
}

// RequireSyncSecret guards the sync API with a shared bearer secret
func RequireSyncSecret(c *fiber.Ctx) error {
	secret := env.GetEnv("SYNC_API_SECRET", "")
	auth := c.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	return c.Next()
}

// HandleCatalogSync receives one product/pricingplan change event and mirrors
// it into Stripe
func HandleCatalogSync(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ev, err := catalog.ParseEvent(rawBody)
	if err != nil {
		var verr *catalog.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Msg})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// Audit row first so a crash mid-sync leaves a replayable trace.
	stored := &models.CatalogSyncEvent{
		TableName:   ev.Table,
		EventType:   ev.EventType,
		PayloadJSON: string(rawBody),
	}
	if err := syncService.RecordSyncEvent(stored); err != nil {
		log.Errorf("[SyncController] Failed to persist sync event: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record sync event"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := syncService.ProcessEvent(ctx, ev)
	if markErr := syncService.MarkSyncEventProcessed(stored.ID, err); markErr != nil {
		log.Errorf("[SyncController] Failed to mark sync event %d as processed: %v", stored.ID, markErr)
	}

	if err != nil {
		_ = metrics.AddFailed(ev.Table, ev.EventType)
		var verr *catalog.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Msg})
		case errors.Is(err, catalog.ErrProductNotSynced):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Product not found or not synced with Stripe"})
		default:
			log.Errorf("[SyncController] Sync failed for %s %s: %v", ev.Table, ev.EventType, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sync to Stripe: " + err.Error()})
		}
	}

	if result.Ignored {
		_ = metrics.AddIgnored(ev.Table, ev.EventType)
	} else {
		_ = metrics.AddProcessed(ev.Table, ev.EventType)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": result.Message})
}

// HandleSyncStats reports per-event sync counters
func HandleSyncStats(c *fiber.Ctx) error {
	stats, err := metrics.GetStats()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read sync stats"})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
