package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/mercatosoft/catalogsync/app/controllers"
	"github.com/mercatosoft/catalogsync/internal/pkg/catalog"
	"github.com/mercatosoft/catalogsync/internal/pkg/database"
	"github.com/mercatosoft/catalogsync/internal/pkg/jobqueue"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	svc := catalog.NewServiceFromDB(database.GetDB())
	controllers.InitializeSyncController(svc)
	controllers.InitializeCatalogController(svc)
	controllers.InitializeTicketController(jobqueue.GetManager().GetQueue())

	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Change event receiver and counters
	api.Post("/sync/catalog", controllers.RequireSyncSecret, controllers.HandleCatalogSync)
	api.Get("/sync/stats", controllers.RequireSyncSecret, controllers.HandleSyncStats)

	// Catalog management
	products := api.Group("/products", controllers.RequireSyncSecret)
	products.Post("/", controllers.HandleProductCreate)
	products.Get("/:id", controllers.HandleProductGet)
	products.Put("/:id", controllers.HandleProductUpdate)
	products.Delete("/:id", controllers.HandleProductDelete)

	api.Get("/pricingplans", controllers.HandlePricingPlansList)

	// Internal ticket notifications
	internal := api.Group("/internal", controllers.RequireSyncSecret)
	internal.Post("/tickets/notify", controllers.HandleTicketNotify)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
