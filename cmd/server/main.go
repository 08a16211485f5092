package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"karigar-backend/internal/audit"
	"karigar-backend/internal/auth"
	"karigar-backend/internal/config"
	"karigar-backend/internal/dashboard"
	"karigar-backend/internal/database"
	"karigar-backend/internal/karigar"
	"karigar-backend/internal/ledger"
	"karigar-backend/internal/models"
	"karigar-backend/internal/order"
	"karigar-backend/internal/party"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logrus.WithError(err).Error("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public
	api.Post("/setup", auth.SetupHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	adminOnly := auth.RequireRole(models.RoleAdmin)

	// Parties
	protected.Post("/parties", adminOnly, party.CreatePartyHandler())
	protected.Get("/parties", adminOnly, party.ListPartiesHandler())
	protected.Get("/parties/:id", adminOnly, party.GetPartyHandler())
	protected.Put("/parties/:id", adminOnly, party.UpdatePartyHandler())
	protected.Delete("/parties/:id", adminOnly, party.DeletePartyHandler())

	// Karigars
	protected.Post("/karigars", adminOnly, karigar.CreateKarigarHandler())
	protected.Get("/karigars", adminOnly, karigar.ListKarigarsHandler())
	protected.Get("/karigars/:id", adminOnly, karigar.GetKarigarHandler())
	protected.Put("/karigars/:id", adminOnly, karigar.UpdateKarigarHandler())
	protected.Delete("/karigars/:id", adminOnly, karigar.DeleteKarigarHandler())

	// Ledger view always resyncs before it renders
	protected.Get("/karigars/:id/ledger", adminOnly, ledger.GetKarigarLedgerHandler())
	protected.Get("/analytics/ledgers", adminOnly, ledger.AnalyticsHandler())

	// Orders (admin lifecycle)
	protected.Post("/orders", adminOnly, order.CreateOrderHandler())
	protected.Get("/orders", adminOnly, order.ListOrdersHandler())
	protected.Put("/orders/:id/edit", adminOnly, order.UpdateOrderHandler())
	protected.Delete("/orders/:id", adminOnly, order.DeleteOrderHandler())

	// Shared with the assigned manufacturer
	protected.Get("/orders/:id", order.GetOrderHandler())
	protected.Patch("/orders/:id/status", order.UpdateOrderStatusHandler())
	protected.Post("/orders/:id/complete", order.CompleteOrderHandler())

	// Manufacturer self-service
	manufacturerRoutes := protected.Group("/me")
	manufacturerRoutes.Use(auth.RequireRole(models.RoleManufacturer))
	manufacturerRoutes.Get("/orders", order.MyOrdersHandler())
	manufacturerRoutes.Get("/ledger", ledger.MyLedgerHandler())

	// Dashboard
	protected.Get("/dashboard/summary", adminOnly, dashboard.SummaryHandler())

	// Audit logs
	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler())

	logrus.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
