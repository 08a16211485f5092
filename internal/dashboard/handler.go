package dashboard

import (
	"github.com/gofiber/fiber/v2"

	"karigar-backend/internal/database"
	"karigar-backend/internal/models"
)

type SummaryResponse struct {
	OrderCount    int64          `json:"order_count"`
	PartyCount    int64          `json:"party_count"`
	KarigarCount  int64          `json:"karigar_count"`
	PendingOrders int64          `json:"pending_orders"`
	RecentOrders  []models.Order `json:"recent_orders"`
}

// GET /api/dashboard/summary
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var resp SummaryResponse

		if err := database.DB.Model(&models.Order{}).Count(&resp.OrderCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not count orders")
		}
		database.DB.Model(&models.Party{}).Count(&resp.PartyCount)
		database.DB.Model(&models.Karigar{}).Count(&resp.KarigarCount)
		database.DB.Model(&models.Order{}).
			Where("status <> ?", models.StatusCompleted).
			Count(&resp.PendingOrders)

		if err := database.DB.
			Preload("Party").
			Preload("Karigar").
			Order("created_at DESC").
			Limit(5).
			Find(&resp.RecentOrders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load recent orders")
		}

		return c.JSON(resp)
	}
}
