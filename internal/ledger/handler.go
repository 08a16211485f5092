package ledger

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"karigar-backend/internal/auth"
	"karigar-backend/internal/database"
	"karigar-backend/internal/models"
)

type LedgerResponse struct {
	KarigarID             uint            `json:"karigar_id"`
	TotalGoldIssued       decimal.Decimal `json:"total_gold_issued"`
	TotalGoldUsed         decimal.Decimal `json:"total_gold_used"`
	TotalWastage          decimal.Decimal `json:"total_wastage"`
	TotalDiamondPcsIssued int             `json:"total_diamond_pcs_issued"`
	TotalDiamondWtIssued  decimal.Decimal `json:"total_diamond_wt_issued"`
	TotalDiamondPcsUsed   int             `json:"total_diamond_pcs_used"`
	TotalDiamondWtUsed    decimal.Decimal `json:"total_diamond_wt_used"`
	GoldBalance           decimal.Decimal `json:"gold_balance"`
	DiamondPcsBalance     int             `json:"diamond_pcs_balance"`
	DiamondWtBalance      decimal.Decimal `json:"diamond_wt_balance"`
	LastUpdated           string          `json:"last_updated"`
}

func toLedgerResponse(l *models.KarigarLedger) LedgerResponse {
	return LedgerResponse{
		KarigarID:             l.KarigarID,
		TotalGoldIssued:       l.TotalGoldIssued,
		TotalGoldUsed:         l.TotalGoldUsed,
		TotalWastage:          l.TotalWastage,
		TotalDiamondPcsIssued: l.TotalDiamondPcsIssued,
		TotalDiamondWtIssued:  l.TotalDiamondWtIssued,
		TotalDiamondPcsUsed:   l.TotalDiamondPcsUsed,
		TotalDiamondWtUsed:    l.TotalDiamondWtUsed,
		GoldBalance:           l.TotalGoldIssued.Sub(l.TotalGoldUsed).Sub(l.TotalWastage),
		DiamondPcsBalance:     l.TotalDiamondPcsIssued - l.TotalDiamondPcsUsed,
		DiamondWtBalance:      l.TotalDiamondWtIssued.Sub(l.TotalDiamondWtUsed),
		LastUpdated:           l.LastUpdated.Format("2006-01-02 15:04:05"),
	}
}

type KarigarLedgerViewResponse struct {
	Karigar struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	} `json:"karigar"`
	Ledger          LedgerResponse `json:"ledger"`
	TotalOrders     int            `json:"total_orders"`
	CompletedOrders int            `json:"completed_orders"`
	LateOrders      int            `json:"late_orders"`
}

// GET /api/karigars/:id/ledger
// Self-healing read path: the ledger is resynced from the order records
// before it is returned, so whatever drift the incremental updates picked up
// (order edits, interrupted deletes) is gone by the time anyone sees it.
func GetKarigarLedgerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var karigarID uint
		if _, err := fmt.Sscan(c.Params("id"), &karigarID); err != nil || karigarID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid karigar ID")
		}

		var karigar models.Karigar
		if err := database.DB.First(&karigar, "id = ?", karigarID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Karigar not found")
		}

		row, err := Resync(database.DB, karigarID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not resync ledger")
		}

		var orders []models.Order
		if err := database.DB.
			Where("karigar_id = ?", karigarID).
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load orders")
		}

		resp := KarigarLedgerViewResponse{Ledger: toLedgerResponse(row)}
		resp.Karigar.ID = karigar.ID
		resp.Karigar.Name = karigar.Name
		resp.TotalOrders = len(orders)
		for _, o := range orders {
			if o.Status != models.StatusCompleted {
				continue
			}
			resp.CompletedOrders++
			completedAt := o.UpdatedAt
			if o.ActualDeliveryDate != nil {
				completedAt = *o.ActualDeliveryDate
			}
			if completedAt.After(o.DeliveryDate) {
				resp.LateOrders++
			}
		}

		return c.JSON(resp)
	}
}

type AnalyticsLedgerItem struct {
	KarigarID   uint           `json:"karigar_id"`
	KarigarName string         `json:"karigar_name"`
	Ledger      LedgerResponse `json:"ledger"`
}

type AnalyticsResponse struct {
	Ledgers []AnalyticsLedgerItem `json:"ledgers"`

	TotalGoldIssued       decimal.Decimal `json:"total_gold_issued"`
	TotalGoldUsed         decimal.Decimal `json:"total_gold_used"`
	TotalWastage          decimal.Decimal `json:"total_wastage"`
	TotalGoldOutstanding  decimal.Decimal `json:"total_gold_outstanding"`
	TotalDiamondPcsIssued int             `json:"total_diamond_pcs_issued"`
	TotalDiamondWtIssued  decimal.Decimal `json:"total_diamond_wt_issued"`
	TotalDiamondPcsUsed   int             `json:"total_diamond_pcs_used"`
	TotalDiamondWtUsed    decimal.Decimal `json:"total_diamond_wt_used"`
}

// GET /api/analytics/ledgers
// Reads the cached rows without resyncing. Cheap fleet overview; totals can
// lag behind the order records until each karigar's ledger page is opened.
func AnalyticsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ledgers []models.KarigarLedger
		if err := database.DB.Order("total_gold_issued DESC").Find(&ledgers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load ledgers")
		}

		karigarNames := map[uint]string{}
		var karigars []models.Karigar
		if err := database.DB.Find(&karigars).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load karigars")
		}
		for _, k := range karigars {
			karigarNames[k.ID] = k.Name
		}

		resp := AnalyticsResponse{
			Ledgers:              make([]AnalyticsLedgerItem, 0, len(ledgers)),
			TotalGoldIssued:      decimal.Zero,
			TotalGoldUsed:        decimal.Zero,
			TotalWastage:         decimal.Zero,
			TotalGoldOutstanding: decimal.Zero,
			TotalDiamondWtIssued: decimal.Zero,
			TotalDiamondWtUsed:   decimal.Zero,
		}
		for i := range ledgers {
			l := &ledgers[i]
			resp.Ledgers = append(resp.Ledgers, AnalyticsLedgerItem{
				KarigarID:   l.KarigarID,
				KarigarName: karigarNames[l.KarigarID],
				Ledger:      toLedgerResponse(l),
			})
			resp.TotalGoldIssued = resp.TotalGoldIssued.Add(l.TotalGoldIssued)
			resp.TotalGoldUsed = resp.TotalGoldUsed.Add(l.TotalGoldUsed)
			resp.TotalWastage = resp.TotalWastage.Add(l.TotalWastage)
			resp.TotalDiamondPcsIssued += l.TotalDiamondPcsIssued
			resp.TotalDiamondWtIssued = resp.TotalDiamondWtIssued.Add(l.TotalDiamondWtIssued)
			resp.TotalDiamondPcsUsed += l.TotalDiamondPcsUsed
			resp.TotalDiamondWtUsed = resp.TotalDiamondWtUsed.Add(l.TotalDiamondWtUsed)
		}
		resp.TotalGoldOutstanding = resp.TotalGoldIssued.Sub(resp.TotalGoldUsed).Sub(resp.TotalWastage)

		return c.JSON(resp)
	}
}

// GET /api/me/ledger
// Manufacturer's own balance, straight from the cache (no resync here:
// fast, possibly a little stale until the next ledger view or rebuild).
func MyLedgerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		karigarID := auth.KarigarID(c)
		if karigarID == nil {
			return fiber.NewError(fiber.StatusForbidden, "No karigar bound to this account")
		}

		var row models.KarigarLedger
		if err := database.DB.First(&row, "karigar_id = ?", *karigarID).Error; err != nil {
			// No orders yet: an all-zero ledger, not an error.
			row = models.KarigarLedger{KarigarID: *karigarID}
		}

		return c.JSON(toLedgerResponse(&row))
	}
}
