package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"karigar-backend/internal/models"
)

// Resync rebuilds a karigar's ledger row from the order records, discarding
// whatever was cached. It is the authoritative path: order deletions and the
// ledger view both go through here, so drift accumulated by the incremental
// updates never survives a read.
//
// A karigar id that does not exist resolves to all-zero totals and is not
// persisted, same as a karigar with no orders would compute.
func Resync(db *gorm.DB, karigarID uint) (*models.KarigarLedger, error) {
	var result *models.KarigarLedger

	err := db.Transaction(func(tx *gorm.DB) error {
		var karigar models.Karigar
		if err := tx.First(&karigar, "id = ?", karigarID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = &models.KarigarLedger{KarigarID: karigarID, LastUpdated: time.Now()}
				return nil
			}
			return fmt.Errorf("load karigar: %w", err)
		}

		var orders []models.Order
		if err := tx.
			Preload("DiamondEntries").
			Preload("MaterialUsed.Diamonds").
			Where("karigar_id = ?", karigarID).
			Find(&orders).Error; err != nil {
			return fmt.Errorf("load orders: %w", err)
		}

		totalGoldIssued := decimal.Zero
		totalDiamondWtIssued := decimal.Zero
		totalDiamondPcsIssued := 0

		totalGoldUsed := decimal.Zero
		totalWastage := decimal.Zero
		totalDiamondWtUsed := decimal.Zero
		totalDiamondPcsUsed := 0

		for _, order := range orders {
			// Issued side counts every order, from its current diamond list.
			// The MaterialIssued snapshot is deliberately not consulted: after
			// an order edit the order's own entries are what the business
			// treats as outstanding against the karigar.
			totalGoldIssued = totalGoldIssued.Add(order.Weight)
			for _, d := range order.DiamondEntries {
				totalDiamondPcsIssued += d.Pieces
				totalDiamondWtIssued = totalDiamondWtIssued.Add(d.Weight)
			}

			// Used side counts only orders with a consumption report.
			if order.MaterialUsed != nil {
				totalGoldUsed = totalGoldUsed.Add(order.MaterialUsed.UsedWeight)
				totalWastage = totalWastage.Add(order.MaterialUsed.Wastage)
				for _, d := range order.MaterialUsed.Diamonds {
					totalDiamondPcsUsed += d.UsedPieces
					totalDiamondWtUsed = totalDiamondWtUsed.Add(d.FinalWeight)
				}
			}
		}

		now := time.Now()
		row := models.KarigarLedger{
			KarigarID:             karigarID,
			TotalGoldIssued:       totalGoldIssued,
			TotalGoldUsed:         totalGoldUsed,
			TotalWastage:          totalWastage,
			TotalDiamondPcsIssued: totalDiamondPcsIssued,
			TotalDiamondWtIssued:  totalDiamondWtIssued,
			TotalDiamondPcsUsed:   totalDiamondPcsUsed,
			TotalDiamondWtUsed:    totalDiamondWtUsed,
			LastUpdated:           now,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "karigar_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_gold_issued":        totalGoldIssued,
				"total_gold_used":          totalGoldUsed,
				"total_wastage":            totalWastage,
				"total_diamond_pcs_issued": totalDiamondPcsIssued,
				"total_diamond_wt_issued":  totalDiamondWtIssued,
				"total_diamond_pcs_used":   totalDiamondPcsUsed,
				"total_diamond_wt_used":    totalDiamondWtUsed,
				"last_updated":             now,
				"updated_at":               now,
			}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert ledger: %w", err)
		}

		var fresh models.KarigarLedger
		if err := tx.First(&fresh, "karigar_id = ?", karigarID).Error; err != nil {
			return fmt.Errorf("reload ledger: %w", err)
		}
		result = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordIssue bumps the issued-side counters when an order is created. Callers
// run it inside the same transaction that persists the order. The increment is
// a single INSERT ... ON CONFLICT DO UPDATE statement so two writers hitting
// the same karigar cannot lose each other's update.
func RecordIssue(tx *gorm.DB, karigarID uint, goldWeight decimal.Decimal, diamondPcs int, diamondWt decimal.Decimal) error {
	now := time.Now()
	row := models.KarigarLedger{
		KarigarID:             karigarID,
		TotalGoldIssued:       goldWeight,
		TotalDiamondPcsIssued: diamondPcs,
		TotalDiamondWtIssued:  diamondWt,
		LastUpdated:           now,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "karigar_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_gold_issued":        gorm.Expr("total_gold_issued + ?", goldWeight),
			"total_diamond_pcs_issued": gorm.Expr("total_diamond_pcs_issued + ?", diamondPcs),
			"total_diamond_wt_issued":  gorm.Expr("total_diamond_wt_issued + ?", diamondWt),
			"last_updated":             now,
			"updated_at":               now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record issue: %w", err)
	}
	return nil
}

// RecordUsage bumps the used-side counters when an order is completed, under
// the same contract as RecordIssue.
func RecordUsage(tx *gorm.DB, karigarID uint, usedWeight, wastage decimal.Decimal, diamondPcs int, diamondWt decimal.Decimal) error {
	now := time.Now()
	row := models.KarigarLedger{
		KarigarID:           karigarID,
		TotalGoldUsed:       usedWeight,
		TotalWastage:        wastage,
		TotalDiamondPcsUsed: diamondPcs,
		TotalDiamondWtUsed:  diamondWt,
		LastUpdated:         now,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "karigar_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_gold_used":        gorm.Expr("total_gold_used + ?", usedWeight),
			"total_wastage":          gorm.Expr("total_wastage + ?", wastage),
			"total_diamond_pcs_used": gorm.Expr("total_diamond_pcs_used + ?", diamondPcs),
			"total_diamond_wt_used":  gorm.Expr("total_diamond_wt_used + ?", diamondWt),
			"last_updated":           now,
			"updated_at":             now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}
