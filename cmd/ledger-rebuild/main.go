package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"karigar-backend/internal/config"
	"karigar-backend/internal/database"
	"karigar-backend/internal/ledger"
	"karigar-backend/internal/models"
)

// Rebuilds karigar ledgers from the order records. For one karigar with
// --karigar-id, otherwise for all of them. Recovery tool for drift the
// self-healing ledger view has not gotten around to yet.
func main() {
	karigarID := flag.Uint("karigar-id", 0, "Optional: rebuild a single karigar's ledger")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing karigars and keep going")
	flag.Parse()

	cfg := config.Load()
	database.Init(cfg)

	var karigars []models.Karigar
	q := database.DB
	if *karigarID > 0 {
		q = q.Where("id = ?", *karigarID)
	}
	if err := q.Find(&karigars).Error; err != nil {
		logrus.WithError(err).Fatal("could not load karigars")
	}
	if len(karigars) == 0 {
		fmt.Fprintln(os.Stderr, "no karigars found")
		os.Exit(1)
	}

	failed := 0
	for _, k := range karigars {
		row, err := ledger.Resync(database.DB, k.ID)
		if err != nil {
			failed++
			logrus.WithError(err).WithField("karigar_id", k.ID).Error("resync failed")
			if !*continueOnError {
				os.Exit(1)
			}
			continue
		}
		logrus.WithFields(logrus.Fields{
			"karigar_id":   k.ID,
			"karigar":      k.Name,
			"gold_issued":  row.TotalGoldIssued.String(),
			"gold_used":    row.TotalGoldUsed.String(),
			"wastage":      row.TotalWastage.String(),
			"gold_balance": row.TotalGoldIssued.Sub(row.TotalGoldUsed).Sub(row.TotalWastage).String(),
		}).Info("ledger rebuilt")
	}

	if failed > 0 {
		logrus.WithField("failed", failed).Warn("some ledgers could not be rebuilt")
		os.Exit(1)
	}
}
