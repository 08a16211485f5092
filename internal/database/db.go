package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"karigar-backend/internal/config"
	"karigar-backend/internal/models"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}

	if err := Migrate(DB); err != nil {
		logrus.WithError(err).Fatal("migration failed")
	}

	logrus.Info("database connected, migration complete")
}

// Migrate runs AutoMigrate for every model. Parent tables go first so the
// child foreign keys (all ON DELETE CASCADE) can be created in one pass.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Party{},
		&models.Karigar{},
		&models.User{},
		&models.Order{},
		&models.OrderImage{},
		&models.DiamondEntry{},
		&models.MaterialIssued{},
		&models.IssuedDiamond{},
		&models.MaterialUsed{},
		&models.UsedDiamond{},
		&models.KarigarLedger{},
		&models.AuditLog{},
	)
}
