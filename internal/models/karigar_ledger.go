package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KarigarLedger: cached running totals of material issued to and used by a
// karigar. Derived data — the order records are the source of truth, and the
// row can be rebuilt from them at any time (see internal/ledger).
type KarigarLedger struct {
	ID        uint `gorm:"primaryKey"`
	KarigarID uint `gorm:"uniqueIndex;not null"`

	TotalGoldIssued decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	TotalGoldUsed   decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	TotalWastage    decimal.Decimal `gorm:"type:decimal(14,3);not null"`

	TotalDiamondPcsIssued int             `gorm:"not null"`
	TotalDiamondWtIssued  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	TotalDiamondPcsUsed   int             `gorm:"not null"`
	TotalDiamondWtUsed    decimal.Decimal `gorm:"type:decimal(14,3);not null"`

	LastUpdated time.Time `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
