package models

import "time"

// Karigar: the craftsman gold and diamonds are issued to.
type Karigar struct {
	ID             uint           `gorm:"primaryKey"`
	Name           string         `gorm:"size:150;not null"`
	Phone          string         `gorm:"size:20"`
	Location       string         `gorm:"size:150"`
	Specialization string         `gorm:"size:150"` // e.g. "rings", "pendant sets"
	Notes          string         `gorm:"size:500"`
	Orders         []Order        `gorm:"constraint:OnDelete:CASCADE"`
	Ledger         *KarigarLedger `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
