package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialIssued: snapshot of what was physically handed to the karigar,
// written once at order creation. Edits to the order do not touch it.
type MaterialIssued struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"uniqueIndex;not null"`
	Purity    string          `gorm:"size:20"`
	GoldColor string          `gorm:"size:30"`
	Melting   decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Weight    decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Diamonds  []IssuedDiamond `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

type IssuedDiamond struct {
	ID               uint            `gorm:"primaryKey"`
	MaterialIssuedID uint            `gorm:"index;not null"`
	Shape            string          `gorm:"size:50"`
	SizeMM           string          `gorm:"size:30"`
	SieveSize        string          `gorm:"size:30"`
	Pieces           int             `gorm:"not null"`
	Weight           decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	CreatedAt        time.Time
}

// MaterialUsed: the karigar's consumption report, written once at completion.
// Its presence is what marks an order as counting on the used side of the ledger.
type MaterialUsed struct {
	ID                 uint            `gorm:"primaryKey"`
	OrderID            uint            `gorm:"uniqueIndex;not null"`
	UsedWeight         decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Wastage            decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	FinalMelting       decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	FinalColor         string          `gorm:"size:30"`
	FinalProductWeight decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Remarks            string          `gorm:"size:500"`
	Diamonds           []UsedDiamond   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time
}

type UsedDiamond struct {
	ID             uint            `gorm:"primaryKey"`
	MaterialUsedID uint            `gorm:"index;not null"`
	Shape          string          `gorm:"size:50"`
	SizeMM         string          `gorm:"size:30"`
	UsedPieces     int             `gorm:"not null"`
	FinalWeight    decimal.Decimal `gorm:"type:decimal(12,3);not null"` // carats consumed
	CreatedAt      time.Time
}
