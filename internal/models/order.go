package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusIssued    OrderStatus = "ISSUED"    // created, material handed out
	StatusReceived  OrderStatus = "RECEIVED"  // karigar accepted the job
	StatusCompleted OrderStatus = "COMPLETED" // material usage reported
)

type Order struct {
	ID        uint `gorm:"primaryKey"`
	PartyID   uint `gorm:"index;not null"`
	Party     Party
	KarigarID uint `gorm:"index;not null"`
	Karigar   Karigar

	Status             OrderStatus `gorm:"size:20;not null;default:ISSUED"`
	IssueDate          time.Time   `gorm:"not null"`
	DeliveryDate       time.Time   `gorm:"not null"`
	ActualDeliveryDate *time.Time

	Quantity     int              `gorm:"not null"`
	Weight       decimal.Decimal  `gorm:"type:decimal(12,3);not null"` // approx gold weight at issuance, grams
	PartyOrderNo string           `gorm:"size:50"`
	ItemCategory string           `gorm:"size:100;not null"`
	Purity       string           `gorm:"size:20;not null"` // e.g. "18K", "22K"
	Size         string           `gorm:"size:50"`
	ScrewType    string           `gorm:"size:50"`
	GoldColor    string           `gorm:"size:30"`
	IsRateBooked bool             `gorm:"not null;default:false"`
	BookedRate   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	HasChain     bool             `gorm:"not null;default:false"`
	ChainLength  string           `gorm:"size:30"`
	CadFileURL   string           `gorm:"size:500"`
	Remarks      string           `gorm:"size:500"`

	Images         []OrderImage    `gorm:"constraint:OnDelete:CASCADE"`
	DiamondEntries []DiamondEntry  `gorm:"constraint:OnDelete:CASCADE"`
	MaterialIssued *MaterialIssued `gorm:"constraint:OnDelete:CASCADE"`
	MaterialUsed   *MaterialUsed   `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderImage struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   uint   `gorm:"index;not null"`
	ImageURL  string `gorm:"size:500;not null"`
	CreatedAt time.Time
}

// DiamondEntry: diamonds required for the order, as specified at creation.
// These (not the MaterialIssued snapshot) are what the ledger counts as issued.
type DiamondEntry struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   uint            `gorm:"index;not null"`
	Shape     string          `gorm:"size:50"`
	SizeMM    string          `gorm:"size:30"`
	SieveSize string          `gorm:"size:30"`
	Pieces    int             `gorm:"not null"`
	Weight    decimal.Decimal `gorm:"type:decimal(12,3);not null"` // carats
	CreatedAt time.Time
}
