package models

import "time"

// Party: the customer an order is placed for.
type Party struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:150;not null"`
	Phone     string `gorm:"size:20"`
	Address   string `gorm:"size:255"`
	GST       string `gorm:"size:30"` // GST registration number
	Notes     string `gorm:"size:500"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
