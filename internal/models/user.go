package models

import "time"

type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleManufacturer UserRole = "MANUFACTURER"
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	// Manufacturer logins are bound to the karigar they work as
	KarigarID *uint
	Karigar   *Karigar `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
