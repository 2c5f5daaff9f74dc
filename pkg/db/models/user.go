package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a shopper account together with its loyalty balance.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Username     string     `gorm:"column:username;not null;uniqueIndex"`
	Email        string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null;default:''"`
	LastName     string     `gorm:"column:last_name;not null;default:''"`
	Points       int        `gorm:"column:points;not null;default:0"`
	ReferralCode string     `gorm:"column:referral_code;not null;uniqueIndex"`
	ReferredByID *uuid.UUID `gorm:"column:referred_by_id;type:uuid"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
