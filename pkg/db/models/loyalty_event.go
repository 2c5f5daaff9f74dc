package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// LoyaltyEvent is the append-only record behind every points change.
type LoyaltyEvent struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Kind          enums.LoyaltyEventKind `gorm:"column:kind;not null"`
	Points        int                    `gorm:"column:points;not null"`
	OrderID       *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	RelatedUserID *uuid.UUID             `gorm:"column:related_user_id;type:uuid"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime;index"`
}

func (e *LoyaltyEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// MonthlyLeaderboard is a materialized (month, user) ranking row.
type MonthlyLeaderboard struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Month     time.Time `gorm:"column:month;type:date;not null;uniqueIndex:ux_monthly_leaderboards_month_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_monthly_leaderboards_month_user"`
	User      *User     `gorm:"foreignKey:UserID"`
	Points    int       `gorm:"column:points;not null"`
	Rank      int       `gorm:"column:rank;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (m *MonthlyLeaderboard) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
