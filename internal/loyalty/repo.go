package loyalty

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Earning is one user's points total over a period.
type Earning struct {
	UserID uuid.UUID
	Points int
}

// Totals summarizes the whole ledger.
type Totals struct {
	Users  int64
	Points int64
}

// Repository reads and writes balances, events and monthly snapshots.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// AddPoints adjusts the balance in place and reports whether the user exists.
func (r *Repository) AddPoints(ctx context.Context, userID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", delta))
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) InsertEvent(ctx context.Context, event *models.LoyaltyEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// TopUsers orders by points, ties broken by the earlier account.
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Order("points DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Totals(ctx context.Context) (Totals, error) {
	var out Totals
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("COUNT(*) AS users, COALESCE(SUM(points), 0) AS points").
		Scan(&out).Error
	return out, err
}

// CountAbove counts users holding strictly more than points.
func (r *Repository) CountAbove(ctx context.Context, points int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("points > ?", points).Count(&n).Error
	return n, err
}

// EarningsBetween sums loyalty events per user over [from, to).
func (r *Repository) EarningsBetween(ctx context.Context, from, to time.Time) ([]Earning, error) {
	var rows []Earning
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyEvent{}).
		Select("user_id, SUM(points) AS points").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("user_id").
		Having("SUM(points) > 0").
		Order("points DESC").
		Scan(&rows).Error
	return rows, err
}

// ReplaceMonth upserts the month's rows on (month, user_id) and drops rows for
// users no longer present.
func (r *Repository) ReplaceMonth(ctx context.Context, month time.Time, rows []models.MonthlyLeaderboard) error {
	conn := r.db.WithContext(ctx)
	stale := conn.Where("month = ?", month)
	if len(rows) > 0 {
		keep := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			keep = append(keep, row.UserID)
		}
		stale = stale.Where("user_id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.MonthlyLeaderboard{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "rank"}),
	}).Create(&rows).Error
}

func (r *Repository) ListMonth(ctx context.Context, month time.Time, limit int) ([]models.MonthlyLeaderboard, error) {
	var rows []models.MonthlyLeaderboard
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("month = ?", month).
		Order("rank ASC").
		Order("points DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
