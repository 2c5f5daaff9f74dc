package loyalty

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Ledger credits points. Every balance change writes exactly one event row in
// the caller's transaction.
type Ledger struct {
	pointsPerUnit int
	referralBonus int
}

func NewLedger(cfg config.LoyaltyConfig) *Ledger {
	l := &Ledger{pointsPerUnit: cfg.PointsPerUnit, referralBonus: cfg.ReferralBonus}
	if l.pointsPerUnit <= 0 {
		l.pointsPerUnit = 1
	}
	if l.referralBonus <= 0 {
		l.referralBonus = 1
	}
	return l
}

// CreditPurchase awards points for units bought in orderID and returns them.
func (l *Ledger) CreditPurchase(ctx context.Context, tx *gorm.DB, userID uuid.UUID, units int, orderID uuid.UUID) (int, error) {
	if units <= 0 {
		return 0, nil
	}
	points := units * l.pointsPerUnit
	err := l.credit(ctx, NewRepository(tx), &models.LoyaltyEvent{
		UserID:  userID,
		Kind:    enums.LoyaltyEventPurchase,
		Points:  points,
		OrderID: &orderID,
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// CreditReferral rewards both sides of a registration referral.
func (l *Ledger) CreditReferral(ctx context.Context, tx *gorm.DB, referrerID, newUserID uuid.UUID) error {
	if referrerID == newUserID {
		return pkgerrors.New(pkgerrors.CodeValidation, "users cannot refer themselves")
	}
	repo := NewRepository(tx)
	if err := l.credit(ctx, repo, &models.LoyaltyEvent{
		UserID:        referrerID,
		Kind:          enums.LoyaltyEventReferralBonus,
		Points:        l.referralBonus,
		RelatedUserID: &newUserID,
	}); err != nil {
		return err
	}
	return l.credit(ctx, repo, &models.LoyaltyEvent{
		UserID:        newUserID,
		Kind:          enums.LoyaltyEventReferralWelcome,
		Points:        l.referralBonus,
		RelatedUserID: &referrerID,
	})
}

// ReferralBonus is the amount credited to each side of a referral.
func (l *Ledger) ReferralBonus() int {
	return l.referralBonus
}

func (l *Ledger) credit(ctx context.Context, repo *Repository, event *models.LoyaltyEvent) error {
	ok, err := repo.AddPoints(ctx, event.UserID, event.Points)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit points")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err := repo.InsertEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record loyalty event")
	}
	return nil
}
