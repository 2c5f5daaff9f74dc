package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const invalidReferralMessage = "Invalid referral code."

// Register creates the account, resolves the optional referral code and
// credits both sides of the referral in one transaction.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	referral := users.NormalizeReferralCode(req.ReferralCode)

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	resp := &RegisterResponse{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)
		if err := ensureAvailable(ctx, repo, username, email); err != nil {
			return err
		}

		ownCode, err := users.UniqueReferralCode(ctx, repo, s.newCode)
		if err != nil {
			return err
		}

		var referrer *models.User
		if referral != "" {
			if referral == ownCode {
				return pkgerrors.New(pkgerrors.CodeValidation, "You cannot use your own referral code.")
			}
			referrer, err = repo.FindByReferralCode(ctx, referral)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, invalidReferralMessage).
					WithDetails(map[string]string{"referral_code": invalidReferralMessage})
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup referral code")
			}
		}

		dto := users.CreateUserDTO{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			ReferralCode: ownCode,
		}
		if referrer != nil {
			dto.ReferredByID = &referrer.ID
		}
		user, err := repo.Create(ctx, dto)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID},
			Data: payloads.UserRegisteredEvent{
				UserID:       user.ID,
				Username:     user.Username,
				ReferralCode: user.ReferralCode,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit user registered")
		}

		if referrer != nil {
			if err := s.ledger.CreditReferral(ctx, tx, referrer.ID, user.ID); err != nil {
				return err
			}
			bonus := s.ledger.ReferralBonus()
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventUserReferred,
				AggregateType: enums.AggregateUser,
				AggregateID:   referrer.ID,
				Actor:         &outbox.ActorRef{UserID: user.ID},
				Data: payloads.UserReferredEvent{
					ReferrerID:    referrer.ID,
					NewUserID:     user.ID,
					ReferrerBonus: bonus,
					WelcomeBonus:  bonus,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit user referred")
			}
			user.Points += bonus
			resp.ReferredBy = referrer.Username
			resp.ReferralPoints = bonus
		}

		resp.User = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":  resp.User.ID.String(),
		"referred": resp.ReferredBy != "",
	}), "auth.registered")
	return resp, nil
}

func ensureAvailable(ctx context.Context, repo *users.Repository, username, email string) error {
	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}
	if _, err := repo.FindByUsername(ctx, username); err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check username")
	}
	return nil
}
