package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	referralPrefix   = "REF"
	referralHexLen   = 8
	referralAttempts = 5
)

// NewReferralCode returns REF followed by 8 uppercase hex digits.
func NewReferralCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return referralPrefix + strings.ToUpper(hex[:referralHexLen])
}

// NormalizeReferralCode trims and uppercases user input.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type codeChecker interface {
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
}

// UniqueReferralCode retries on collision; the unique index is the final guard.
func UniqueReferralCode(ctx context.Context, repo codeChecker, gen func() string) (string, error) {
	if gen == nil {
		gen = NewReferralCode
	}
	for i := 0; i < referralAttempts; i++ {
		code := gen()
		exists, err := repo.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check referral code")
		}
		if !exists {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a referral code")
}
