package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	numberPrefix  = "CMD"
	numberHexLen  = 8
	defaultTrials = 5
)

// NewNumber returns CMD followed by 8 uppercase hex digits of a random UUID.
func NewNumber() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return numberPrefix + strings.ToUpper(hex[:numberHexLen])
}

type numberChecker interface {
	NumberExists(ctx context.Context, number string) (bool, error)
}

// UniqueNumber draws numbers from gen until one is unused. The unique index
// on orders.order_number stays the final guard against a concurrent insert.
func UniqueNumber(ctx context.Context, repo numberChecker, attempts int, gen func() string) (string, error) {
	if attempts <= 0 {
		attempts = defaultTrials
	}
	if gen == nil {
		gen = NewNumber
	}
	for i := 0; i < attempts; i++ {
		candidate := gen()
		exists, err := repo.NumberExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.Newf(pkgerrors.CodeConflict, "could not allocate an order number after %d attempts", attempts)
}
