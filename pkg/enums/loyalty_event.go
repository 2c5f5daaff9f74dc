package enums

import "fmt"

// LoyaltyEventKind names the reason a points balance changed.
type LoyaltyEventKind string

const (
	LoyaltyEventPurchase        LoyaltyEventKind = "purchase"
	LoyaltyEventReferralBonus   LoyaltyEventKind = "referral_bonus"
	LoyaltyEventReferralWelcome LoyaltyEventKind = "referral_welcome"
)

var validLoyaltyEventKinds = []LoyaltyEventKind{
	LoyaltyEventPurchase,
	LoyaltyEventReferralBonus,
	LoyaltyEventReferralWelcome,
}

func (k LoyaltyEventKind) String() string {
	return string(k)
}

func (k LoyaltyEventKind) IsValid() bool {
	for _, candidate := range validLoyaltyEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func ParseLoyaltyEventKind(value string) (LoyaltyEventKind, error) {
	for _, candidate := range validLoyaltyEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty event kind %q", value)
}
