package payloads

import "github.com/google/uuid"

// OrderLine is one purchased product inside OrderCreatedEvent.
type OrderLine struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
}

// OrderCreatedEvent is emitted once per committed checkout or buy-now.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID   `json:"orderId"`
	OrderNumber   string      `json:"orderNumber"`
	UserID        uuid.UUID   `json:"userId"`
	TotalPrice    string      `json:"totalPrice"`
	Source        string      `json:"source"`
	PointsAwarded int         `json:"pointsAwarded"`
	Items         []OrderLine `json:"items"`
}

type UserRegisteredEvent struct {
	UserID       uuid.UUID `json:"userId"`
	Username     string    `json:"username"`
	ReferralCode string    `json:"referralCode"`
}

// UserReferredEvent records a referral credited at registration.
type UserReferredEvent struct {
	ReferrerID    uuid.UUID `json:"referrerId"`
	NewUserID     uuid.UUID `json:"newUserId"`
	ReferrerBonus int       `json:"referrerBonus"`
	WelcomeBonus  int       `json:"welcomeBonus"`
}
