package checkout

import (
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

// FormView is what the shopper sees before confirming.
type FormView struct {
	Cart      *cart.CartDTO `json:"cart"`
	Challenge Challenge     `json:"challenge"`
	Question  string        `json:"question"`
}

// Rejection is attached as details to a VALIDATION_ERROR so the form can be
// shown again with the shopper's input and a new question.
type Rejection struct {
	Errors    []FieldError `json:"errors"`
	Values    ShippingForm `json:"values"`
	Challenge Challenge    `json:"challenge"`
	Question  string       `json:"question"`
}

type CancelView struct {
	Message string `json:"message"`
}

const cancelMessage = "Your order was cancelled. Your cart has been kept."
