package enums

import "fmt"

// OrderStatus tracks the fulfillment stage of an order. New orders start at
// OrderStatusNew, which is the pending state shown to shoppers.
type OrderStatus string

const (
	OrderStatusNew         OrderStatus = "new"
	OrderStatusPreparation OrderStatus = "preparation"
	OrderStatusSent        OrderStatus = "sent"
	OrderStatusDelivered   OrderStatus = "delivered"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusPreparation,
	OrderStatusSent,
	OrderStatusDelivered,
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusNew:         "New",
	OrderStatusPreparation: "In preparation",
	OrderStatusSent:        "Sent",
	OrderStatusDelivered:   "Delivered",
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// Label is the human readable status.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo allows only single forward steps.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for i, candidate := range validOrderStatuses {
		if candidate == s {
			return i+1 < len(validOrderStatuses) && validOrderStatuses[i+1] == next
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
