package types

// SuccessEnvelope wraps every JSON success body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// CartActionResult is the AJAX body of the cart endpoints. Failures keep a
// 200-range status with Success=false so the page script can show Message.
type CartActionResult struct {
	Success   bool   `json:"success"`
	CartCount int    `json:"cart_count"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
}
