package types

// APIError is the body written for every failed request.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// PaymentFailure is the body written when a charge does not capture funds.
type PaymentFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind"`
}
