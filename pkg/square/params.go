package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

// PaymentCreateParams are the inputs of a one-time card charge. Blank
// LocationID and Currency fall back to the client's configuration.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

// request builds the Square body. Payments are captured immediately.
func (p PaymentCreateParams) request(key string) *sq.CreatePaymentRequest {
	autocomplete := true
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: key,
		SourceID:       p.SourceID,
		Autocomplete:   &autocomplete,
		LocationID:     optional(p.LocationID),
		Note:           optional(p.Note),
		ReferenceID:    optional(p.ReferenceID),
	}
	if p.AmountCents > 0 {
		currency := sq.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
		amount := p.AmountCents
		req.AmountMoney = &sq.Money{Amount: &amount, Currency: &currency}
	}
	return req
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
