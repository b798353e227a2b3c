package checkout

import (
	"time"

	"github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/internal/payments"
)

// State is one of CollectingDetails, AwaitingPayment or Completed.
type State interface {
	Name() string
	isState()
}

// Details is the pickup form as entered by the customer.
type Details struct {
	PickupDate          string
	PickupTime          string
	SpecialInstructions string
}

// Schedule is a validated pickup slot.
type Schedule struct {
	Date         string
	Time         string
	Instructions string
	At           time.Time
}

// Failure is the error surfaced while the workflow stays in AwaitingPayment.
// PaymentID is set once funds were captured but the order was not recorded.
type Failure struct {
	Kind      payments.ErrorKind
	Message   string
	PaymentID string
	Err       error
}

// Retryable reports whether paying again with the same card may succeed.
func (f *Failure) Retryable() bool {
	return f != nil && f.PaymentID == "" && f.Kind.Retryable()
}

// CollectingDetails is the initial state.
type CollectingDetails struct {
	Details Details
}

// AwaitingPayment holds the validated schedule and the last failure, if any.
type AwaitingPayment struct {
	Schedule Schedule
	Failure  *Failure
}

// Completed is terminal: the payment was captured and the order stored.
type Completed struct {
	Order     orders.OrderDTO
	PaymentID string
}

func (CollectingDetails) Name() string { return "collecting_details" }
func (AwaitingPayment) Name() string   { return "awaiting_payment" }
func (Completed) Name() string         { return "completed" }

func (CollectingDetails) isState() {}
func (AwaitingPayment) isState()   {}
func (Completed) isState()         {}
