package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/internal/payments"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const (
	DefaultChargeTimeout = 30 * time.Second
	DefaultStoreLocation = "America/Los_Angeles"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrScheduleRequired     = errors.New("pickup date and time are required")
	ErrInvalidSchedule      = errors.New("pickup date or time is malformed")
	ErrPickupInPast         = errors.New("pickup time must be in the future")
	ErrInstructionsTooLong  = fmt.Errorf("special instructions exceed %d characters", orders.MaxInstructionsLength)
	ErrInvalidTransition    = errors.New("operation not allowed in the current checkout state")
	ErrInFlight             = errors.New("a payment is already in progress")
	ErrBackNavigationLocked = errors.New("payment already captured; cannot return to details")
	ErrPaymentCaptured      = errors.New("payment already captured; retry order submission instead")
)

// ChargeRequest is a single payment attempt sent to the server.
type ChargeRequest struct {
	SourceID string
	Amount   decimal.Decimal
}

// ChargeReceipt is the server's answer to a successful charge.
type ChargeReceipt struct {
	PaymentID  string
	Status     string
	ReceiptURL string
}

// Gateway charges a one-time source token. Failures should carry a
// *payments.ChargeError; anything else is classified as unknown.
type Gateway interface {
	CreatePayment(ctx context.Context, req ChargeRequest) (*ChargeReceipt, error)
}

// OrderSubmitter records the order for a captured payment.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error)
}

// Options configures a Workflow.
type Options struct {
	Cart          *cart.Store
	Gateway       Gateway
	Orders        OrderSubmitter
	Location      *time.Location
	ChargeTimeout time.Duration
	Now           func() time.Time
	Logger        *logger.Logger
}

// Workflow drives one checkout from pickup details to a recorded order.
type Workflow struct {
	mu       sync.Mutex
	cart     *cart.Store
	gateway  Gateway
	orders   OrderSubmitter
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
	logg     *logger.Logger

	state    State
	inFlight bool
	captured *ChargeReceipt
	pending  *orders.CreateOrderInput
}

// New builds a workflow in the CollectingDetails state.
func New(opts Options) (*Workflow, error) {
	if opts.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if opts.Orders == nil {
		return nil, fmt.Errorf("order submitter required")
	}
	loc := opts.Location
	if loc == nil {
		l, err := time.LoadLocation(DefaultStoreLocation)
		if err != nil {
			return nil, fmt.Errorf("load store location: %w", err)
		}
		loc = l
	}
	timeout := opts.ChargeTimeout
	if timeout <= 0 {
		timeout = DefaultChargeTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Workflow{
		cart:     opts.Cart,
		gateway:  opts.Gateway,
		orders:   opts.Orders,
		location: loc,
		timeout:  timeout,
		now:      now,
		logg:     logg,
		state:    CollectingDetails{},
	}, nil
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// InFlight reports whether a charge or submission is running.
func (w *Workflow) InFlight() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// CanGoBack reports whether Back would succeed.
func (w *Workflow) CanGoBack() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, awaiting := w.state.(AwaitingPayment)
	return awaiting && !w.inFlight && w.captured == nil
}

// ProceedToPayment validates the pickup details against the current time and
// moves to AwaitingPayment. Nothing is persisted.
func (w *Workflow) ProceedToPayment(details Details) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.state.(CollectingDetails); !ok {
		return ErrInvalidTransition
	}
	w.state = CollectingDetails{Details: details}
	if w.cart.IsEmpty() {
		return ErrEmptyCart
	}
	schedule, err := w.validate(details)
	if err != nil {
		return err
	}
	w.state = AwaitingPayment{Schedule: schedule}
	return nil
}

// Back returns to CollectingDetails while no payment has been captured.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	awaiting, ok := w.state.(AwaitingPayment)
	if !ok {
		if _, done := w.state.(Completed); done {
			return ErrBackNavigationLocked
		}
		return ErrInvalidTransition
	}
	if w.inFlight {
		return ErrInFlight
	}
	if w.captured != nil {
		return ErrBackNavigationLocked
	}
	w.state = CollectingDetails{Details: Details{
		PickupDate:          awaiting.Schedule.Date,
		PickupTime:          awaiting.Schedule.Time,
		SpecialInstructions: awaiting.Schedule.Instructions,
	}}
	return nil
}

// Pay charges the source token for the cart total and, once the charge
// succeeds, submits the order. The returned error is the surfaced failure.
func (w *Workflow) Pay(ctx context.Context, sourceToken string) (State, error) {
	w.mu.Lock()
	awaiting, ok := w.state.(AwaitingPayment)
	switch {
	case !ok:
		w.mu.Unlock()
		return w.State(), ErrInvalidTransition
	case w.inFlight:
		w.mu.Unlock()
		return awaiting, ErrInFlight
	case w.captured != nil:
		w.mu.Unlock()
		return awaiting, ErrPaymentCaptured
	case w.cart.IsEmpty():
		w.mu.Unlock()
		return awaiting, ErrEmptyCart
	}
	payload := buildOrderInput(w.cart.Lines(), awaiting.Schedule)
	w.inFlight = true
	w.mu.Unlock()

	chargeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	receipt, err := w.gateway.CreatePayment(chargeCtx, ChargeRequest{
		SourceID: strings.TrimSpace(sourceToken),
		Amount:   payload.TotalAmount,
	})
	cancel()
	if err == nil && (receipt == nil || receipt.PaymentID == "") {
		err = payments.NewChargeError(payments.KindUnknown, "payment response missing id", nil)
	}
	if err != nil {
		failure := chargeFailure(err)
		w.mu.Lock()
		defer w.mu.Unlock()
		w.inFlight = false
		w.state = AwaitingPayment{Schedule: awaiting.Schedule, Failure: failure}
		return w.state, failure.Err
	}

	payload.PaymentID = receipt.PaymentID
	payload.PaymentStatus = receipt.Status
	payload.ReceiptURL = receipt.ReceiptURL

	w.mu.Lock()
	w.captured = receipt
	w.pending = &payload
	w.mu.Unlock()

	return w.submit(ctx, awaiting.Schedule)
}

// RetrySubmission re-sends the order for an already captured payment without
// charging again.
func (w *Workflow) RetrySubmission(ctx context.Context) (State, error) {
	w.mu.Lock()
	awaiting, ok := w.state.(AwaitingPayment)
	switch {
	case !ok || w.captured == nil || w.pending == nil:
		w.mu.Unlock()
		return w.State(), ErrInvalidTransition
	case w.inFlight:
		w.mu.Unlock()
		return awaiting, ErrInFlight
	}
	w.inFlight = true
	w.mu.Unlock()

	return w.submit(ctx, awaiting.Schedule)
}

// submit expects inFlight to be set and a captured payment with a pending payload.
func (w *Workflow) submit(ctx context.Context, schedule Schedule) (State, error) {
	w.mu.Lock()
	payload := *w.pending
	paymentID := w.captured.PaymentID
	w.mu.Unlock()

	order, err := w.orders.CreateOrder(ctx, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false
	if err != nil || order == nil {
		if err == nil {
			err = errors.New("order response was empty")
		}
		failure := &Failure{
			Kind:      payments.KindUnrecordedOrder,
			Message:   payments.KindUnrecordedOrder.Message(),
			PaymentID: paymentID,
			Err:       payments.NewChargeError(payments.KindUnrecordedOrder, "payment "+paymentID, err),
		}
		logCtx := w.logg.WithFields(ctx, map[string]any{
			"payment_id": paymentID,
			"amount":     payload.TotalAmount.StringFixed(2),
		})
		w.logg.Error(logCtx, "checkout.unrecorded_order", err)
		w.state = AwaitingPayment{Schedule: schedule, Failure: failure}
		return w.state, failure.Err
	}

	w.cart.Clear()
	w.pending = nil
	w.state = Completed{Order: *order, PaymentID: paymentID}
	return w.state, nil
}

func (w *Workflow) validate(details Details) (Schedule, error) {
	date := strings.TrimSpace(details.PickupDate)
	clock := strings.TrimSpace(details.PickupTime)
	if date == "" || clock == "" {
		return Schedule{}, ErrScheduleRequired
	}
	if utf8.RuneCountInString(details.SpecialInstructions) > orders.MaxInstructionsLength {
		return Schedule{}, ErrInstructionsTooLong
	}
	at, err := time.ParseInLocation(orders.PickupDateLayout+" "+orders.PickupTimeLayout, date+" "+clock, w.location)
	if err != nil {
		return Schedule{}, ErrInvalidSchedule
	}
	if !at.After(w.now()) {
		return Schedule{}, ErrPickupInPast
	}
	return Schedule{
		Date:         date,
		Time:         clock,
		Instructions: strings.TrimSpace(details.SpecialInstructions),
		At:           at,
	}, nil
}

func buildOrderInput(lines []cart.Line, schedule Schedule) orders.CreateOrderInput {
	items := make([]orders.ItemInput, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		price := l.UnitPrice.Round(2)
		items = append(items, orders.ItemInput{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return orders.CreateOrderInput{
		Items:               items,
		TotalAmount:         total.Round(2),
		PickupDate:          schedule.Date,
		PickupTime:          schedule.Time,
		SpecialInstructions: schedule.Instructions,
	}
}

func chargeFailure(err error) *Failure {
	chargeErr := payments.Classify(err)
	msg := chargeErr.Message
	if msg == "" {
		msg = chargeErr.Kind.Message()
	}
	return &Failure{Kind: chargeErr.Kind, Message: msg, Err: chargeErr}
}
