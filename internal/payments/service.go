package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/square"
)

const idempotencyKeyPrefix = "pay"

// Gateway is the subset of the Square client used for checkout charges.
type Gateway interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
	PublicConfig() square.PublicConfig
}

// ChargeObserver records charge outcomes.
type ChargeObserver interface {
	ObserveCharge(outcome string, duration time.Duration)
}

// Service charges one-time card tokens. It never touches order storage.
type Service interface {
	Config() square.PublicConfig
	Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error)
	Get(ctx context.Context, paymentID string) (*ChargeResult, error)
}

// ChargeInput is a single payment attempt. Amount is in decimal currency units.
// UserID is the buyer; it is sent to Square as the payment reference.
type ChargeInput struct {
	SourceID       string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	UserID         uuid.UUID
}

// ChargeResult summarizes a captured payment.
type ChargeResult struct {
	PaymentID   string `json:"id"`
	Status      string `json:"status"`
	ReceiptURL  string `json:"receiptUrl,omitempty"`
	OrderID     string `json:"orderId,omitempty"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

type ServiceParams struct {
	Gateway Gateway
	Logger  *logger.Logger
	Metrics ChargeObserver
	Now     func() time.Time
}

type service struct {
	gateway Gateway
	logg    *logger.Logger
	metrics ChargeObserver
	now     func() time.Time
}

// NewService validates dependencies and builds the payment adapter.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		gateway: params.Gateway,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Config() square.PublicConfig {
	return s.gateway.PublicConfig()
}

func (s *service) Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	sourceID := strings.TrimSpace(input.SourceID)
	if sourceID == "" || !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source and amount are required")
	}
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported currency")
	}
	cents := ToMinorUnits(input.Amount)
	if cents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be at least one cent")
	}

	params := square.PaymentCreateParams{
		AmountCents:    cents,
		Currency:       currency.String(),
		SourceID:       sourceID,
		IdempotencyKey: DeriveIdempotencyKey(input.UserID, input.IdempotencyKey),
		Note:           "Bakery pickup order",
	}
	if input.UserID != uuid.Nil {
		params.ReferenceID = input.UserID.String()
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"amount_cents": cents, "currency": currency.String()})
	started := s.now()
	payment, err := s.gateway.CreatePayment(ctx, params)
	elapsed := s.now().Sub(started)
	if err != nil {
		chargeErr := Classify(err)
		if s.metrics != nil {
			s.metrics.ObserveCharge(strings.ToLower(chargeErr.Kind.String()), elapsed)
		}
		s.logg.Warn(s.logg.WithField(ctx, "kind", chargeErr.Kind.String()), "payments.charge_failed")
		return nil, chargeErr
	}
	if s.metrics != nil {
		s.metrics.ObserveCharge("success", elapsed)
	}

	result := resultFromPayment(payment, cents, currency.String())
	s.logg.Info(s.logg.WithPaymentID(ctx, result.PaymentID), "payments.charge_succeeded")
	return result, nil
}

func (s *service) Get(ctx context.Context, paymentID string) (*ChargeResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	var cents int64
	var currency string
	if money := payment.AmountMoney; money != nil {
		if money.Amount != nil {
			cents = *money.Amount
		}
		if money.Currency != nil {
			currency = string(*money.Currency)
		}
	}
	return resultFromPayment(payment, cents, currency), nil
}

// ToMinorUnits converts a decimal amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// DeriveIdempotencyKey returns the Square idempotency key for a charge. A
// client-supplied key is hashed with the user id so retries of one attempt map
// to the same Square key; without one every call gets a fresh key.
func DeriveIdempotencyKey(userID uuid.UUID, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return fmt.Sprintf("%s-%s", idempotencyKeyPrefix, uuid.NewString())
	}
	sum := sha256.Sum256([]byte(userID.String() + ":" + clientKey))
	return fmt.Sprintf("%s-%s", idempotencyKeyPrefix, hex.EncodeToString(sum[:])[:32])
}

func resultFromPayment(payment *sq.Payment, cents int64, currency string) *ChargeResult {
	result := &ChargeResult{AmountCents: cents, Currency: currency}
	if payment == nil {
		return result
	}
	result.PaymentID = deref(payment.ID)
	result.Status = deref(payment.Status)
	result.ReceiptURL = deref(payment.ReceiptURL)
	result.OrderID = deref(payment.OrderID)
	return result
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
