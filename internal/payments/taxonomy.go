package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/square"
)

// ErrorKind classifies why a checkout payment step failed.
type ErrorKind string

const (
	KindAuthExpired        ErrorKind = "AUTH_EXPIRED"
	KindInvalidPaymentInfo ErrorKind = "INVALID_PAYMENT_INFO"
	KindPaymentDeclined    ErrorKind = "PAYMENT_DECLINED"
	KindGatewayConfig      ErrorKind = "GATEWAY_CONFIG_ERROR"
	KindNetwork            ErrorKind = "NETWORK_ERROR"
	KindUnrecordedOrder    ErrorKind = "UNRECORDED_ORDER"
	KindUnknown            ErrorKind = "UNKNOWN_ERROR"
)

var kindMessages = map[ErrorKind]string{
	KindAuthExpired:        "Your session has expired. Please log in again.",
	KindInvalidPaymentInfo: "Invalid payment information. Please check your details.",
	KindPaymentDeclined:    "Payment method was declined. Please try a different card.",
	KindGatewayConfig:      "Payment service configuration error. Please contact support.",
	KindNetwork:            "Unable to reach the payment service. Please try again.",
	KindUnrecordedOrder:    "Your payment was processed but we could not record your order. Please contact the bakery with your payment reference.",
	KindUnknown:            "Payment failed. Please try again.",
}

var kindStatuses = map[ErrorKind]int{
	KindAuthExpired:        http.StatusUnauthorized,
	KindInvalidPaymentInfo: http.StatusBadRequest,
	KindPaymentDeclined:    http.StatusPaymentRequired,
	KindGatewayConfig:      http.StatusBadGateway,
	KindNetwork:            http.StatusServiceUnavailable,
	KindUnrecordedOrder:    http.StatusInternalServerError,
	KindUnknown:            http.StatusInternalServerError,
}

func (k ErrorKind) String() string {
	return string(k)
}

// Message returns the customer-facing text for the kind.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// HTTPStatus returns the status the API answers with for the kind.
func (k ErrorKind) HTTPStatus() int {
	if status, ok := kindStatuses[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether retrying the same card can succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindNetwork || k == KindUnknown
}

// ParseErrorKind converts a wire value into an ErrorKind, defaulting to KindUnknown.
func ParseErrorKind(value string) ErrorKind {
	kind := ErrorKind(value)
	if _, ok := kindMessages[kind]; ok {
		return kind
	}
	return KindUnknown
}

// ChargeError is returned when a charge does not capture funds.
type ChargeError struct {
	Kind    ErrorKind
	Message string
	Detail  string
	Err     error
}

func (e *ChargeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChargeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewChargeError builds a ChargeError with the kind's default message.
func NewChargeError(kind ErrorKind, detail string, err error) *ChargeError {
	return &ChargeError{Kind: kind, Message: kind.Message(), Detail: detail, Err: err}
}

// AsChargeError extracts a ChargeError from an error chain.
func AsChargeError(err error) *ChargeError {
	var target *ChargeError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// Classify maps a gateway failure onto the checkout error taxonomy. Square's
// error categories take precedence over the HTTP status.
func Classify(err error) *ChargeError {
	if err == nil {
		return nil
	}
	if existing := AsChargeError(err); existing != nil {
		return existing
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewChargeError(KindNetwork, "payment request timed out", err)
	}

	if failure := square.AsError(err); failure != nil {
		detail := failure.Detail()
		switch failure.Category() {
		case square.CategoryAuthentication:
			return NewChargeError(KindGatewayConfig, detail, err)
		case square.CategoryPaymentMethod:
			return NewChargeError(KindPaymentDeclined, detail, err)
		case square.CategoryInvalidRequest:
			return NewChargeError(KindInvalidPaymentInfo, detail, err)
		case square.CategoryRateLimit:
			return NewChargeError(KindNetwork, detail, err)
		}
		return NewChargeError(kindForStatus(failure.StatusCode), detail, err)
	}

	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeValidation:
			return NewChargeError(KindInvalidPaymentInfo, typed.Message(), err)
		case pkgerrors.CodeDependency:
			return NewChargeError(KindNetwork, "", err)
		case pkgerrors.CodeGateway:
			return NewChargeError(KindGatewayConfig, "", err)
		}
	}
	return NewChargeError(KindUnknown, "", err)
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == 0:
		return KindNetwork
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindGatewayConfig
	case status == http.StatusPaymentRequired:
		return KindPaymentDeclined
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindInvalidPaymentInfo
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		return KindNetwork
	default:
		return KindUnknown
	}
}
