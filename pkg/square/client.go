package square

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/bakery-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

var (
	errAccessTokenRequired   = errors.New("square access token is required")
	errApplicationIDRequired = errors.New("square application id is required")
	errLocationIDRequired    = errors.New("square location id is required")
	errInvalidSquareEnv      = errors.New(`square environment must be "sandbox" or "production"`)
	errLoggerRequired        = errors.New("square logger is required")
)

var environments = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

// Log fields whose key contains one of these are never written out.
var sensitiveKeys = []string{"card", "nonce", "token", "source", "cvv", "cvc", "secret", "email", "phone"}

// PublicConfig is what the browser card form needs to tokenize a card.
type PublicConfig struct {
	ApplicationID string `json:"applicationId"`
	LocationID    string `json:"locationId"`
	Environment   string `json:"environment"`
}

// Client charges cards through the Square Payments API.
type Client struct {
	sdk      *sqclient.Client
	public   PublicConfig
	currency string
	logg     *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env := cfg.Environment()
	baseURL, ok := environments[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}
	if override := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); override != "" {
		baseURL = override
	}

	public := PublicConfig{
		ApplicationID: strings.TrimSpace(cfg.ApplicationID),
		LocationID:    strings.TrimSpace(cfg.LocationID),
		Environment:   env,
	}
	token := strings.TrimSpace(cfg.AccessToken)
	switch {
	case token == "":
		return nil, errAccessTokenRequired
	case public.ApplicationID == "":
		return nil, errApplicationIDRequired
	case public.LocationID == "":
		return nil, errLocationIDRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "USD"
	}

	c := &Client{
		sdk:      sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token)),
		public:   public,
		currency: currency,
		logg:     logg,
	}
	logg.Info(logg.WithField(ctx, "square_env", env), "square.ready")
	return c, nil
}

func (c *Client) Environment() string { return c.public.Environment }

func (c *Client) Currency() string { return c.currency }

func (c *Client) PublicConfig() PublicConfig { return c.public }

// NewIdempotencyKey returns "<prefix>-<uuid>", using "bakery" for a blank prefix.
func (c *Client) NewIdempotencyKey(prefix string) string {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "bakery"
	}
	return prefix + "-" + uuid.NewString()
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) == "" {
		return c.NewIdempotencyKey(prefix)
	}
	return provided
}

// CreatePayment charges params.SourceID and returns the completed payment.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	if strings.TrimSpace(params.LocationID) == "" {
		params.LocationID = c.public.LocationID
	}
	if strings.TrimSpace(params.Currency) == "" {
		params.Currency = c.currency
	}
	req := params.request(c.ensureIdempotencyKey("pay", params.IdempotencyKey))

	payment, err := c.traced(ctx, "create_payment", map[string]any{
		"amount":       params.AmountCents,
		"currency":     params.Currency,
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"source_id":    params.SourceID,
	}, func() (*sq.Payment, error) {
		resp, err := c.sdk.Payments.Create(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.GetPayment(), nil
	})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square create payment returned no payment")
	}
	return payment, nil
}

// GetPayment looks a payment up by its Square id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	payment, err := c.traced(ctx, "get_payment", map[string]any{"payment_id": paymentID}, func() (*sq.Payment, error) {
		resp, err := c.sdk.Payments.Get(ctx, &sq.GetPaymentsRequest{PaymentID: paymentID})
		if err != nil {
			return nil, err
		}
		return resp.GetPayment(), nil
	})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

// traced runs call, logging the redacted request fields and the outcome,
// and maps SDK failures onto pkg/errors codes.
func (c *Client) traced(ctx context.Context, op string, fields map[string]any, call func() (*sq.Payment, error)) (*sq.Payment, error) {
	logFields := map[string]any{"operation": op}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logg.WithFields(ctx, logFields)

	payment, err := call()
	if err != nil {
		mapped := c.mapSquareError(err, strings.ReplaceAll(op, "_", " "))
		c.logg.Error(ctx, "square.call_failed", mapped)
		return nil, mapped
	}
	if payment != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"payment_id": stringValue(payment.GetID()),
			"status":     stringValue(payment.GetStatus()),
		})
	}
	c.logg.Info(ctx, "square.call_ok")
	return payment, nil
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := "square " + op + " failed"

	var apiErr *sqcore.APIError
	switch {
	case errors.As(err, &apiErr):
		failure := &Error{StatusCode: apiErr.StatusCode, Errors: extractSquareErrors(apiErr), cause: err}
		return pkgerrors.Wrap(domainCodeFor(failure), failure, msg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "square "+op+" timed out")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &Error{cause: err}, msg)
	}
}

// extractSquareErrors decodes the {"errors": [...]} body Square attaches to
// a non-2xx response. Bodies that are not JSON yield nil.
func extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(inner.Error()), &body) != nil {
		return nil
	}
	return body.Errors
}

// domainCodeFor prefers Square's error category over the HTTP status.
func domainCodeFor(failure *Error) pkgerrors.Code {
	for _, e := range failure.Errors {
		if e == nil {
			continue
		}
		if e.Code == sq.ErrorCodeIdempotencyKeyReused {
			return pkgerrors.CodeIdempotency
		}
		if code, ok := categoryCodes[e.Category]; ok {
			return code
		}
	}
	return domainCodeForStatus(failure.StatusCode)
}

var categoryCodes = map[sq.ErrorCategory]pkgerrors.Code{
	CategoryAuthentication: pkgerrors.CodeGateway,
	CategoryPaymentMethod:  pkgerrors.CodePayment,
	CategoryInvalidRequest: pkgerrors.CodeValidation,
	CategoryRateLimit:      pkgerrors.CodeDependency,
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return pkgerrors.CodeGateway
	case status == http.StatusPaymentRequired:
		return pkgerrors.CodePayment
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeDependency
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
