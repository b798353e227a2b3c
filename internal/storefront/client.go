package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/internal/auth"
	"github.com/angelmondragon/bakery-backend/internal/checkout"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	"github.com/angelmondragon/bakery-backend/internal/payments"
	product "github.com/angelmondragon/bakery-backend/internal/products"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/square"
)

const (
	defaultTimeout        = 45 * time.Second
	errorBodyReadLimit    = 4096
	idempotencyHeader     = "Idempotency-Key"
	orderKeyPrefix        = "order-"
	paymentKeyPrefix      = "checkout-"
	responseBodyReadLimit = 1 << 20
)

var errBaseURLRequired = errors.New("storefront base url is required")

// APIError is a non-2xx answer from the bakery API. Kind and Detail are set
// when the body is a failed charge.
type APIError struct {
	Status  int
	Code    string
	Message string
	Kind    string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Client talks to the bakery API on behalf of one shopper.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger
	newKey     func() string

	mu    sync.RWMutex
	token string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithToken starts the client with an existing access token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithKeyGenerator overrides how per-submission idempotency keys are minted.
func WithKeyGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newKey = fn
		}
	}
}

// NewClient builds a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse storefront base url: %w", err)
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		logg:       logger.Nop(),
		newKey:     func() string { return paymentKeyPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for tokens and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	body := auth.LoginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Products lists the catalog; an empty category returns everything.
func (c *Client) Products(ctx context.Context, category string) ([]product.ProductDTO, error) {
	path := "/api/products"
	if category = strings.TrimSpace(category); category != "" {
		path += "?" + url.Values{"category": []string{category}}.Encode()
	}
	var out []product.ProductDTO
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PaymentConfig fetches the identifiers the card form is initialized with.
func (c *Client) PaymentConfig(ctx context.Context) (*square.PublicConfig, error) {
	var out square.PublicConfig
	if err := c.doJSON(ctx, http.MethodGet, "/api/payment/config", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayment charges the source token. Every call is a new submission and
// carries a fresh Idempotency-Key. Failures are returned as *payments.ChargeError.
func (c *Client) CreatePayment(ctx context.Context, req checkout.ChargeRequest) (*checkout.ChargeReceipt, error) {
	body := map[string]any{"sourceId": req.SourceID, "amount": req.Amount}
	headers := map[string]string{idempotencyHeader: c.newKey()}

	var out struct {
		Success bool                   `json:"success"`
		Payment *payments.ChargeResult `json:"payment"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/payment/create-payment", body, headers, &out)
	if err != nil {
		chargeErr := classifyPaymentError(err)
		c.logg.Warn(c.logg.WithField(ctx, "kind", chargeErr.Kind.String()), "storefront.payment_failed")
		return nil, chargeErr
	}
	if !out.Success || out.Payment == nil || out.Payment.PaymentID == "" {
		return nil, payments.NewChargeError(payments.KindUnknown, "payment response missing id", nil)
	}
	return &checkout.ChargeReceipt{
		PaymentID:  out.Payment.PaymentID,
		Status:     out.Payment.Status,
		ReceiptURL: out.Payment.ReceiptURL,
	}, nil
}

// CreateOrder records the order for a captured payment. The Idempotency-Key is
// derived from the payment id so every retry for one payment shares it.
func (c *Client) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	headers := map[string]string{}
	if paymentID := strings.TrimSpace(input.PaymentID); paymentID != "" {
		headers[idempotencyHeader] = orderKeyPrefix + paymentID
	}
	var out orders.OrderDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/orders", input, headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+method+" "+path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

// paymentFailure is the union of the API error body and the charge failure body.
type paymentFailure struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	var body paymentFailure
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
		if body.Message == "" {
			body.Message = http.StatusText(resp.StatusCode)
		}
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    body.Code,
		Message: body.Message,
		Kind:    body.Kind,
		Detail:  body.Error,
	}
}

func classifyPaymentError(err error) *payments.ChargeError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return payments.NewChargeError(payments.KindNetwork, "payment request timed out", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			return payments.NewChargeError(payments.KindAuthExpired, "", err)
		}
		if apiErr.Kind == "" {
			return payments.NewChargeError(kindForStatus(apiErr.Status), apiErr.Message, err)
		}
		chargeErr := payments.NewChargeError(payments.ParseErrorKind(apiErr.Kind), apiErr.Detail, err)
		if apiErr.Message != "" {
			chargeErr.Message = apiErr.Message
		}
		return chargeErr
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		return payments.NewChargeError(payments.KindNetwork, "", err)
	}
	return payments.NewChargeError(payments.KindUnknown, "", err)
}

func kindForStatus(status int) payments.ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return payments.KindAuthExpired
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return payments.KindInvalidPaymentInfo
	case status == http.StatusPaymentRequired:
		return payments.KindPaymentDeclined
	case status == http.StatusBadGateway || status == http.StatusForbidden:
		return payments.KindGatewayConfig
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return payments.KindNetwork
	}
	return payments.KindUnknown
}
