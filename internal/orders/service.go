package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

const (
	submissionCreated  = "created"
	submissionReplayed = "replayed"
	submissionInvalid  = "invalid"
	submissionFailed   = "failed"
)

// Actor identifies the caller of a read or status change.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Service records paid orders and drives their fulfillment status.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*SubmitResult, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	ListAll(ctx context.Context, actor Actor, filters ListFilters) ([]OrderDTO, error)
	SetStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*OrderDTO, error)
}

type ServiceParams struct {
	Repository Repository
	Catalog    ProductCatalog
	Events     EventPublisher
	Metrics    Recorder
	Logger     *logger.Logger
}

type service struct {
	repo    Repository
	catalog ProductCatalog
	events  EventPublisher
	metrics Recorder
	logg    *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repository,
		catalog: params.Catalog,
		events:  params.Events,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*SubmitResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not authorized")
	}
	paymentID := strings.TrimSpace(input.PaymentID)
	ctx = s.logg.WithUserID(ctx, userID.String())
	if paymentID != "" {
		ctx = s.logg.WithPaymentID(ctx, paymentID)
	}

	result, err := s.submit(ctx, userID, paymentID, input)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			s.record(submissionInvalid)
		} else {
			s.record(submissionFailed)
		}
		if paymentID != "" && !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.logUnrecorded(ctx, userID, paymentID, input.TotalAmount, err)
		}
		return nil, err
	}
	if result.Replayed {
		s.record(submissionReplayed)
		s.logg.Info(s.logg.WithOrderID(ctx, result.Order.ID.String()), "orders.submission_replayed")
		return result, nil
	}

	s.record(submissionCreated)
	s.logg.Info(s.logg.WithOrderID(ctx, result.Order.ID.String()), "orders.created")
	if s.events != nil {
		s.events.Publish(ctx, EventOrderCreated, result.Order)
	}
	return result, nil
}

func (s *service) submit(ctx context.Context, userID uuid.UUID, paymentID string, input CreateOrderInput) (*SubmitResult, error) {
	if err := validateSubmission(input); err != nil {
		return nil, err
	}

	if paymentID != "" {
		existing, err := s.replay(ctx, userID, paymentID)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	items, err := s.snapshotItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:              userID,
		Items:               items,
		TotalAmount:         input.TotalAmount.Round(2),
		PickupDate:          strings.TrimSpace(input.PickupDate),
		PickupTime:          strings.TrimSpace(input.PickupTime),
		SpecialInstructions: strings.TrimSpace(input.SpecialInstructions),
		Status:              enums.OrderStatusPending,
		PaymentStatus:       optionalString(input.PaymentStatus),
		ReceiptURL:          optionalString(input.ReceiptURL),
	}
	if paymentID != "" {
		order.PaymentID = &paymentID
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			existing, replayErr := s.replay(ctx, userID, paymentID)
			if replayErr != nil {
				return nil, replayErr
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record order")
	}
	return &SubmitResult{Order: FromModel(created)}, nil
}

// replay returns the order already recorded for paymentID, if any.
func (s *service) replay(ctx context.Context, userID uuid.UUID, paymentID string) (*SubmitResult, error) {
	existing, err := s.repo.FindByPaymentID(ctx, paymentID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to look up payment")
	}
	if existing.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment already used for another order")
	}
	return &SubmitResult{Order: FromModel(existing), Replayed: true}, nil
}

func (s *service) snapshotItems(ctx context.Context, inputs []ItemInput) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for _, item := range inputs {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	items := make([]models.OrderItem, 0, len(inputs))
	missing := map[string]string{}
	for i, input := range inputs {
		product, ok := byID[input.ProductID]
		if !ok {
			missing[fmt.Sprintf("items[%d].product", i)] = "unknown product"
			continue
		}
		items = append(items, models.OrderItem{
			Position:  i,
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  input.Quantity,
			Price:     input.Price.Round(2),
		})
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order references unknown products").WithDetails(missing)
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}
	return FromModels(list), nil
}

func (s *service) ListAll(ctx context.Context, actor Actor, filters ListFilters) ([]OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	list, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}
	return FromModels(list), nil
}

func (s *service) SetStatus(ctx context.Context, actor Actor, id uuid.UUID, raw string) (*OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	next, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
			WithDetails(map[string]any{"allowed": enums.OrderStatuses()})
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	current := order.Status
	if current == next {
		dto := FromModel(order)
		return &dto, nil
	}
	if !current.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status cannot change").
			WithDetails(map[string]string{"from": current.String(), "to": next.String()})
	}

	updated, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if s.metrics != nil {
		s.metrics.IncStatusTransition(current.String(), next.String())
	}
	dto := FromModel(updated)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{
		"from": current.String(),
		"to":   next.String(),
	})
	s.logg.Info(logCtx, "orders.status_changed")
	if s.events != nil {
		s.events.Publish(ctx, EventOrderStatusChanged, StatusChangedEvent{
			OrderID: id,
			From:    current,
			To:      next,
			Order:   dto,
		})
	}
	return &dto, nil
}

func (s *service) record(result string) {
	if s.metrics != nil {
		s.metrics.IncOrderSubmission(result)
	}
}

// logUnrecorded flags a captured payment that has no order for manual reconciliation.
func (s *service) logUnrecorded(ctx context.Context, userID uuid.UUID, paymentID string, amount decimal.Decimal, err error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_id": paymentID,
		"amount":     amount.StringFixed(2),
		"user_id":    userID.String(),
	})
	s.logg.Error(ctx, "orders.unrecorded_payment", err)
}

func validateSubmission(input CreateOrderInput) error {
	details := map[string]string{}
	if len(input.Items) == 0 {
		details["items"] = "order must contain at least one item"
	}
	sum := decimal.Zero
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			details[fmt.Sprintf("items[%d].product", i)] = "product is required"
		}
		if item.Quantity < 1 {
			details[fmt.Sprintf("items[%d].quantity", i)] = "quantity must be at least 1"
		}
		if item.Price.IsNegative() {
			details[fmt.Sprintf("items[%d].price", i)] = "price must not be negative"
		}
		sum = sum.Add(item.Price.Round(2).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if len(input.Items) > 0 && !sum.Round(2).Equal(input.TotalAmount.Round(2)) {
		details["totalAmount"] = fmt.Sprintf("total must equal the sum of line items (%s)", sum.StringFixed(2))
	}
	if _, err := time.Parse(PickupDateLayout, strings.TrimSpace(input.PickupDate)); err != nil {
		details["pickupDate"] = "pickup date must be YYYY-MM-DD"
	}
	if _, err := time.Parse(PickupTimeLayout, strings.TrimSpace(input.PickupTime)); err != nil {
		details["pickupTime"] = "pickup time must be HH:MM"
	}
	if utf8.RuneCountInString(strings.TrimSpace(input.SpecialInstructions)) > MaxInstructionsLength {
		details["specialInstructions"] = fmt.Sprintf("must be at most %d characters", MaxInstructionsLength)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(details)
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
