package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

var (
	// ErrNotFound is returned by repositories when no order matches.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicatePayment is returned when an order already references the payment id.
	ErrDuplicatePayment = errors.New("order already recorded for payment")
)

// Repository persists orders. Implementations exist for SQL (gorm) and MongoDB.
type Repository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, filters ListFilters) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

// ProductCatalog resolves product references on submitted line items.
type ProductCatalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// EventPublisher fans order events out to live listeners.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Recorder captures submission and status-change counters.
type Recorder interface {
	IncOrderSubmission(result string)
	IncStatusTransition(from, to string)
}
