package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/pagination"
)

const (
	MaxInstructionsLength = 500
	PickupDateLayout      = "2006-01-02"
	PickupTimeLayout      = "15:04"
)

// ListFilters narrow the admin order list. A zero Limit returns every match;
// Before resumes after the given keyset position.
type ListFilters struct {
	Status *enums.OrderStatus
	Limit  int
	Before *pagination.Cursor
}

// ItemInput is one submitted line item.
type ItemInput struct {
	ProductID uuid.UUID       `json:"product" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Price     decimal.Decimal `json:"price"`
}

// CreateOrderInput is the body of an order submission.
type CreateOrderInput struct {
	Items               []ItemInput     `json:"items" validate:"required,min=1,dive"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	PickupDate          string          `json:"pickupDate" validate:"required"`
	PickupTime          string          `json:"pickupTime" validate:"required"`
	SpecialInstructions string          `json:"specialInstructions" validate:"max=500"`
	PaymentID           string          `json:"paymentId,omitempty"`
	PaymentStatus       string          `json:"paymentStatus,omitempty"`
	ReceiptURL          string          `json:"receiptUrl,omitempty"`
}

// UpdateStatusInput is the body of an admin status change.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// ItemDTO is the API representation of an order line.
type ItemDTO struct {
	ProductID uuid.UUID       `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderDTO is the API representation of a stored order.
type OrderDTO struct {
	ID                  uuid.UUID         `json:"id"`
	UserID              uuid.UUID         `json:"user"`
	Items               []ItemDTO         `json:"items"`
	TotalAmount         decimal.Decimal   `json:"totalAmount"`
	PickupDate          string            `json:"pickupDate"`
	PickupTime          string            `json:"pickupTime"`
	SpecialInstructions string            `json:"specialInstructions"`
	Status              enums.OrderStatus `json:"status"`
	PaymentID           *string           `json:"paymentId,omitempty"`
	PaymentStatus       *string           `json:"paymentStatus,omitempty"`
	ReceiptURL          *string           `json:"receiptUrl,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// SubmitResult reports the stored order and whether it already existed for the payment.
type SubmitResult struct {
	Order    OrderDTO
	Replayed bool
}

// StatusChangedEvent is published after an admin status change.
type StatusChangedEvent struct {
	OrderID uuid.UUID         `json:"orderId"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
	Order   OrderDTO          `json:"order"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// FromModel maps a stored order into its API representation.
func FromModel(order *models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return OrderDTO{
		ID:                  order.ID,
		UserID:              order.UserID,
		Items:               items,
		TotalAmount:         order.TotalAmount,
		PickupDate:          order.PickupDate,
		PickupTime:          order.PickupTime,
		SpecialInstructions: order.SpecialInstructions,
		Status:              order.Status,
		PaymentID:           order.PaymentID,
		PaymentStatus:       order.PaymentStatus,
		ReceiptURL:          order.ReceiptURL,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
}

// FromModels maps a slice of stored orders.
func FromModels(list []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(list))
	for i := range list {
		out = append(out, FromModel(&list[i]))
	}
	return out
}
