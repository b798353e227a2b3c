package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// Order is a paid pickup order. PaymentID is unique when present so a captured
// payment maps to at most one order.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Items               []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount         decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PickupDate          string            `gorm:"column:pickup_date;not null"`
	PickupTime          string            `gorm:"column:pickup_time;not null"`
	SpecialInstructions string            `gorm:"column:special_instructions;not null;default:''"`
	Status              enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentID           *string           `gorm:"column:payment_id;uniqueIndex"`
	PaymentStatus       *string           `gorm:"column:payment_status"`
	ReceiptURL          *string           `gorm:"column:receipt_url"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}

// OrderItem snapshots a cart line at submission time. Position is the line's
// index in the submitted order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position  int             `gorm:"column:position;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal returns quantity times the snapshotted price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
