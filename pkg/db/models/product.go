package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/bakery-backend/pkg/db/types"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

const DefaultProductImage = "/images/default-product.jpg"

// Product is a menu item sold by the bakery.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description string                `gorm:"column:description;not null"`
	Category    enums.ProductCategory `gorm:"column:category;type:text;not null"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	Image       string                `gorm:"column:image;not null"`
	Available   bool                  `gorm:"column:available;not null"`
	Ingredients dbtypes.StringList    `gorm:"column:ingredients;type:jsonb;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Image == "" {
		p.Image = DefaultProductImage
	}
	if p.Ingredients == nil {
		p.Ingredients = dbtypes.StringList{}
	}
	return nil
}
