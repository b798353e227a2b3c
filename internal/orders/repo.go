package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db"
	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// GormRepository stores orders in Postgres or SQLite.
type GormRepository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) *GormRepository {
	return &GormRepository{db: conn}
}

func (r *GormRepository) WithTx(tx *gorm.DB) *GormRepository {
	if tx == nil {
		return r
	}
	return &GormRepository{db: tx}
}

// Create inserts the order and its items in one transaction.
func (r *GormRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		if order.PaymentID != nil && db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicatePayment
		}
		return nil, err
	}
	return order, nil
}

func itemsInOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}

func (r *GormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return r.findOne(ctx, "payment_id = ?", paymentID)
}

func (r *GormRepository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var list []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *GormRepository) List(ctx context.Context, filters ListFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items", itemsInOrder)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if c := filters.Before; c != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt, c.CreatedAt, c.ID)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	var list []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateStatus overwrites status and updated_at only.
func (r *GormRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}
