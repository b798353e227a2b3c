package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
)

// ProfileChanges lists the columns a profile update may touch. Nil fields
// are left alone.
type ProfileChanges struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

func (c ProfileChanges) columns() map[string]any {
	cols := make(map[string]any, 3)
	if c.Name != nil {
		cols["name"] = *c.Name
	}
	if c.Email != nil {
		cols["email"] = strings.ToLower(*c.Email)
	}
	if c.PasswordHash != nil {
		cols["password_hash"] = *c.PasswordHash
	}
	return cols
}

// Empty reports whether the update would change nothing.
func (c ProfileChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.PasswordHash == nil
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) Create(ctx context.Context, dto NewUser) (*models.User, error) {
	user := dto.Model()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects an already lowercased address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.query(ctx).Where(cond, arg).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.query(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// UpdateProfile applies changes and returns the refreshed user. An unknown id
// yields gorm.ErrRecordNotFound.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*models.User, error) {
	if !changes.Empty() {
		res := r.query(ctx).Where("id = ?", id).Updates(changes.columns())
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.FindByID(ctx, id)
}
