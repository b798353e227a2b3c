package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/db/models"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// Profile is what clients see of an account. The password hash never leaves
// the package boundary.
type Profile struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	p := Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, LastLoginAt: u.LastLoginAt}
	p.CreatedAt, p.UpdatedAt = u.CreatedAt, u.UpdatedAt
	return &p
}

// NewUser is an account about to be inserted. Role defaults to customer.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         enums.UserRole
}

// Model normalises the name and email into a row ready for insert.
func (n NewUser) Model() *models.User {
	u := &models.User{
		Name:         strings.TrimSpace(n.Name),
		Email:        strings.ToLower(strings.TrimSpace(n.Email)),
		PasswordHash: n.PasswordHash,
		Role:         enums.UserRoleCustomer,
	}
	if n.Role.IsValid() {
		u.Role = n.Role
	}
	return u
}
