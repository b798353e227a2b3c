package enums

import "slices"

// UserRole is the permission level of an account.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

var userRoles = []UserRole{UserRoleCustomer, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return slices.Contains(userRoles, r) }

// ParseUserRole is exact: roles come from tokens and the database, never
// from free-form input.
func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", userRoles, value, nil)
}
