package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when it signs a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI doubles as the session key; a random one is used when blank.
	JTI string
}

func (p AccessTokenPayload) validate() error {
	if p.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !p.Role.IsValid() {
		return errors.New("invalid user role " + string(p.Role))
	}
	return nil
}

// AccessTokenClaims is the body of a bakery access token.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks of the jwt parser.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user")
	}
	if !c.Role.IsValid() {
		return errors.New("token carries an unknown role")
	}
	if c.ID == "" {
		return errors.New("token has no session id")
	}
	return nil
}
