package auth

import (
	"github.com/angelmondragon/bakery-backend/internal/users"
)

// RegisterRequest contains the payload for creating a customer account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token bound to an access token's jti.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ProfileRequest updates the caller's profile; empty fields are left unchanged.
type ProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

// AuthResponse contains the tokens and user produced by register, login and refresh.
type AuthResponse struct {
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.Profile `json:"user"`
}
