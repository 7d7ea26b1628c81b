package auth

import (
	"time"

	"github.com/ethoparts/marketplace-backend/internal/users"
)

type RegisterRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Name         string  `json:"name" validate:"required"`
	Phone        *string `json:"phone,omitempty"`
	Role         string  `json:"role" validate:"required,oneof=buyer seller"`
	BusinessName *string `json:"business_name,omitempty"`
	Address      *string `json:"address,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by register, login and refresh.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	User         *users.UserDTO `json:"user"`
}
