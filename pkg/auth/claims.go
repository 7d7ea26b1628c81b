package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// Claims is the body of an access token. The registered ID carries the
// session id that ties the token to its refresh token.
type Claims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// SessionID is the jti claim.
func (c Claims) SessionID() string {
	return c.ID
}
