package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

var signingMethod = jwt.SigningMethodHS256

// AccessToken is a signed JWT plus what callers need to hand it out.
type AccessToken struct {
	Value     string
	SessionID string
	ExpiresAt time.Time
}

// Issuer mints and verifies HS256 access tokens for one issuer name.
type Issuer struct {
	secret []byte
	name   string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return nil, errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return nil, errors.New("jwt expiration minutes must be positive")
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		name:   cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Mint signs a token for the user. An empty sessionID gets a fresh one.
func (i *Issuer) Mint(userID uuid.UUID, role enums.UserRole, sessionID string) (AccessToken, error) {
	if userID == uuid.Nil {
		return AccessToken{}, errors.New("user id is required")
	}
	if !role.IsValid() {
		return AccessToken{}, fmt.Errorf("invalid user role %q", role)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.name,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        sessionID,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign jwt: %w", err)
	}
	return AccessToken{Value: signed, SessionID: sessionID, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, issuer and expiry.
func (i *Issuer) Verify(token string) (*Claims, error) {
	return i.parse(token, jwt.WithTimeFunc(i.now))
}

// VerifyIgnoringExpiry checks signature and issuer only. Refresh uses it to
// read the session id of an access token that has already expired.
func (i *Issuer) VerifyIgnoringExpiry(token string) (*Claims, error) {
	return i.parse(token, jwt.WithoutClaimsValidation())
}

func (i *Issuer) parse(token string, extra ...jwt.ParserOption) (*Claims, error) {
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(i.name),
	}, extra...)
	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid role claim %q", claims.Role)
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("missing user id claim")
	}
	return claims, nil
}
