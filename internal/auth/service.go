package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/internal/users"
	pkgauth "github.com/ethoparts/marketplace-backend/pkg/auth"
	"github.com/ethoparts/marketplace-backend/pkg/auth/session"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

const invalidCredentials = "invalid credentials"

// Service issues and rotates credentials.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, sessionID string) error
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

type tokenIssuer interface {
	Mint(userID uuid.UUID, role enums.UserRole, sessionID string) (pkgauth.AccessToken, error)
	VerifyIgnoringExpiry(token string) (*pkgauth.Claims, error)
}

type sessionStore interface {
	Open(ctx context.Context, sessionID string) (string, error)
	Rotate(ctx context.Context, sessionID, refreshToken string) (session.Rotated, error)
	Revoke(ctx context.Context, sessionID string) error
}

type ServiceParams struct {
	Users    userRepository
	Hasher   passwordHasher
	Tokens   tokenIssuer
	Sessions sessionStore
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	users    userRepository
	hasher   passwordHasher
	tokens   tokenIssuer
	sessions sessionStore
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:    params.Users,
		hasher:   params.Hasher,
		tokens:   params.Tokens,
		sessions: params.Sessions,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Register creates a buyer or seller account and signs it in. Admin
// accounts are provisioned out of band.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and name are required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	role, err := enums.ParseUserRole(strings.TrimSpace(req.Role))
	if err != nil || role == enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer or seller")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	now := s.now().UTC()
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        trimmed(req.Phone),
		Role:         role,
		BusinessName: trimmed(req.BusinessName),
		Address:      trimmed(req.Address),
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonDuplicateEmail,
				"email already registered", nil)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID, "role": role}), "user.registered")
	}
	return s.issue(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentials)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentials)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentials)
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record login")
	}
	user.LastLoginAt = &now
	return s.issue(ctx, user)
}

// Refresh accepts an access token past its expiry together with the refresh
// token of the same session and rotates both.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error) {
	claims, err := s.tokens.VerifyIgnoringExpiry(strings.TrimSpace(accessToken))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	rotated, err := s.sessions.Rotate(ctx, claims.SessionID(), strings.TrimSpace(refreshToken))
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, rotated.SessionID)
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentials)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	token, err := s.tokens.Mint(user.ID, user.Role, rotated.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		AccessToken:  token.Value,
		RefreshToken: rotated.RefreshToken,
		ExpiresAt:    token.ExpiresAt,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) issue(ctx context.Context, user *models.User) (*TokenResponse, error) {
	token, err := s.tokens.Mint(user.ID, user.Role, "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refresh, err := s.sessions.Open(ctx, token.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &TokenResponse{
		AccessToken:  token.Value,
		RefreshToken: refresh,
		ExpiresAt:    token.ExpiresAt,
		User:         users.FromModel(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
