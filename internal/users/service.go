package users

import (
	"context"
	"fmt"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

// Service serves account reads: the caller's own profile and the admin
// directory.
type Service interface {
	Me(ctx context.Context, actor access.Actor) (*UserDTO, error)
	ListUsers(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[UserDTO], error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, actor access.Actor) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) ListUsers(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[UserDTO], error) {
	if err := access.Authorize(actor, access.CapAdminView, access.Resource{}); err != nil {
		return pagination.Page[UserDTO]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, cursor, params.Limit)
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	page := pagination.Trim(rows, params.Limit, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return pagination.Map(page, func(u models.User) UserDTO { return *FromModel(&u) }), nil
}
