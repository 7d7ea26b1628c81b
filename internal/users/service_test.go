package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db/dbtest"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

func TestMeReturnsOwnProfile(t *testing.T) {
	conn := dbtest.New(t).DB()
	fx := dbtest.NewFixtures(t, conn)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	seller := fx.User(enums.RoleSeller)
	me, err := svc.Me(context.Background(), access.Actor{UserID: seller.ID, Role: enums.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, seller.ID, me.ID)
	assert.Equal(t, seller.Email, me.Email)
	assert.Equal(t, enums.RoleSeller, me.Role)

	_, err = svc.Me(context.Background(), access.Actor{UserID: uuid.New(), Role: enums.RoleBuyer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListUsersIsAdminOnlyAndPaged(t *testing.T) {
	conn := dbtest.New(t).DB()
	fx := dbtest.NewFixtures(t, conn)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	admin := fx.User(enums.RoleAdmin)
	buyer := fx.User(enums.RoleBuyer)
	fx.User(enums.RoleSeller)

	_, err = svc.ListUsers(ctx, access.Actor{UserID: buyer.ID, Role: enums.RoleBuyer}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	adminActor := access.Actor{UserID: admin.ID, Role: enums.RoleAdmin}
	first, err := svc.ListUsers(ctx, adminActor, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListUsers(ctx, adminActor, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, u := range append(first.Items, second.Items...) {
		seen[u.ID] = true
	}
	assert.Len(t, seen, 3)

	_, err = svc.ListUsers(ctx, adminActor, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
