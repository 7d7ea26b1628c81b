package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

func testIssuer(t *testing.T, at time.Time) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(config.JWTConfig{Secret: "s3cret", Issuer: "ethoparts", ExpirationMinutes: 15})
	require.NoError(t, err)
	issuer.now = func() time.Time { return at }
	return issuer
}

func TestNewIssuerValidatesConfig(t *testing.T) {
	for name, cfg := range map[string]config.JWTConfig{
		"secret": {Issuer: "x", ExpirationMinutes: 1},
		"issuer": {Secret: "x", ExpirationMinutes: 1},
		"ttl":    {Secret: "x", Issuer: "x"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewIssuer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestMintAndVerify(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	issuer := testIssuer(t, now)
	userID := uuid.New()

	token, err := issuer.Mint(userID, enums.RoleSeller, "")
	require.NoError(t, err)
	assert.NotEmpty(t, token.SessionID)
	assert.Equal(t, now.Add(15*time.Minute), token.ExpiresAt)

	claims, err := issuer.Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.RoleSeller, claims.Role)
	assert.Equal(t, token.SessionID, claims.SessionID())
	assert.Equal(t, "ethoparts", claims.Issuer)
}

func TestMintRejectsBadInput(t *testing.T) {
	issuer := testIssuer(t, time.Now())
	_, err := issuer.Mint(uuid.Nil, enums.RoleBuyer, "")
	assert.Error(t, err)
	_, err = issuer.Mint(uuid.New(), enums.UserRole("root"), "")
	assert.Error(t, err)
}

func TestVerifyExpiredToken(t *testing.T) {
	minted := time.Now().UTC().Add(-time.Hour)
	issuer := testIssuer(t, minted)
	token, err := issuer.Mint(uuid.New(), enums.RoleBuyer, "session-1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return minted.Add(time.Hour) }
	_, err = issuer.Verify(token.Value)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err := issuer.VerifyIgnoringExpiry(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID())
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	issuer := testIssuer(t, time.Now().UTC())
	other, err := NewIssuer(config.JWTConfig{Secret: "s3cret", Issuer: "someone-else", ExpirationMinutes: 15})
	require.NoError(t, err)
	token, err := other.Mint(uuid.New(), enums.RoleBuyer, "")
	require.NoError(t, err)
	_, err = issuer.Verify(token.Value)
	assert.Error(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           uuid.New(),
		Role:             enums.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "ethoparts"},
	}).SignedString([]byte("wrong"))
	require.NoError(t, err)
	_, err = issuer.Verify(forged)
	assert.Error(t, err)

	_, err = issuer.Verify("not-a-jwt")
	assert.Error(t, err)
}
