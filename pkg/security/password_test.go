package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/security"
)

var fastCfg = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerify(t *testing.T) {
	h := security.NewHasher(fastCfg)
	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := h.Verify("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUsesParametersFromHash(t *testing.T) {
	old, err := security.NewHasher(fastCfg).Hash("pw")
	require.NoError(t, err)

	stronger := fastCfg
	stronger.ArgonTime = 2
	ok, err := security.NewHasher(stronger).Verify("pw", old)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	_, err := security.NewHasher(fastCfg).Hash("")
	assert.ErrorIs(t, err, security.ErrEmptyPassword)
}

func TestVerifyMalformedHash(t *testing.T) {
	h := security.NewHasher(fastCfg)
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!$a2V5",
	} {
		_, err := h.Verify("pw", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}
