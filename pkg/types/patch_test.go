package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchDistinguishesAbsentFromNull(t *testing.T) {
	type body struct {
		CategoryID Patch[uuid.UUID] `json:"category_id"`
	}
	id := uuid.New()

	var withValue body
	require.NoError(t, json.Unmarshal([]byte(`{"category_id":"`+id.String()+`"}`), &withValue))
	assert.True(t, withValue.CategoryID.Set)
	require.NotNil(t, withValue.CategoryID.Value)
	assert.Equal(t, id, *withValue.CategoryID.Value)

	var cleared body
	require.NoError(t, json.Unmarshal([]byte(`{"category_id":null}`), &cleared))
	assert.True(t, cleared.CategoryID.Set)
	assert.Nil(t, cleared.CategoryID.Value)

	var absent body
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.CategoryID.Set)
}

func TestPatchRejectsMalformedValue(t *testing.T) {
	var p Patch[uuid.UUID]
	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &p))
}
