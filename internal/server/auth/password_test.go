package auth

import (
	"testing"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordVerifier_Plain(t *testing.T) {
	v := NewPasswordVerifier("hunter2", "")
	require.True(t, v.Configured())
	assert.NoError(t, v.Check("hunter2"))
	assert.ErrorIs(t, v.Check("hunter3"), common.ErrUnauthorized)
	assert.ErrorIs(t, v.Check(""), common.ErrUnauthorized)
}

func TestPasswordVerifier_HashWins(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("from-hash"), bcrypt.MinCost)
	require.NoError(t, err)

	v := NewPasswordVerifier("plain", string(hash))
	assert.NoError(t, v.Check("from-hash"))
	assert.ErrorIs(t, v.Check("plain"), common.ErrUnauthorized)
}

func TestPasswordVerifier_NotConfigured(t *testing.T) {
	v := NewPasswordVerifier("", "")
	assert.False(t, v.Configured())
	assert.ErrorIs(t, v.Check("anything"), common.ErrNotConfigured)
}
