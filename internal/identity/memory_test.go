package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resitrack/backend/internal/apperr"
)

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	uid, err := m.CreateAccount(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	_, err = m.CreateAccount(ctx, "ASHA@example.com", "other12")
	assert.True(t, IsErrEmailExists(err))
	assert.True(t, apperr.IsErrResourceTaken(err))

	_, err = m.SignIn(ctx, "asha@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, apperr.IsErrUnauthenticated(err))

	creds, err := m.SignIn(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uid, creds.UID)

	require.NoError(t, m.SetClaims(uid, map[string]any{"role": "admin"}))
	tok, err := m.VerifyIDToken(ctx, creds.IDToken)
	require.NoError(t, err)
	assert.Equal(t, uid, tok.UID)
	assert.Equal(t, "asha@example.com", tok.Email)
	assert.Equal(t, "admin", tok.Role())

	require.NoError(t, m.SignOut(ctx, uid))
	_, err = m.VerifyIDToken(ctx, creds.IDToken)
	assert.True(t, IsErrInvalidToken(err))

	require.NoError(t, m.DeleteAccount(ctx, uid))
	assert.False(t, m.HasEmail("asha@example.com"))
	assert.NoError(t, m.DeleteAccount(ctx, uid))
}

func TestMemoryFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	down := errors.New("provider down")

	m.FailNextCreate(down)
	_, err := m.CreateAccount(ctx, "a@example.com", "secret1")
	assert.ErrorIs(t, err, down)
	assert.False(t, m.HasEmail("a@example.com"))

	_, err = m.CreateAccount(ctx, "a@example.com", "secret1")
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Creates())
}
