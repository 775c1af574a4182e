// Package identity is the narrow surface onto the external identity
// provider: account creation and removal, password sign-in, sign-out and
// ID-token verification.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resitrack/backend/internal/apperr"
)

var (
	ErrEmailExists        = fmt.Errorf("identity: email already registered: %w", apperr.ErrResourceTaken)
	ErrInvalidCredentials = fmt.Errorf("identity: invalid email or password: %w", apperr.ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("identity: invalid or revoked token: %w", apperr.ErrUnauthenticated)
	ErrProvider           = fmt.Errorf("identity: provider failure: %w", apperr.ErrExternal)
)

func IsErrEmailExists(err error) bool {
	return errors.Is(err, ErrEmailExists)
}

func IsErrInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

type Credentials struct {
	UID          string        `json:"uid"`
	Email        string        `json:"email"`
	IDToken      string        `json:"idToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	ExpiresIn    time.Duration `json:"-"`
}

type Token struct {
	UID    string
	Email  string
	Claims map[string]any
}

// Role returns the "role" custom claim, if any.
func (t Token) Role() string {
	r, _ := t.Claims["role"].(string)
	return r
}

type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	// SignOut revokes every refresh token of uid.
	SignOut(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (Token, error)
}
