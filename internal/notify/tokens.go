package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
)

const TokensCollection = "fcmTokens"

var ErrEmptyToken = fmt.Errorf("push token is required: %w", apperr.ErrValidation)

func IsErrEmptyToken(err error) bool {
	return errors.Is(err, ErrEmptyToken)
}

// Tokens keeps one push token per user.
type Tokens struct {
	store docstore.Store
	now   func() time.Time
}

func NewTokens(store docstore.Store) *Tokens {
	return &Tokens{store: store, now: time.Now}
}

func (t *Tokens) Register(ctx context.Context, sess authctx.Session, token string) error {
	if !sess.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	return t.store.Set(ctx, TokensCollection, sess.UID, docstore.Doc{
		"token":     token,
		"updatedAt": t.now().UTC(),
	})
}
