package account

import (
	"context"
	"strings"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/identity"
)

// SessionResolver turns a bearer ID token into a Session. The role comes from
// the "role" custom claim when set, otherwise from users/{uid}.
type SessionResolver struct {
	provider identity.Provider
	repo     *Repo
}

func NewSessionResolver(provider identity.Provider, repo *Repo) *SessionResolver {
	return &SessionResolver{provider: provider, repo: repo}
}

func (r *SessionResolver) Resolve(ctx context.Context, idToken string) (authctx.Session, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return authctx.Session{}, apperr.ErrUnauthenticated
	}
	tok, err := r.provider.VerifyIDToken(ctx, idToken)
	if err != nil {
		return authctx.Session{}, err
	}

	sess := authctx.Session{
		UID:     tok.UID,
		Email:   tok.Email,
		Role:    tok.Role(),
		IDToken: idToken,
	}
	if sess.Role != "" {
		return sess, nil
	}

	a, err := r.repo.Get(ctx, tok.UID)
	switch {
	case err == nil:
		sess.Role = a.Role
	case IsErrAccountNotFound(err):
		// signed up with the provider but never redeemed an invitation
	default:
		return authctx.Session{}, err
	}
	return sess, nil
}
