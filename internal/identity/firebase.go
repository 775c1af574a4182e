package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

var _ Provider = (*Firebase)(nil)

// Firebase uses the Admin SDK for account management and token checks, and
// the Identity Toolkit REST API for password sign-in, which the Admin SDK
// does not offer.
type Firebase struct {
	auth    *auth.Client
	toolkit *identitytoolkit.Service
}

func NewFirebase(authClient *auth.Client, toolkit *identitytoolkit.Service) *Firebase {
	return &Firebase{auth: authClient, toolkit: toolkit}
}

// NewToolkit returns nil when no web API key is configured; SignIn then
// fails with ErrProvider.
func NewToolkit(ctx context.Context, apiKey string) (*identitytoolkit.Service, error) {
	if apiKey == "" {
		return nil, nil
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("identity toolkit: %w", err)
	}
	return svc, nil
}

func (f *Firebase) CreateAccount(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	u, err := f.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", fmt.Errorf("%w: %s", ErrEmailExists, email)
		}
		return "", fmt.Errorf("%w: create user: %v", ErrProvider, err)
	}
	return u.UID, nil
}

func (f *Firebase) DeleteAccount(ctx context.Context, uid string) error {
	if err := f.auth.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: delete user: %v", ErrProvider, err)
	}
	return nil
}

func (f *Firebase) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	if f.toolkit == nil {
		return Credentials{}, fmt.Errorf("%w: password sign-in is not configured", ErrProvider)
	}
	resp, err := f.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
			return Credentials{}, ErrInvalidCredentials
		}
		return Credentials{}, fmt.Errorf("%w: verify password: %v", ErrProvider, err)
	}
	return Credentials{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

func (f *Firebase) SignOut(ctx context.Context, uid string) error {
	if err := f.auth.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("%w: revoke tokens: %v", ErrProvider, err)
	}
	return nil
}

func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (Token, error) {
	tok, err := f.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	out := Token{UID: tok.UID, Claims: tok.Claims}
	if v, ok := tok.Claims["email"].(string); ok {
		out.Email = v
	}
	return out, nil
}
