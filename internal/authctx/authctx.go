// Package authctx carries the caller's session. Services take a Session
// argument; the context helpers only bridge HTTP middleware to handlers.
package authctx

import (
	"context"
)

const (
	RoleAdmin    = "admin"
	RoleResident = "resident"
)

type Session struct {
	UID     string
	Email   string
	Role    string
	IDToken string
}

func (s Session) Authenticated() bool {
	return s.UID != ""
}

func (s Session) IsAdmin() bool {
	return s.UID != "" && s.Role == RoleAdmin
}

type ctxKey string

const sessionKey ctxKey = "session"

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok && s.UID != ""
}
