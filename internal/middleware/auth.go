package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/httpjson"
)

// SessionResolver verifies a bearer ID token.
type SessionResolver interface {
	Resolve(ctx context.Context, idToken string) (authctx.Session, error)
}

// WithAuth rejects requests without a valid bearer token and puts the
// resolved session on the request context.
func WithAuth(resolver SessionResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idToken, ok := bearerToken(r)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, "missing Authorization: Bearer <token>")
				return
			}

			sess, err := resolver.Resolve(r.Context(), idToken)
			if err != nil {
				if apperr.IsErrUnauthenticated(err) {
					httpjson.Error(w, http.StatusUnauthorized, "invalid token")
					return
				}
				logger.Error("session lookup failed", zap.Error(err))
				httpjson.Error(w, http.StatusBadGateway, "could not verify session")
				return
			}

			next.ServeHTTP(w, r.WithContext(authctx.WithSession(r.Context(), sess)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}
