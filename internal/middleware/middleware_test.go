package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
)

type resolverFunc func(ctx context.Context, idToken string) (authctx.Session, error)

func (f resolverFunc) Resolve(ctx context.Context, idToken string) (authctx.Session, error) {
	return f(ctx, idToken)
}

func TestWithAuth(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, tok string) (authctx.Session, error) {
		switch tok {
		case "good":
			return authctx.Session{UID: "u1", Role: authctx.RoleResident, IDToken: tok}, nil
		case "down":
			return authctx.Session{}, errors.New("provider unreachable")
		}
		return authctx.Session{}, apperr.ErrUnauthenticated
	})

	var seen authctx.Session
	h := WithAuth(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authctx.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", want: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic dTpw", want: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer   ", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "provider down", header: "Bearer down", want: http.StatusBadGateway},
		{name: "lower-case scheme", header: "bearer good", want: http.StatusNoContent},
		{name: "ok", header: "Bearer good", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = authctx.Session{}
			r := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "u1", seen.UID)
			} else {
				assert.Empty(t, seen.UID)
			}
		})
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mw := RequestLogger(zap.New(core))

	for _, status := range []int{http.StatusOK, http.StatusConflict, http.StatusServiceUnavailable} {
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/facilities/gym/bookings", nil))
	}

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
		assert.EqualValues(t, http.StatusConflict, entries[1].ContextMap()["status"])
		assert.Equal(t, "/v1/facilities/gym/bookings", entries[0].ContextMap()["path"])
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://app.resitrack.example"}, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodOptions, "/v1/maintenance/cycles", nil)
	r.Header.Set("Origin", "https://app.resitrack.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "https://app.resitrack.example", w.Header().Get("Access-Control-Allow-Origin"))
}
