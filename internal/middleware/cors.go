package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func CORS(allowedOrigins []string, logger *zap.Logger) func(http.Handler) http.Handler {
	// empty means any origin, for local development
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if logger != nil {
		logger.Info("cors configured", zap.Strings("allowed_origins", allowedOrigins))
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
