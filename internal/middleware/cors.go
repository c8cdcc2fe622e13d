package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// CORS allows the configured origins. An empty list allows any origin
// without credentials.
func CORS(allowedOrigins []string, log *zap.Logger) func(http.Handler) http.Handler {
	if log != nil {
		log.Info("cors allowed origins", zap.Strings("origins", allowedOrigins))
	}

	credentials := true
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
		credentials = false
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Content-Disposition"},
		AllowCredentials: credentials,
		MaxAge:           300,
	})
}
