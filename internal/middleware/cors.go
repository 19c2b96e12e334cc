package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
)

// CORSHandler returns a configured CORS handler for Chi
func CORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type", HeaderRequestID,
			envelope.HeaderTimestamp, envelope.HeaderNonce, envelope.HeaderSignature,
		},
		ExposedHeaders:   []string{"Link", "X-Total-Count", HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})
}
