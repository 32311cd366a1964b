package middleware

import (
	"net/http"
	"slices"

	"showtime-booking/pkg/utils"

	"github.com/go-chi/cors"
)

// CORS applies the configured origin policy. Browsers reject a literal "*"
// on credentialed requests, so with credentials on a "*" entry allows every
// origin by echoing it back.
func CORS(config utils.CORSConfig) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	}

	if config.AllowCredentials && slices.Contains(config.AllowedOrigins, "*") {
		options.AllowedOrigins = nil
		options.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}

	return cors.Handler(options)
}
