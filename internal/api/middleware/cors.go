package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows browser frontends on the given origins. "*" allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowAny := false
	for _, o := range origins {
		if o == "*" {
			allowAny = true
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !allowAny,
		MaxAge:           300,
	})
}
