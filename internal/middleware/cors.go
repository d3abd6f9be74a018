package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS adds cross-origin headers for the browser client.
//
// allowedOrigins is the list from config. "*" allows any origin; otherwise
// only listed origins are echoed back. Preflight requests are answered with
// 204 and never reach the router.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:       normalizeOrigins(allowedOrigins),
		AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:       []string{"Authorization", "Content-Type", "email"},
		OptionsSuccessStatus: http.StatusNoContent,
		MaxAge:               300,
	})
}

// normalizeOrigins trims blanks and trailing slashes from configured origins.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
