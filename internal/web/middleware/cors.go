package middleware

import (
	"net/http"
	"os"
	"strings"
)

// CORS grants cross-origin access to the origins listed in the
// ADMIN_ALLOWED_ORIGINS environment variable (comma separated).
// Localhost origins on any port are always accepted so a locally served
// admin UI works without configuration.
func CORS() func(http.Handler) http.Handler {
	allowed := allowedOrigins(os.Getenv("ADMIN_ALLOWED_ORIGINS"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); originAllowed(origin, allowed) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowedOrigins(env string) map[string]bool {
	allowed := make(map[string]bool)
	for _, origin := range strings.Split(env, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}
	return allowed
}

func originAllowed(origin string, allowed map[string]bool) bool {
	if origin == "" {
		return false
	}
	if allowed[origin] {
		return true
	}
	host, ok := strings.CutPrefix(origin, "http://")
	if !ok {
		host, ok = strings.CutPrefix(origin, "https://")
	}
	if !ok {
		return false
	}
	return host == "localhost" || strings.HasPrefix(host, "localhost:")
}
