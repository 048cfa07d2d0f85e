package core

import (
	"fmt"
	"net/http"
	"strings"
)

// CORSMiddleware handles preflight (OPTIONS) requests and adds CORS headers
// for allowed origins. The storefront serves same-origin HTML, so this only
// matters when another site embeds or posts to it.
//
// Supported origin patterns:
//   - "*" for all origins
//   - "*.example.com" or "https://*.example.com" for subdomains
//   - "http://localhost:*" for any port
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ApplyCORS(w, r, config)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ApplyCORS writes CORS headers for r when its origin is allowed.
func ApplyCORS(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	if !config.Enabled {
		return
	}

	origin := r.Header.Get("Origin")
	if !isOriginAllowed(origin, config.AllowedOrigins) {
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Add("Vary", "Origin")
	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
	}
	if len(config.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
	}
	if config.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", fmt.Sprintf("%d", config.MaxAge))
	}
}

// isOriginAllowed matches origin against the configured patterns.
// An empty origin (same-origin request) is never matched.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*", allowed == origin:
			return true

		case strings.Contains(allowed, "*."):
			idx := strings.Index(allowed, "*.")
			prefix, suffix := allowed[:idx], allowed[idx+1:] // suffix keeps the dot
			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				// the wildcard must cover a non-empty subdomain label
				if len(origin) > len(prefix)+len(suffix) {
					return true
				}
			}

		case strings.HasSuffix(allowed, ":*"):
			if strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) {
				return true
			}
		}
	}

	return false
}
