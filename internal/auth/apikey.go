// Package auth provides API key authentication middleware for the HTTP
// surface.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// APIKeyHeader is the header carrying the API key.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware validates the X-API-Key header against the configured
// key. An empty configured key disables authentication; development setups
// run open.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "invalid or missing API key",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
