package middleware

import (
	"net/http"
	"strings"
)

// CORS sets the cross-origin headers on every response of the wrapped routes. The editor
// UI is served from another origin than the publish function.
func CORS(methods []string, allowAuthorization bool) func(http.Handler) http.Handler {
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := "Content-Type"
	if allowAuthorization {
		allowHeaders += ", Authorization"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			next.ServeHTTP(w, r)
		})
	}
}
