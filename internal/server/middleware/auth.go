package middleware

import (
	"net/http"

	"git.home.luguber.info/inful/sitepublisher/internal/auth"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/observability"
)

// RequireAuth rejects requests without a valid bearer token. A nil verifier disables the
// check. CORS preflight requests pass through unauthenticated.
func RequireAuth(verifier *auth.Verifier, adapter *errors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="sitepublisher"`)
				adapter.WriteErrorResponse(w, r, err)
				return
			}
			ctx := observability.WithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
