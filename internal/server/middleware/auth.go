package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gptstore/gptstore/internal/auth"
	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/problem"
)

// principalKey is the context key for the resolved principal.
const principalKey contextKey = "principal"

// Authenticate resolves the Authorization header into a Principal and
// attaches it to the request context. Any resolution failure ends the
// request with a 401 problem; nothing downstream runs unauthenticated.
func Authenticate(resolver *auth.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolver.Resolve(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, problem.Unauthenticated(authDetail(err)))
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal extracts the authenticated principal from the context. Nil means
// the request never passed Authenticate.
func Principal(ctx context.Context) *model.Principal {
	if p, ok := ctx.Value(principalKey).(*model.Principal); ok {
		return p
	}
	return nil
}

// authDetail picks the client-facing detail string for a resolution failure.
// Revoked and expired keys are deliberately not distinguished from unknown
// ones.
func authDetail(err error) string {
	if errors.Is(err, auth.ErrUnsupportedCredential) {
		return "This credential kind is not supported yet."
	}
	return "Authentication required. Provide 'Authorization: Bearer <api-key>'."
}
