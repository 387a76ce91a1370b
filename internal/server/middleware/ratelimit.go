package middleware

import (
	"net"
	"net/http"

	"github.com/gptstore/gptstore/internal/problem"
	"github.com/gptstore/gptstore/internal/ratelimit"
)

// RateLimitIP enforces the per-source-address quota. It runs before
// authentication so key-less abuse is bounded regardless of whether tenant
// resolution succeeds.
func RateLimitIP(adm ratelimit.Admitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := adm.Admit(clientIP(r), ratelimit.ClassIP)
			if !res.Allowed {
				problem.Write(w, r, problem.RateLimited(res.RetrySeconds()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitKey enforces the per-credential quotas for an authenticated
// request: the read bucket on every request, and additionally the stricter
// write bucket on mutating verbs. Both must admit.
func RateLimitKey(adm ratelimit.Admitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := Principal(r.Context())
			if p == nil {
				// Must be chained after Authenticate.
				problem.Write(w, r, problem.Internal())
				return
			}

			res := adm.Admit(p.KeyFingerprint, ratelimit.ClassKey)
			if res.Allowed && isWrite(r.Method) {
				res = adm.Admit(p.KeyFingerprint, ratelimit.ClassWrite)
			}
			if !res.Allowed {
				problem.Write(w, r, problem.RateLimited(res.RetrySeconds()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// clientIP is the rate-limit subject for the address bucket. RealIP runs
// earlier in the chain, so RemoteAddr already reflects forwarding headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
