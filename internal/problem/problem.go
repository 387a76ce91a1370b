// Package problem implements RFC 9457 problem-details error reporting. Every
// failure surfaced by the API is converted into a Problem at the HTTP boundary;
// no raw internal error ever reaches a response body.
package problem

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ContentType is the media type for problem-details responses.
const ContentType = "application/problem+json"

// Kind enumerates the failure taxonomy. Each kind maps to exactly one HTTP
// status and title.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation-error"
	KindInvalidCursor   Kind = "invalid-cursor"
	KindRateLimited     Kind = "rate-limited"
	KindNotFound        Kind = "not-found"
	KindInternal        Kind = "internal"
)

// Problem is the structured error body defined by RFC 9457. It is immutable
// once constructed and serialized exactly once at the response boundary.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// RetryAfter, in seconds, drives the Retry-After header for rate-limit
	// rejections. It is not part of the JSON body.
	RetryAfter int `json:"-"`
}

// Error implements the error interface so a Problem can travel through
// error-returning call chains before being written.
func (p Problem) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// statusFor maps a kind to its HTTP status and human title.
func statusFor(k Kind) (int, string) {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized, "Unauthorized"
	case KindForbidden:
		return http.StatusForbidden, "Forbidden"
	case KindValidation, KindInvalidCursor:
		return http.StatusBadRequest, "Bad Request"
	case KindRateLimited:
		return http.StatusTooManyRequests, "Too Many Requests"
	case KindNotFound:
		return http.StatusNotFound, "Not Found"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// New builds a Problem for the given kind. The type URI is derived from the
// kind; "about:blank" is deliberately avoided so clients can dispatch on type.
func New(k Kind, detail string) Problem {
	status, title := statusFor(k)
	return Problem{
		Type:   "https://gptstore.dev/problems/" + string(k),
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// Unauthenticated reports a missing, malformed, or unknown credential.
func Unauthenticated(detail string) Problem {
	return New(KindUnauthenticated, detail)
}

// Validation reports a malformed request parameter or body.
func Validation(detail string) Problem {
	return New(KindValidation, detail)
}

// InvalidCursor reports a cursor that failed to decode or that was issued
// under different filter parameters.
func InvalidCursor(detail string) Problem {
	return New(KindInvalidCursor, detail)
}

// RateLimited reports bucket exhaustion. retryAfter is clamped to at least
// one second per the wire contract.
func RateLimited(retryAfter int) Problem {
	if retryAfter < 1 {
		retryAfter = 1
	}
	p := New(KindRateLimited, "Rate limit exceeded. Retry after the indicated number of seconds.")
	p.RetryAfter = retryAfter
	return p
}

// NotFound reports an absent resource for the resolved tenant. Tenant
// mismatches use the same kind so existence of other tenants' resources is
// never confirmed.
func NotFound(detail string) Problem {
	return New(KindNotFound, detail)
}

// Internal reports an unexpected collaborator failure. The client always sees
// the same generic detail; the triggering error must be logged by the caller.
func Internal() Problem {
	return New(KindInternal, "An unexpected error occurred.")
}

// Write serializes p as the sole response body with the problem media type.
// The instance field is filled from the request path if not already set.
func Write(w http.ResponseWriter, r *http.Request, p Problem) {
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", ContentType)
	if p.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(p.RetryAfter))
	}
	w.WriteHeader(p.Status)
	json.NewEncoder(w).Encode(p)
}
