package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKindStatusMapping(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindValidation, http.StatusBadRequest},
		{KindInvalidCursor, http.StatusBadRequest},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		p := New(tc.kind, "x")
		if p.Status != tc.status {
			t.Errorf("%s: got status %d, want %d", tc.kind, p.Status, tc.status)
		}
		if p.Type == "" || p.Title == "" {
			t.Errorf("%s: type and title must be set", tc.kind)
		}
	}
}

func TestWriteSetsMediaTypeAndInstance(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/v1/gpts/g1/collections", nil)

	Write(rr, r, NotFound("collection not found"))

	if ct := rr.Header().Get("Content-Type"); ct != ContentType {
		t.Errorf("Content-Type: got %q, want %q", ct, ContentType)
	}
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["instance"] != "/v1/gpts/g1/collections" {
		t.Errorf("instance: got %v", body["instance"])
	}
	if body["detail"] != "collection not found" {
		t.Errorf("detail: got %v", body["detail"])
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/v1/gpts/g1/collections", nil)

	Write(rr, r, RateLimited(7))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "7" {
		t.Errorf("Retry-After: got %q, want 7", got)
	}

	// Sub-second waits still advertise a full second.
	if p := RateLimited(0); p.RetryAfter != 1 {
		t.Errorf("RetryAfter floor: got %d, want 1", p.RetryAfter)
	}
}

func TestInternalHidesDetail(t *testing.T) {
	p := Internal()
	if p.Detail == "" {
		t.Fatal("internal problems carry a generic detail")
	}
	if p.Detail != Internal().Detail {
		t.Fatal("internal detail must be constant")
	}
}
