package openapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestDocumentCoversRoutes(t *testing.T) {
	doc := Document()

	wantPaths := []string{
		"/v1/gpts/{gptId}/collections",
		"/v1/gpts/{gptId}/collections/{collection}",
		"/v1/gpts/{gptId}/collections/{collection}/objects",
		"/v1/gpts/{gptId}/collections/{collection}/objects/{objectId}",
	}
	for _, p := range wantPaths {
		if doc.Paths.Value(p) == nil {
			t.Errorf("path %s missing from document", p)
		}
	}

	if doc.Components.SecuritySchemes["bearerAuth"] == nil {
		t.Error("bearerAuth security scheme missing")
	}
	for _, s := range []string{"Problem", "Collection", "Object", "CollectionPage", "ObjectPage"} {
		if doc.Components.Schemas[s] == nil {
			t.Errorf("component schema %s missing", s)
		}
	}
}

func TestServe(t *testing.T) {
	rec := httptest.NewRecorder()
	Serve(rec, httptest.NewRequest("GET", "/openapi.json", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		OpenAPI string `json:"openapi"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.OpenAPI != "3.1.0" {
		t.Errorf("openapi version = %q, want 3.1.0", body.OpenAPI)
	}
}
