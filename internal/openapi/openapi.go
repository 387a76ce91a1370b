// Package openapi builds the OpenAPI 3.1 document for the document API and
// serves it at /openapi.json.
package openapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// Document generates the OpenAPI 3.1 spec for the API.
func Document() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "GPT Object Store API",
			Description: "Multi-tenant JSON document storage for custom GPTs. Collections of schemaless JSON objects, keyset-paginated, authenticated with per-GPT API keys.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: "/"},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:   "http",
			Scheme: "bearer",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
	}

	doc.Components.Schemas["Problem"] = problemSchema()
	doc.Components.Schemas["Collection"] = collectionSchema()
	doc.Components.Schemas["Object"] = objectSchema()
	doc.Components.Schemas["CollectionPage"] = pageSchema("#/components/schemas/Collection")
	doc.Components.Schemas["ObjectPage"] = pageSchema("#/components/schemas/Object")

	doc.Paths = openapi3.NewPaths()
	addCollectionPaths(doc)
	addObjectPaths(doc)

	return doc
}

var (
	docOnce sync.Once
	docJSON []byte
)

// Serve writes the spec as JSON. The document is rendered once and cached for
// the life of the process.
func Serve(w http.ResponseWriter, r *http.Request) {
	docOnce.Do(func() {
		docJSON, _ = json.Marshal(Document())
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(docJSON)
}

func addCollectionPaths(doc *openapi3.T) {
	base := "/v1/gpts/{gptId}/collections"
	colRef := "#/components/schemas/Collection"
	pageRef := "#/components/schemas/CollectionPage"

	doc.Paths.Set(base, &openapi3.PathItem{
		Parameters: openapi3.Parameters{gptParam()},
		Get: &openapi3.Operation{
			Tags:        []string{"collections"},
			Summary:     "List collections",
			Description: "Retrieve the GPT's collections, keyset-paginated over (created_at, id).",
			OperationID: "list_collections",
			Parameters:  listQueryParameters(),
			Responses:   newResponses("200", "A page of collections", openapi3.NewSchemaRef(pageRef, nil)),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"collections"},
			Summary:     "Create or update a collection",
			Description: "Create a collection, or replace the schema of an existing one with the same name.",
			OperationID: "upsert_collection",
			RequestBody: jsonBody("Collection to create", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type:     &openapi3.Types{"object"},
					Required: []string{"name"},
					Properties: openapi3.Schemas{
						"name":   stringProp("Collection name, unique within the GPT."),
						"schema": objectProp("Optional JSON Schema describing objects in this collection."),
					},
				},
			}),
			Responses: newResponses("201", "The stored collection", openapi3.NewSchemaRef(colRef, nil)),
		},
	})

	doc.Paths.Set(base+"/{collection}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{gptParam(), collectionParam()},
		Get: &openapi3.Operation{
			Tags:        []string{"collections"},
			Summary:     "Get a collection",
			OperationID: "get_collection",
			Responses:   newResponses("200", "The collection", openapi3.NewSchemaRef(colRef, nil)),
		},
		Patch: &openapi3.Operation{
			Tags:        []string{"collections"},
			Summary:     "Update a collection's schema",
			OperationID: "update_collection_schema",
			RequestBody: jsonBody("New schema", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"schema": objectProp("JSON Schema describing objects in this collection."),
					},
				},
			}),
			Responses: newResponses("200", "The updated collection", openapi3.NewSchemaRef(colRef, nil)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"collections"},
			Summary:     "Delete a collection and its objects",
			OperationID: "delete_collection",
			Responses:   newResponses("204", "Deleted", nil),
		},
	})
}

func addObjectPaths(doc *openapi3.T) {
	base := "/v1/gpts/{gptId}/collections/{collection}/objects"
	objRef := "#/components/schemas/Object"
	pageRef := "#/components/schemas/ObjectPage"

	doc.Paths.Set(base, &openapi3.PathItem{
		Parameters: openapi3.Parameters{gptParam(), collectionParam()},
		Get: &openapi3.Operation{
			Tags:        []string{"objects"},
			Summary:     "List objects",
			Description: "Retrieve the collection's objects, newest first by default. Follow next_cursor (or the Link header) for subsequent pages.",
			OperationID: "list_objects",
			Parameters:  listQueryParameters(),
			Responses:   newResponses("200", "A page of objects", openapi3.NewSchemaRef(pageRef, nil)),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"objects"},
			Summary:     "Create an object",
			OperationID: "create_object",
			RequestBody: jsonBody("Arbitrary JSON document", &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"object"}},
			}),
			Responses: newResponses("201", "The stored object", openapi3.NewSchemaRef(objRef, nil)),
		},
	})

	doc.Paths.Set(base+"/{objectId}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{gptParam(), collectionParam(), objectParam()},
		Get: &openapi3.Operation{
			Tags:        []string{"objects"},
			Summary:     "Get an object",
			OperationID: "get_object",
			Responses:   newResponses("200", "The object", openapi3.NewSchemaRef(objRef, nil)),
		},
		Put: &openapi3.Operation{
			Tags:        []string{"objects"},
			Summary:     "Replace an object's body",
			OperationID: "update_object",
			RequestBody: jsonBody("Replacement JSON document", &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"object"}},
			}),
			Responses: newResponses("200", "The updated object", openapi3.NewSchemaRef(objRef, nil)),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"objects"},
			Summary:     "Delete an object",
			OperationID: "delete_object",
			Responses:   newResponses("204", "Deleted", nil),
		},
	})
}

// ─── Schema Builders ────────────────────────────────────────────────────────

func problemSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "RFC 9457 problem details.",
			Properties: openapi3.Schemas{
				"type":     stringProp("Problem type URI."),
				"title":    stringProp("Short human-readable summary."),
				"status":   {Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
				"detail":   stringProp("Explanation specific to this occurrence."),
				"instance": stringProp("Request path that produced the problem."),
			},
		},
	}
}

func collectionSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":         {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
				"gpt_id":     stringProp("Owning GPT."),
				"name":       stringProp("Collection name."),
				"schema":     objectProp("Optional JSON Schema for objects."),
				"created_at": {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				"updated_at": {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
			},
		},
	}
}

func objectSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":         {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}},
				"gpt_id":     stringProp("Owning GPT."),
				"collection": stringProp("Owning collection."),
				"body":       objectProp("The stored JSON document."),
				"created_at": {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				"updated_at": {Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
			},
		},
	}
}

func pageSchema(itemRef string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"items": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef(itemRef, nil),
					},
				},
				"next_cursor": stringProp("Opaque cursor for the next page. Absent on the final page."),
				"has_more":    {Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
			},
		},
	}
}

func stringProp(desc string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: desc}}
}

func objectProp(desc string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}, Description: desc}}
}

// ─── Parameter Builders ─────────────────────────────────────────────────────

func gptParam() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("gptId").
			WithDescription("GPT identifier; must match the authenticated key's GPT.").
			WithSchema(openapi3.NewStringSchema()),
	}
}

func collectionParam() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("collection").
			WithDescription("Collection name.").
			WithSchema(openapi3.NewStringSchema()),
	}
}

func objectParam() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("objectId").
			WithDescription("Object UUID.").
			WithSchema(&openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "uuid"}),
	}
}

func listQueryParameters() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("limit").
				WithDescription("Page size, 1-200. Defaults to 50.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("order").
				WithDescription("Traversal direction: \"asc\" or \"desc\" (default). Ignored when a cursor is supplied.").
				WithSchema(openapi3.NewStringSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("cursor").
				WithDescription("Opaque continuation token from a previous page.").
				WithSchema(openapi3.NewStringSchema()),
		},
	}
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// jsonBody builds a required JSON request body with the given description and
// schema.
func jsonBody(desc string, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(desc).
			WithRequired(true).
			WithContent(openapi3.NewContentWithJSONSchemaRef(schema)),
	}
}

// newResponses builds a success response plus the standard problem responses.
// A nil schema produces a bodyless success (204).
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	success := &openapi3.Response{Description: &successDesc}
	if schema != nil {
		success.Content = openapi3.NewContentWithJSONSchemaRef(schema)
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: success})

	problemRef := openapi3.NewSchemaRef("#/components/schemas/Problem", nil)
	for code, desc := range map[string]string{
		"400": "Invalid request or cursor",
		"401": "Missing or invalid credentials",
		"404": "Resource not found",
		"429": "Rate limit exceeded",
		"500": "Internal server error",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.Content{"application/problem+json": &openapi3.MediaType{Schema: problemRef}},
			},
		})
	}

	return responses
}
