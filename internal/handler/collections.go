// Package handler implements the REST surface of the document API:
// tenant-scoped collections and objects with seek pagination.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/pagination"
	"github.com/gptstore/gptstore/internal/problem"
	"github.com/gptstore/gptstore/internal/store"
)

// CollectionHandler serves the collection management endpoints.
type CollectionHandler struct {
	store  *store.Store
	limits pagination.Limits
	logger *slog.Logger
}

// NewCollectionHandler wires a CollectionHandler.
func NewCollectionHandler(st *store.Store, limits pagination.Limits, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{store: st, limits: limits, logger: logger}
}

type collectionRequest struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Upsert creates a collection or replaces the schema of an existing one.
// POST /v1/gpts/{gptID}/collections
func (h *CollectionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	gptID := chi.URLParam(r, "gptID")
	if !tenantFromPath(w, r, gptID) {
		return
	}

	var req collectionRequest
	if err := readJSON(r, &req); err != nil {
		problem.Write(w, r, problem.Validation("request body is not valid JSON"))
		return
	}
	if req.Name == "" {
		problem.Write(w, r, problem.Validation("collection name is required"))
		return
	}

	c, err := h.store.UpsertCollection(r.Context(), &model.Collection{
		TenantID: gptID,
		Name:     req.Name,
		Schema:   req.Schema,
	})
	if err != nil {
		failStore(w, r, h.logger, err, "collection not found")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List returns a page of the tenant's collections.
// GET /v1/gpts/{gptID}/collections
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	gptID := chi.URLParam(r, "gptID")
	if !tenantFromPath(w, r, gptID) {
		return
	}

	params, err := pagination.ParseParams(r.URL.Query(), h.limits)
	if err != nil {
		failParams(w, r, err)
		return
	}
	fp := pagination.Fingerprint(map[string]string{"gpt": gptID})

	win := store.Window{Order: params.Order, Limit: params.Limit + 1}
	if params.Cursor != "" {
		pos, order, err := pagination.Decode(params.Cursor, fp)
		if err != nil {
			failParams(w, r, err)
			return
		}
		win.Boundary, win.Order = &pos, order
	}

	rows, err := h.store.ListCollections(r.Context(), gptID, win)
	if err != nil {
		failStore(w, r, h.logger, err, "")
		return
	}

	items, next, hasMore := pagination.Paginate(rows, params.Limit, win.Order, fp)
	if hasMore {
		w.Header().Set("Link", pagination.LinkHeader(r.URL.Path, r.URL.Query(), next))
	}
	writeJSON(w, http.StatusOK, model.Page[model.Collection]{Items: items, NextCursor: next, HasMore: hasMore})
}

// Get returns one collection by name.
// GET /v1/gpts/{gptID}/collections/{collection}
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	gptID := chi.URLParam(r, "gptID")
	if !tenantFromPath(w, r, gptID) {
		return
	}

	c, err := h.store.GetCollection(r.Context(), gptID, chi.URLParam(r, "collection"))
	if err != nil {
		failStore(w, r, h.logger, err, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateSchema replaces the schema of an existing collection.
// PATCH /v1/gpts/{gptID}/collections/{collection}
func (h *CollectionHandler) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	gptID := chi.URLParam(r, "gptID")
	if !tenantFromPath(w, r, gptID) {
		return
	}

	var req struct {
		Schema json.RawMessage `json:"schema"`
	}
	if err := readJSON(r, &req); err != nil {
		problem.Write(w, r, problem.Validation("request body is not valid JSON"))
		return
	}

	c, err := h.store.UpdateCollectionSchema(r.Context(), gptID, chi.URLParam(r, "collection"), req.Schema)
	if err != nil {
		failStore(w, r, h.logger, err, "collection not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete removes a collection and everything in it.
// DELETE /v1/gpts/{gptID}/collections/{collection}
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gptID := chi.URLParam(r, "gptID")
	if !tenantFromPath(w, r, gptID) {
		return
	}

	if err := h.store.DeleteCollection(r.Context(), gptID, chi.URLParam(r, "collection")); err != nil {
		failStore(w, r, h.logger, err, "collection not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
