package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gptstore/gptstore/internal/model"
	"github.com/gptstore/gptstore/internal/pagination"
	"github.com/gptstore/gptstore/internal/problem"
	"github.com/gptstore/gptstore/internal/store"
)

// ObjectHandler serves the document CRUD and listing endpoints.
type ObjectHandler struct {
	store  *store.Store
	limits pagination.Limits
	logger *slog.Logger
}

// NewObjectHandler wires an ObjectHandler.
func NewObjectHandler(st *store.Store, limits pagination.Limits, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{store: st, limits: limits, logger: logger}
}

// scope pulls the tenant and collection out of the path and verifies both:
// the tenant against the principal, the collection against storage.
func (h *ObjectHandler) scope(w http.ResponseWriter, r *http.Request) (gptID, collection string, ok bool) {
	gptID = chi.URLParam(r, "gptID")
	if !tenantFromPath(w, r, gptID) {
		return "", "", false
	}
	collection = chi.URLParam(r, "collection")
	if _, err := h.store.GetCollection(r.Context(), gptID, collection); err != nil {
		failStore(w, r, h.logger, err, "collection not found")
		return "", "", false
	}
	return gptID, collection, true
}

// Create stores a new document.
// POST /v1/gpts/{gptID}/collections/{collection}/objects
func (h *ObjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	gptID, collection, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body json.RawMessage
	if err := readJSON(r, &body); err != nil || len(body) == 0 {
		problem.Write(w, r, problem.Validation("request body is not valid JSON"))
		return
	}

	o := &model.Object{TenantID: gptID, Collection: collection, Body: body}
	if err := h.store.InsertObject(r.Context(), o); err != nil {
		failStore(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// List returns a page of a collection's documents, newest first by default.
// GET /v1/gpts/{gptID}/collections/{collection}/objects
func (h *ObjectHandler) List(w http.ResponseWriter, r *http.Request) {
	gptID, collection, ok := h.scope(w, r)
	if !ok {
		return
	}

	params, err := pagination.ParseParams(r.URL.Query(), h.limits)
	if err != nil {
		failParams(w, r, err)
		return
	}

	// The fingerprint binds cursors to this exact listing scope; a cursor
	// minted for one collection cannot continue a traversal in another.
	fp := pagination.Fingerprint(map[string]string{"gpt": gptID, "collection": collection})

	win := store.Window{Order: params.Order, Limit: params.Limit + 1}
	if params.Cursor != "" {
		pos, order, err := pagination.Decode(params.Cursor, fp)
		if err != nil {
			failParams(w, r, err)
			return
		}
		// The cursor's direction wins over the order parameter: a traversal
		// keeps the direction it started with.
		win.Boundary, win.Order = &pos, order
	}

	rows, err := h.store.ListObjects(r.Context(), gptID, collection, win)
	if err != nil {
		failStore(w, r, h.logger, err, "")
		return
	}

	items, next, hasMore := pagination.Paginate(rows, params.Limit, win.Order, fp)
	if hasMore {
		w.Header().Set("Link", pagination.LinkHeader(r.URL.Path, r.URL.Query(), next))
	}
	writeJSON(w, http.StatusOK, model.Page[model.Object]{Items: items, NextCursor: next, HasMore: hasMore})
}

// Get returns one document.
// GET /v1/gpts/{gptID}/collections/{collection}/objects/{objectID}
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	gptID, collection, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.objectID(w, r)
	if !ok {
		return
	}

	o, err := h.store.GetObject(r.Context(), gptID, collection, id)
	if err != nil {
		failStore(w, r, h.logger, err, "object not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Update replaces a document's body.
// PUT /v1/gpts/{gptID}/collections/{collection}/objects/{objectID}
func (h *ObjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	gptID, collection, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.objectID(w, r)
	if !ok {
		return
	}

	var body json.RawMessage
	if err := readJSON(r, &body); err != nil || len(body) == 0 {
		problem.Write(w, r, problem.Validation("request body is not valid JSON"))
		return
	}

	o := &model.Object{ID: id, TenantID: gptID, Collection: collection, Body: body}
	if err := h.store.UpdateObject(r.Context(), o); err != nil {
		failStore(w, r, h.logger, err, "object not found")
		return
	}

	stored, err := h.store.GetObject(r.Context(), gptID, collection, id)
	if err != nil {
		failStore(w, r, h.logger, err, "object not found")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// Delete removes one document.
// DELETE /v1/gpts/{gptID}/collections/{collection}/objects/{objectID}
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	gptID, collection, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := h.objectID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteObject(r.Context(), gptID, collection, id); err != nil {
		failStore(w, r, h.logger, err, "object not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ObjectHandler) objectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "objectID"))
	if err != nil {
		problem.Write(w, r, problem.Validation("object id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
