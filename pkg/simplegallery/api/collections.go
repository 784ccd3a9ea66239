package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// CascadeResponse reports a collection delete.
type CascadeResponse struct {
	CollectionID  string   `json:"collection_id"`
	DeletedImages int      `json:"deleted_images"`
	FailedImages  []string `json:"failed_images"`
}

// ListCollections lists collections by sort order.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := h.service.ListCollections(r.Context())
	if err != nil {
		h.renderError(w, r, "list_collections", err)
		return
	}
	render.JSON(w, r, ListResponse[*simplegallery.Collection]{Items: cols, Count: len(cols)})
}

// CreateCollection creates a collection.
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req simplegallery.CreateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderError(w, r, "create_collection", err)
		return
	}
	col, err := h.service.CreateCollection(r.Context(), req)
	if err != nil {
		h.renderError(w, r, "create_collection", err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, col)
}

// GetCollection returns one collection.
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	col, err := h.service.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, "get_collection", err)
		return
	}
	render.JSON(w, r, col)
}

// UpdateCollection applies a partial collection update.
func (h *Handler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	var req simplegallery.UpdateCollectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderError(w, r, "update_collection", err)
		return
	}
	col, err := h.service.UpdateCollection(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.renderError(w, r, "update_collection", err)
		return
	}
	render.JSON(w, r, col)
}

// DeleteCollection removes a collection and everything in it. File removal
// failures are listed in the response but do not fail the request.
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.DeleteCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, "delete_collection", err)
		return
	}
	render.JSON(w, r, CascadeResponse{
		CollectionID:  report.CollectionID,
		DeletedImages: report.DeletedImages,
		FailedImages:  report.FailedImages(),
	})
}
