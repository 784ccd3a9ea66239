package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// DefaultMaxUploadBytes caps the uploaded file.
const DefaultMaxUploadBytes = 25 << 20

const (
	maxFormFields      = 20
	maxFieldBytes      = 10 << 10
	multipartSlack     = 1 << 20
	uploadFileField    = "file"
	collectionField    = "collectionId"
	collectionAltField = "collection_id"
)

// Handler serves the admin surface of the gallery service.
type Handler struct {
	service        simplegallery.Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMaxUploadBytes sets the largest accepted upload file.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandler creates a new gallery handler
func NewHandler(service simplegallery.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:        service,
		logger:         slog.Default(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ImageRoutes returns the router for image endpoints
func (h *Handler) ImageRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.UploadImage)
	r.Get("/", h.ListImages)
	r.Get("/{id}", h.GetImage)
	r.Put("/{id}", h.UpdateImage)
	r.Delete("/{id}", h.DeleteImage)
	return r
}

// CollectionRoutes returns the router for collection endpoints
func (h *Handler) CollectionRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCollections)
	r.Post("/", h.CreateCollection)
	r.Get("/{id}", h.GetCollection)
	r.Put("/{id}", h.UpdateCollection)
	r.Delete("/{id}", h.DeleteCollection)
	return r
}

// Routes mounts both resource routers.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware, LoggingMiddleware(h.logger), RecoveryMiddleware(h.logger))
	r.Mount("/images", h.ImageRoutes())
	r.Mount("/collections", h.CollectionRoutes())
	return r
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return badRequest("request body is not valid JSON")
	}
	return nil
}
