package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// requestError is a transport-level rejection that never reaches the core.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, message: message}
}

func tooLarge() error {
	return &requestError{status: http.StatusRequestEntityTooLarge, message: "upload exceeds the size limit"}
}

// HTTPStatus maps an error returned by the gallery service to a status code.
func HTTPStatus(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status
	}
	switch {
	case errors.Is(err, simplegallery.ErrPathTraversal),
		errors.Is(err, simplegallery.ErrInvalidCollection),
		errors.Is(err, simplegallery.ErrInvalidMetadata):
		return http.StatusBadRequest
	case errors.Is(err, simplegallery.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, simplegallery.ErrEncodingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, simplegallery.ErrCollectionNotFound),
		errors.Is(err, simplegallery.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, simplegallery.ErrCollectionExists),
		errors.Is(err, simplegallery.ErrIdentifierConflict):
		return http.StatusConflict
	case errors.Is(err, simplegallery.ErrStorageFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.message
	}
	return simplegallery.PublicMessage(err)
}

// renderError writes err as {"error": message}. The full error is logged,
// the response only carries the public message.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "op", op, "request_id", RequestIDFrom(r.Context()), "err", err)
	} else {
		h.logger.Info("request rejected", "op", op, "request_id", RequestIDFrom(r.Context()), "status", status, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: publicMessage(err)})
}
