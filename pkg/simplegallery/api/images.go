package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/verify"
)

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// UploadImage accepts one multipart upload and runs it through ingestion.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseUpload(w, r)
	if err != nil {
		h.renderError(w, r, "upload_image", err)
		return
	}

	img, err := h.service.Ingest(r.Context(), *req)
	if err != nil {
		h.renderError(w, r, "upload_image", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, img)
}

// parseUpload streams the multipart body. It enforces a single file part
// named "file", at most maxFormFields other fields and maxFieldBytes per
// field. The whole body is bounded so an oversized upload is cut off early.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*simplegallery.IngestRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("expected a multipart/form-data body")
	}

	var (
		req    simplegallery.IngestRequest
		fields = make(map[string]string)
		files  int
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, readErr(err)
		}

		name := part.FormName()
		if part.FileName() != "" {
			if name != uploadFileField {
				part.Close()
				return nil, badRequest("unexpected file field " + name)
			}
			files++
			if files > 1 {
				part.Close()
				return nil, badRequest("exactly one file is allowed")
			}
			data, err := readLimited(part, h.maxUploadBytes)
			part.Close()
			if err != nil {
				return nil, err
			}
			req.Data = data
			req.FileName = filepath.Base(part.FileName())
			req.MimeType = part.Header.Get("Content-Type")
			continue
		}

		if len(fields) >= maxFormFields {
			part.Close()
			return nil, badRequest("too many form fields")
		}
		value, err := readLimited(part, maxFieldBytes)
		part.Close()
		if err != nil {
			var reqErr *requestError
			if errors.As(err, &reqErr) && reqErr.status == http.StatusRequestEntityTooLarge {
				return nil, badRequest("form field " + name + " is too long")
			}
			return nil, err
		}
		fields[name] = string(value)
	}

	if files == 0 || len(req.Data) == 0 {
		return nil, badRequest("a non-empty file field is required")
	}
	if req.MimeType == "" {
		req.MimeType = verify.MimeForExtension(filepath.Ext(req.FileName))
	}

	req.CollectionID = strings.TrimSpace(fields[collectionField])
	if req.CollectionID == "" {
		req.CollectionID = strings.TrimSpace(fields[collectionAltField])
	}
	if req.CollectionID == "" {
		return nil, badRequest("collectionId is required")
	}

	meta, err := metadataFromFields(fields)
	if err != nil {
		return nil, err
	}
	req.Metadata = meta
	return &req, nil
}

// readLimited reads at most limit bytes and fails when more are available.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, readErr(err)
	}
	if n > limit {
		return nil, tooLarge()
	}
	return buf.Bytes(), nil
}

func readErr(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return tooLarge()
	}
	return badRequest("malformed multipart body")
}

func metadataFromFields(f map[string]string) (simplegallery.ImageMetadata, error) {
	meta := simplegallery.ImageMetadata{
		Title:       simplegallery.LocalizedText{ES: f["title_es"], EN: f["title_en"], FR: f["title_fr"]},
		Description: simplegallery.LocalizedText{ES: f["description_es"], EN: f["description_en"], FR: f["description_fr"]},
		Camera:      f["camera"],
		Lens:        f["lens"],
		Settings:    f["settings"],
		Location:    f["location"],
		PhotoDate:   f["photo_date"],
	}

	if raw := strings.TrimSpace(f["tags"]); raw != "" {
		if strings.HasPrefix(raw, "[") {
			if err := json.Unmarshal([]byte(raw), &meta.Tags); err != nil {
				return meta, badRequest("tags must be a JSON array of strings or a comma separated list")
			}
		} else {
			meta.Tags = strings.Split(raw, ",")
		}
	}

	switch strings.ToLower(strings.TrimSpace(f["featured"])) {
	case "", "false", "0", "no":
	case "true", "1", "yes", "on":
		meta.Featured = true
	default:
		return meta, badRequest("featured must be a boolean")
	}
	return meta, nil
}

// ListImages lists images, optionally restricted to ?collection=
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	collectionID := r.URL.Query().Get("collection")
	images, err := h.service.ListImages(r.Context(), collectionID)
	if err != nil {
		h.renderError(w, r, "list_images", err)
		return
	}
	render.JSON(w, r, ListResponse[*simplegallery.Image]{Items: images, Count: len(images)})
}

// GetImage returns one image.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, "get_image", err)
		return
	}
	render.JSON(w, r, img)
}

// UpdateImage applies a partial metadata update.
func (h *Handler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	var req simplegallery.UpdateImageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderError(w, r, "update_image", err)
		return
	}
	img, err := h.service.UpdateImage(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.renderError(w, r, "update_image", err)
		return
	}
	render.JSON(w, r, img)
}

// DeleteImage removes an image and its derivative files.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteImage(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.renderError(w, r, "delete_image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
