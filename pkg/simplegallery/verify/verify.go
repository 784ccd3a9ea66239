// Package verify determines the true type of an upload from its leading
// bytes and reconciles it with the type the uploader declared.
package verify

import (
	"fmt"
	"mime"
	"strings"

	"github.com/h2non/filetype"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// extensionTypes maps every accepted extension to its MIME type.
var extensionTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/tiff": true,
}

// Config controls the verifier.
type Config struct {
	// Strict rejects uploads whose sniffed type differs from the declared
	// one. By default a mismatch is only reported.
	Strict bool
}

// Verifier implements simplegallery.ContentVerifier.
type Verifier struct {
	strict bool
}

// New creates a Verifier.
func New(cfg Config) *Verifier {
	return &Verifier{strict: cfg.Strict}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MimeForExtension returns the MIME type of an accepted extension, with or
// without its leading dot, or "" for anything else. It does not consult the
// host's mime tables.
func MimeForExtension(ext string) string {
	return extensionTypes[normalizeExt(ext)]
}

// Verify checks the declared extension and MIME type against the allow-lists
// and sniffs the real type from data. It never touches the filesystem.
func (v *Verifier) Verify(data []byte, declaredExt, declaredMime string) (*simplegallery.Verification, error) {
	ext := normalizeExt(declaredExt)
	if _, ok := extensionTypes[ext]; !ok {
		return nil, simplegallery.Reject(simplegallery.ErrUnsupportedMedia,
			"only jpg, jpeg, png, webp and tiff files are accepted")
	}

	declared := normalizeMime(declaredMime)
	if !allowedMimeTypes[declared] {
		return nil, simplegallery.Reject(simplegallery.ErrUnsupportedMedia,
			fmt.Sprintf("declared type %q is not an accepted image type", declared))
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, simplegallery.Reject(simplegallery.ErrUnsupportedMedia,
			"file content is not a recognizable image")
	}
	sniffed := kind.MIME.Value
	if !allowedMimeTypes[sniffed] {
		return nil, simplegallery.Reject(simplegallery.ErrUnsupportedMedia,
			"file content is not an accepted image type")
	}

	result := &simplegallery.Verification{
		DeclaredMime: declared,
		SniffedMime:  sniffed,
		Mismatch:     sniffed != declared || extensionTypes[ext] != sniffed,
	}
	if result.Mismatch && v.strict {
		return nil, simplegallery.Reject(simplegallery.ErrUnsupportedMedia,
			fmt.Sprintf("file content is %s but was declared as %s", sniffed, declared))
	}
	return result, nil
}

func normalizeMime(m string) string {
	m = strings.TrimSpace(m)
	if mt, _, err := mime.ParseMediaType(m); err == nil {
		m = mt
	}
	m = strings.ToLower(m)
	if m == "image/jpg" || m == "image/pjpeg" {
		return "image/jpeg"
	}
	return m
}
