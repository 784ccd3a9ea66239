package objectkey

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Ext is the extension of every derivative; all sizes share one codec.
const Ext = "jpg"

// DefaultURLPrefix is where collection directories are served from.
const DefaultURLPrefix = "/assets/images/collections"

const stagingPrefix = ".staging-"

// FileName returns the derivative file name for base and size label,
// e.g. "cabo-008-thumb.jpg".
func FileName(base, label string) string {
	return base + "-" + label + "." + Ext
}

// StagingBase returns a fresh, unguessable base name for files written
// before an image id is allocated.
func StagingBase() string {
	return stagingPrefix + uuid.NewString()
}

// IsStaging reports whether name belongs to a staged, not yet indexed upload.
func IsStaging(name string) bool {
	return strings.HasPrefix(name, stagingPrefix)
}

// PublicPath returns the URL path a derivative is served under.
func PublicPath(urlPrefix, collectionSlug, fileName string) string {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return path.Join("/", urlPrefix, collectionSlug, fileName)
}
