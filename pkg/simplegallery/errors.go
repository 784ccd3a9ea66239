package simplegallery

import (
	"errors"
	"fmt"
)

// Pipeline errors
var (
	// ErrPathTraversal indicates a resolved path escaped its base directory
	ErrPathTraversal = errors.New("path escapes base directory")

	// ErrUnsupportedMedia indicates the upload is not an accepted image type
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrEncodingFailed indicates the source could not be decoded or re-encoded
	ErrEncodingFailed = errors.New("image encoding failed")

	// ErrCollectionNotFound indicates the target collection does not exist
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrIdentifierConflict indicates an allocated image id is already taken
	ErrIdentifierConflict = errors.New("image identifier conflict")

	// ErrStorageFailure indicates a filesystem or catalog I/O error
	ErrStorageFailure = errors.New("storage failure")
)

// Administrative errors
var (
	ErrImageNotFound          = errors.New("image not found")
	ErrCollectionExists       = errors.New("collection already exists")
	ErrInvalidCollection      = errors.New("invalid collection")
	ErrInvalidMetadata        = errors.New("invalid image metadata")
	ErrInvalidStageTransition = errors.New("invalid ingest stage transition")
)

// IngestError reports the stage at which an upload failed.
type IngestError struct {
	Stage        IngestStage
	CollectionID string
	Err          error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest into collection %s failed at stage %s: %v", e.CollectionID, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// StorageError represents a failed filesystem operation. Key is an internal
// path and is never shown to end users.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CatalogError represents a failed catalog operation.
type CatalogError struct {
	Op  string
	ID  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog operation %s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// ReasonError attaches a user-facing reason to a sentinel.
type ReasonError struct {
	Reason string
	Err    error
}

func (e *ReasonError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *ReasonError) Unwrap() error {
	return e.Err
}

// Reject wraps sentinel with a reason that is safe to show to the uploader.
func Reject(sentinel error, reason string) error {
	return &ReasonError{Reason: reason, Err: sentinel}
}

// PublicMessage renders err as a message that carries no internal paths.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var reason *ReasonError
	if errors.As(err, &reason) {
		return publicSentinel(reason.Err) + ": " + reason.Reason
	}
	return publicSentinel(err)
}

func publicSentinel(err error) string {
	switch {
	case errors.Is(err, ErrPathTraversal):
		return "invalid path"
	case errors.Is(err, ErrUnsupportedMedia):
		return "unsupported file type"
	case errors.Is(err, ErrEncodingFailed):
		return "the image could not be processed"
	case errors.Is(err, ErrCollectionNotFound):
		return "collection not found"
	case errors.Is(err, ErrImageNotFound):
		return "image not found"
	case errors.Is(err, ErrCollectionExists):
		return "a collection with this id or slug already exists"
	case errors.Is(err, ErrInvalidCollection):
		return "invalid collection"
	case errors.Is(err, ErrInvalidMetadata):
		return "invalid image metadata"
	case errors.Is(err, ErrIdentifierConflict):
		return "could not allocate an image identifier, please retry"
	case errors.Is(err, ErrStorageFailure):
		return "temporary storage failure, please retry"
	default:
		return "internal error"
	}
}
