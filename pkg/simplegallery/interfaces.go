package simplegallery

import "context"

// Catalog is the durable store for collections and images.
type Catalog interface {
	// WithCollection runs fn in a unit of work that is exclusive per
	// collection and atomic: either every write fn made through tx is
	// committed or none is. It returns ErrCollectionNotFound when the
	// collection does not exist.
	WithCollection(ctx context.Context, collectionID string, fn func(tx CatalogTx) error) error

	GetCollection(ctx context.Context, id string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	CreateCollection(ctx context.Context, c *Collection) error
	// UpdateCollection returns ErrInvalidCollection when the slug changes
	// while the collection has images.
	UpdateCollection(ctx context.Context, c *Collection) error
	// DeleteCollection removes the collection row and, by cascade, its
	// images. It leaves derivative files alone.
	DeleteCollection(ctx context.Context, id string) error

	GetImage(ctx context.Context, id string) (*Image, error)
	// ListImages returns images ordered by sort order. An empty collectionID
	// lists every image.
	ListImages(ctx context.Context, collectionID string) ([]*Image, error)
	UpdateImage(ctx context.Context, img *Image) error
}

// CatalogTx is the view a serialized unit has on one collection.
type CatalogTx interface {
	Collection() *Collection
	// Images lists the collection's images by sort order.
	Images(ctx context.Context) ([]*Image, error)
	MaxImageSuffix(ctx context.Context) (int, error)
	MaxSortOrder(ctx context.Context) (int, error)
	// InsertImage returns ErrIdentifierConflict if img.ID is taken.
	InsertImage(ctx context.Context, img *Image) error
	DeleteImage(ctx context.Context, imageID string) error
	// RecountImages recomputes and stores the collection's image_count.
	RecountImages(ctx context.Context) (int, error)
	// DeleteCollection removes the collection and its images when the unit
	// commits. Units waiting on the collection then fail with
	// ErrCollectionNotFound.
	DeleteCollection(ctx context.Context) error
}

// ContentVerifier sniffs an upload and reconciles it with what was declared.
type ContentVerifier interface {
	Verify(data []byte, declaredExt, declaredMime string) (*Verification, error)
}

// DerivativeGenerator renders the derivative set of one upload.
type DerivativeGenerator interface {
	Generate(ctx context.Context, src []byte, out DerivativeWriter, baseName string, sizes []SizeSpec) (*Derivatives, error)
}

// DerivativeWriter writes and removes files inside one collection directory.
type DerivativeWriter interface {
	WriteFile(name string, data []byte) error
	RemoveFile(name string) error
}

// DerivativeDir is a guarded view of one collection's output directory.
type DerivativeDir interface {
	DerivativeWriter
	Rename(oldName, newName string) error
	// Prune removes the directory if it is empty.
	Prune() error
}

// DerivativeStore hands out collection directories under the output root.
// Dir resolves the slug through the path guard and performs no writes.
type DerivativeStore interface {
	Dir(ctx context.Context, collectionSlug string) (DerivativeDir, error)
}
