package simplegallery

import "context"

// Service defines the main interface of the gallery ingestion core
type Service interface {
	// Ingestion
	Ingest(ctx context.Context, req IngestRequest) (*Image, error)

	// Image operations
	GetImage(ctx context.Context, id string) (*Image, error)
	ListImages(ctx context.Context, collectionID string) ([]*Image, error)
	UpdateImage(ctx context.Context, id string, req UpdateImageRequest) (*Image, error)
	DeleteImage(ctx context.Context, id string) error

	// Collection operations
	CreateCollection(ctx context.Context, req CreateCollectionRequest) (*Collection, error)
	GetCollection(ctx context.Context, id string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	UpdateCollection(ctx context.Context, id string, req UpdateCollectionRequest) (*Collection, error)
	DeleteCollection(ctx context.Context, id string) (*CascadeReport, error)
}
