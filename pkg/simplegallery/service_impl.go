package simplegallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-gallery/pkg/simplegallery/idalloc"
	"github.com/tendant/simple-gallery/pkg/simplegallery/objectkey"
)

// DefaultMaxAllocAttempts bounds retries after identifier conflicts.
const DefaultMaxAllocAttempts = 5

// IdentifierAllocator reserves the next image id inside a serialized unit.
type IdentifierAllocator interface {
	Allocate(ctx context.Context, src idalloc.SuffixSource, collectionID string, attempt int) (string, error)
}

// service implements the Service interface
type service struct {
	catalog          Catalog
	store            DerivativeStore
	verifier         ContentVerifier
	generator        DerivativeGenerator
	allocator        IdentifierAllocator
	indexer          *Indexer
	hooks            *Hooks
	logger           *slog.Logger
	sizes            []SizeSpec
	urlPrefix        string
	maxAllocAttempts int
	now              func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithCatalog sets the catalog store
func WithCatalog(catalog Catalog) Option {
	return func(s *service) {
		s.catalog = catalog
	}
}

// WithStore sets the derivative file store
func WithStore(store DerivativeStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithVerifier sets the content verifier
func WithVerifier(v ContentVerifier) Option {
	return func(s *service) {
		s.verifier = v
	}
}

// WithGenerator sets the derivative generator
func WithGenerator(g DerivativeGenerator) Option {
	return func(s *service) {
		s.generator = g
	}
}

// WithAllocator overrides the identifier allocator
func WithAllocator(a IdentifierAllocator) Option {
	return func(s *service) {
		s.allocator = a
	}
}

// WithHooks sets lifecycle hooks
func WithHooks(h *Hooks) Option {
	return func(s *service) {
		if h != nil {
			s.hooks = h
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSizes overrides the derivative size table
func WithSizes(sizes []SizeSpec) Option {
	return func(s *service) {
		s.sizes = append([]SizeSpec(nil), sizes...)
	}
}

// WithURLPrefix sets the public path prefix of derivative files
func WithURLPrefix(prefix string) Option {
	return func(s *service) {
		s.urlPrefix = prefix
	}
}

// WithMaxAllocAttempts bounds retries after identifier conflicts
func WithMaxAllocAttempts(n int) Option {
	return func(s *service) {
		s.maxAllocAttempts = n
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		allocator:        idalloc.New(),
		hooks:            &Hooks{},
		logger:           slog.Default(),
		sizes:            DefaultSizes(),
		urlPrefix:        objectkey.DefaultURLPrefix,
		maxAllocAttempts: DefaultMaxAllocAttempts,
		now:              func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("derivative store is required")
	}
	if s.verifier == nil {
		return nil, fmt.Errorf("content verifier is required")
	}
	if s.generator == nil {
		return nil, fmt.Errorf("derivative generator is required")
	}
	if len(s.sizes) == 0 {
		return nil, fmt.Errorf("at least one derivative size is required")
	}
	seen := make(map[SizeLabel]bool, len(s.sizes))
	for _, size := range s.sizes {
		if size.Label == "" || seen[size.Label] {
			return nil, fmt.Errorf("derivative size labels must be unique and non-empty")
		}
		if size.MaxWidth <= 0 || size.Quality < 1 || size.Quality > 100 {
			return nil, fmt.Errorf("invalid derivative size %s", size.Label)
		}
		seen[size.Label] = true
	}
	if s.maxAllocAttempts < 1 {
		s.maxAllocAttempts = 1
	}
	s.indexer = &Indexer{now: s.now}

	return s, nil
}

// catalogErr wraps a catalog failure, classifying unknown errors as storage failures.
func catalogErr(op, id string, err error) error {
	switch {
	case errors.Is(err, ErrCollectionNotFound),
		errors.Is(err, ErrImageNotFound),
		errors.Is(err, ErrCollectionExists),
		errors.Is(err, ErrIdentifierConflict),
		errors.Is(err, ErrInvalidCollection),
		errors.Is(err, ErrInvalidMetadata),
		errors.Is(err, ErrStorageFailure):
		return &CatalogError{Op: op, ID: id, Err: err}
	default:
		return &CatalogError{Op: op, ID: id, Err: fmt.Errorf("%w: %w", ErrStorageFailure, err)}
	}
}

// Image operations

func (s *service) GetImage(ctx context.Context, id string) (*Image, error) {
	img, err := s.catalog.GetImage(ctx, id)
	if err != nil {
		return nil, catalogErr("get_image", id, err)
	}
	return img, nil
}

func (s *service) ListImages(ctx context.Context, collectionID string) ([]*Image, error) {
	images, err := s.catalog.ListImages(ctx, collectionID)
	if err != nil {
		return nil, catalogErr("list_images", collectionID, err)
	}
	return images, nil
}

func (s *service) UpdateImage(ctx context.Context, id string, req UpdateImageRequest) (*Image, error) {
	img, err := s.catalog.GetImage(ctx, id)
	if err != nil {
		return nil, catalogErr("get_image", id, err)
	}

	if req.Title != nil {
		img.Title = *req.Title
	}
	if req.Description != nil {
		img.Description = *req.Description
	}
	if req.Camera != nil {
		img.Camera = *req.Camera
	}
	if req.Lens != nil {
		img.Lens = *req.Lens
	}
	if req.Settings != nil {
		img.Settings = *req.Settings
	}
	if req.Location != nil {
		img.Location = *req.Location
	}
	if req.PhotoDate != nil {
		img.PhotoDate = *req.PhotoDate
	}
	if req.Tags != nil {
		img.Tags = NormalizeTags(req.Tags)
	}
	if req.SortOrder != nil {
		if *req.SortOrder < 1 {
			return nil, Reject(ErrInvalidMetadata, "sort order must be positive")
		}
		img.SortOrder = *req.SortOrder
	}
	if req.Featured != nil {
		img.Featured = *req.Featured
	}
	img.UpdatedAt = s.now()

	if err := s.catalog.UpdateImage(ctx, img); err != nil {
		return nil, catalogErr("update_image", id, err)
	}
	return img, nil
}

// Collection operations

func (s *service) CreateCollection(ctx context.Context, req CreateCollectionRequest) (*Collection, error) {
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name.ES)
	}
	if strings.TrimSpace(req.Name.ES) == "" {
		return nil, Reject(ErrInvalidCollection, "name.es is required")
	}
	if !ValidSlug(slug) {
		return nil, Reject(ErrInvalidCollection, "slug may only contain lowercase letters, digits and single hyphens")
	}
	layout := req.Layout
	if layout == "" {
		layout = LayoutGrid
	}
	if !layout.Valid() {
		return nil, Reject(ErrInvalidCollection, "unknown layout")
	}

	now := s.now()
	c := &Collection{
		ID:          slug,
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
		Layout:      layout,
		Featured:    req.Featured,
		SortOrder:   req.SortOrder,
		Location:    req.Location,
		YearRange:   req.YearRange,
		Tags:        NormalizeTags(req.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.catalog.CreateCollection(ctx, c); err != nil {
		return nil, catalogErr("create_collection", c.ID, err)
	}
	s.logger.Info("collection created", "collection_id", c.ID)
	return c, nil
}

func (s *service) GetCollection(ctx context.Context, id string) (*Collection, error) {
	c, err := s.catalog.GetCollection(ctx, id)
	if err != nil {
		return nil, catalogErr("get_collection", id, err)
	}
	return c, nil
}

func (s *service) ListCollections(ctx context.Context) ([]*Collection, error) {
	cs, err := s.catalog.ListCollections(ctx)
	if err != nil {
		return nil, catalogErr("list_collections", "", err)
	}
	return cs, nil
}

func (s *service) UpdateCollection(ctx context.Context, id string, req UpdateCollectionRequest) (*Collection, error) {
	c, err := s.catalog.GetCollection(ctx, id)
	if err != nil {
		return nil, catalogErr("get_collection", id, err)
	}

	if req.Slug != nil && *req.Slug != c.Slug {
		if !ValidSlug(*req.Slug) {
			return nil, Reject(ErrInvalidCollection, "slug may only contain lowercase letters, digits and single hyphens")
		}
		// Derivative paths are keyed by slug. The catalog repeats this check
		// under the collection lock.
		if c.ImageCount > 0 {
			return nil, Reject(ErrInvalidCollection, "slug cannot change while the collection has images")
		}
		c.Slug = *req.Slug
	}
	if req.Name != nil {
		if strings.TrimSpace(req.Name.ES) == "" {
			return nil, Reject(ErrInvalidCollection, "name.es is required")
		}
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Layout != nil {
		if !req.Layout.Valid() {
			return nil, Reject(ErrInvalidCollection, "unknown layout")
		}
		c.Layout = *req.Layout
	}
	if req.Featured != nil {
		c.Featured = *req.Featured
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}
	if req.Location != nil {
		c.Location = *req.Location
	}
	if req.YearRange != nil {
		c.YearRange = *req.YearRange
	}
	if req.Tags != nil {
		c.Tags = NormalizeTags(req.Tags)
	}
	if req.CoverImageSrc != nil {
		c.CoverImageSrc = *req.CoverImageSrc
	}
	if req.CoverImagePlaceholder != nil {
		c.CoverImagePlaceholder = *req.CoverImagePlaceholder
	}
	if req.CoverImageAlt != nil {
		c.CoverImageAlt = *req.CoverImageAlt
	}
	c.UpdatedAt = s.now()

	if err := s.catalog.UpdateCollection(ctx, c); err != nil {
		return nil, catalogErr("update_collection", id, err)
	}
	return c, nil
}
