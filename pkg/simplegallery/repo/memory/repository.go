package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/idalloc"
)

// Repository implements simplegallery.Catalog using in-memory storage.
// Units of work on the same collection are serialized by a per-collection
// lock; different collections proceed independently.
type Repository struct {
	mu          sync.RWMutex
	collections map[string]*simplegallery.Collection
	images      map[string]*simplegallery.Image
	locks       *keyedMutex
	now         func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		collections: make(map[string]*simplegallery.Collection),
		images:      make(map[string]*simplegallery.Image),
		locks:       newKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func copyCollection(c *simplegallery.Collection) *simplegallery.Collection {
	cp := *c
	cp.Tags = append([]string(nil), c.Tags...)
	return &cp
}

func copyImage(img *simplegallery.Image) *simplegallery.Image {
	cp := *img
	cp.Tags = append([]string(nil), img.Tags...)
	if img.Files != nil {
		cp.Files = make(simplegallery.DerivativeSet, len(img.Files))
		for k, v := range img.Files {
			cp.Files[k] = v
		}
	}
	return &cp
}

// Units of work

func (r *Repository) WithCollection(ctx context.Context, collectionID string, fn func(tx simplegallery.CatalogTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := r.locks.Lock(collectionID)
	defer unlock()

	r.mu.RLock()
	c, ok := r.collections[collectionID]
	if ok {
		c = copyCollection(c)
	}
	r.mu.RUnlock()
	if !ok {
		return simplegallery.ErrCollectionNotFound
	}

	t := &tx{r: r, collection: c, deleted: make(map[string]bool)}
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// Collection operations

func (r *Repository) GetCollection(ctx context.Context, id string) (*simplegallery.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[id]
	if !ok {
		return nil, simplegallery.ErrCollectionNotFound
	}
	return copyCollection(c), nil
}

func (r *Repository) ListCollections(ctx context.Context) ([]*simplegallery.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplegallery.Collection, 0, len(r.collections))
	for _, c := range r.collections {
		result = append(result, copyCollection(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *Repository) CreateCollection(ctx context.Context, c *simplegallery.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collections[c.ID]; exists {
		return simplegallery.ErrCollectionExists
	}
	for _, other := range r.collections {
		if other.Slug == c.Slug {
			return simplegallery.ErrCollectionExists
		}
	}

	cp := copyCollection(c)
	cp.ImageCount = 0
	r.collections[c.ID] = cp
	return nil
}

// UpdateCollection stores everything except the image count, which only the
// indexer maintains.
func (r *Repository) UpdateCollection(ctx context.Context, c *simplegallery.Collection) error {
	unlock := r.locks.Lock(c.ID)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.collections[c.ID]
	if !ok {
		return simplegallery.ErrCollectionNotFound
	}
	for id, other := range r.collections {
		if id != c.ID && other.Slug == c.Slug {
			return simplegallery.ErrCollectionExists
		}
	}
	if c.Slug != existing.Slug && existing.ImageCount > 0 {
		return simplegallery.Reject(simplegallery.ErrInvalidCollection, "slug cannot change while the collection has images")
	}

	cp := copyCollection(c)
	cp.ImageCount = existing.ImageCount
	cp.CreatedAt = existing.CreatedAt
	r.collections[c.ID] = cp
	return nil
}

func (r *Repository) DeleteCollection(ctx context.Context, id string) error {
	unlock := r.locks.Lock(id)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collections[id]; !ok {
		return simplegallery.ErrCollectionNotFound
	}
	for imageID, img := range r.images {
		if img.CollectionID == id {
			delete(r.images, imageID)
		}
	}
	delete(r.collections, id)
	return nil
}

// Image operations

func (r *Repository) GetImage(ctx context.Context, id string) (*simplegallery.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[id]
	if !ok {
		return nil, simplegallery.ErrImageNotFound
	}
	return copyImage(img), nil
}

func (r *Repository) ListImages(ctx context.Context, collectionID string) ([]*simplegallery.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*simplegallery.Image, 0)
	for _, img := range r.images {
		if collectionID == "" || img.CollectionID == collectionID {
			result = append(result, copyImage(img))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.CollectionID != b.CollectionID {
			return a.CollectionID < b.CollectionID
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.ID < b.ID
	})
	return result, nil
}

// UpdateImage stores metadata changes; the owning collection and derivative
// paths are kept as stored.
func (r *Repository) UpdateImage(ctx context.Context, img *simplegallery.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.images[img.ID]
	if !ok {
		return simplegallery.ErrImageNotFound
	}
	cp := copyImage(img)
	cp.CollectionID = existing.CollectionID
	cp.Files = copyImage(existing).Files
	cp.CreatedAt = existing.CreatedAt
	r.images[img.ID] = cp
	return nil
}

// tx buffers the writes of one unit of work until commit.
type tx struct {
	r          *Repository
	collection *simplegallery.Collection
	inserted   []*simplegallery.Image
	deleted    map[string]bool
	count      int
	recounted  bool
	dropped    bool
}

func (t *tx) Collection() *simplegallery.Collection {
	return copyCollection(t.collection)
}

// visible calls fn for every image of the collection as seen by this unit.
func (t *tx) visible(fn func(img *simplegallery.Image)) {
	t.r.mu.RLock()
	for _, img := range t.r.images {
		if img.CollectionID == t.collection.ID && !t.deleted[img.ID] {
			fn(img)
		}
	}
	t.r.mu.RUnlock()
	for _, img := range t.inserted {
		fn(img)
	}
}

func (t *tx) Images(ctx context.Context) ([]*simplegallery.Image, error) {
	result := make([]*simplegallery.Image, 0)
	t.visible(func(img *simplegallery.Image) {
		result = append(result, copyImage(img))
	})
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (t *tx) MaxImageSuffix(ctx context.Context) (int, error) {
	var ids []string
	t.visible(func(img *simplegallery.Image) {
		ids = append(ids, img.ID)
	})
	return idalloc.MaxSuffix(t.collection.ID, ids), nil
}

func (t *tx) MaxSortOrder(ctx context.Context) (int, error) {
	max := 0
	t.visible(func(img *simplegallery.Image) {
		if img.SortOrder > max {
			max = img.SortOrder
		}
	})
	return max, nil
}

func (t *tx) InsertImage(ctx context.Context, img *simplegallery.Image) error {
	if img.CollectionID != t.collection.ID {
		return fmt.Errorf("image %s belongs to %s, not %s", img.ID, img.CollectionID, t.collection.ID)
	}
	t.r.mu.RLock()
	_, exists := t.r.images[img.ID]
	t.r.mu.RUnlock()
	if exists && !t.deleted[img.ID] {
		return simplegallery.ErrIdentifierConflict
	}
	for _, other := range t.inserted {
		if other.ID == img.ID {
			return simplegallery.ErrIdentifierConflict
		}
	}
	t.inserted = append(t.inserted, copyImage(img))
	return nil
}

func (t *tx) DeleteImage(ctx context.Context, imageID string) error {
	for i, img := range t.inserted {
		if img.ID == imageID {
			t.inserted = append(t.inserted[:i], t.inserted[i+1:]...)
			return nil
		}
	}
	t.r.mu.RLock()
	img, ok := t.r.images[imageID]
	t.r.mu.RUnlock()
	if !ok || img.CollectionID != t.collection.ID || t.deleted[imageID] {
		return simplegallery.ErrImageNotFound
	}
	t.deleted[imageID] = true
	return nil
}

func (t *tx) RecountImages(ctx context.Context) (int, error) {
	n := 0
	t.visible(func(*simplegallery.Image) { n++ })
	t.count = n
	t.recounted = true
	return n, nil
}

func (t *tx) DeleteCollection(ctx context.Context) error {
	t.dropped = true
	return nil
}

func (t *tx) commit() error {
	r := t.r
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, img := range t.inserted {
		if existing, ok := r.images[img.ID]; ok && !(t.deleted[img.ID] && existing.CollectionID == t.collection.ID) {
			return simplegallery.ErrIdentifierConflict
		}
	}
	c, ok := r.collections[t.collection.ID]
	if !ok {
		return simplegallery.ErrCollectionNotFound
	}

	if t.dropped {
		for id, img := range r.images {
			if img.CollectionID == c.ID {
				delete(r.images, id)
			}
		}
		delete(r.collections, c.ID)
		return nil
	}

	for id := range t.deleted {
		delete(r.images, id)
	}
	for _, img := range t.inserted {
		r.images[img.ID] = img
	}
	if t.recounted {
		c.ImageCount = t.count
		c.UpdatedAt = r.now()
	}
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
