package postgres_test

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/idalloc"
	"github.com/tendant/simple-gallery/pkg/simplegallery/repo/postgres"
)

func setupRepo(t *testing.T) *postgres.Repository {
	t.Helper()
	url := os.Getenv("GALLERY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GALLERY_TEST_DATABASE_URL not set; skipping postgres integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := postgres.NewWithPool(pool)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func newCollection(t *testing.T, repo *postgres.Repository) string {
	t.Helper()
	id := "test-" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	now := time.Now().UTC()
	require.NoError(t, repo.CreateCollection(context.Background(), &simplegallery.Collection{
		ID:        id,
		Slug:      id,
		Name:      simplegallery.LocalizedText{ES: "Prueba"},
		Layout:    simplegallery.LayoutGrid,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	t.Cleanup(func() {
		_ = repo.DeleteCollection(context.Background(), id)
	})
	return id
}

func insertNext(ctx context.Context, repo *postgres.Repository, collectionID string) error {
	return repo.WithCollection(ctx, collectionID, func(tx simplegallery.CatalogTx) error {
		id, err := idalloc.New().Allocate(ctx, tx, collectionID, 0)
		if err != nil {
			return err
		}
		maxSort, err := tx.MaxSortOrder(ctx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		err = tx.InsertImage(ctx, &simplegallery.Image{
			ID:           id,
			CollectionID: collectionID,
			Files:        simplegallery.DerivativeSet{simplegallery.SizeThumb: "/x/" + id + "-thumb.jpg"},
			Width:        4,
			Height:       3,
			AspectRatio:  "4:3",
			SortOrder:    maxSort + 1,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		_, err = tx.RecountImages(ctx)
		return err
	})
}

func TestPostgresConcurrentInsertsAreContiguous(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	col := newCollection(t, repo)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- insertNext(ctx, repo, col)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	images, err := repo.ListImages(ctx, col)
	require.NoError(t, err)
	require.Len(t, images, n)
	var suffixes []int
	for _, img := range images {
		s, ok := idalloc.Suffix(col, img.ID)
		require.True(t, ok)
		suffixes = append(suffixes, s)
	}
	sort.Ints(suffixes)
	for i, s := range suffixes {
		assert.Equal(t, i+1, s)
	}
	assert.Equal(t, "/x/"+images[0].ID+"-thumb.jpg", images[0].Files[simplegallery.SizeThumb])

	c, err := repo.GetCollection(ctx, col)
	require.NoError(t, err)
	assert.Equal(t, n, c.ImageCount)
}

func TestPostgresConflictAndCascade(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	col := newCollection(t, repo)
	require.NoError(t, insertNext(ctx, repo, col))

	err := repo.WithCollection(ctx, col, func(tx simplegallery.CatalogTx) error {
		return tx.InsertImage(ctx, &simplegallery.Image{
			ID: col + "-001", CollectionID: col, Width: 1, Height: 1, AspectRatio: "1:1", SortOrder: 2,
		})
	})
	assert.ErrorIs(t, err, simplegallery.ErrIdentifierConflict)

	err = repo.CreateCollection(ctx, &simplegallery.Collection{ID: col, Slug: col + "-x", Name: simplegallery.LocalizedText{ES: "x"}, Layout: simplegallery.LayoutGrid})
	assert.ErrorIs(t, err, simplegallery.ErrCollectionExists)

	require.NoError(t, repo.DeleteCollection(ctx, col))
	images, err := repo.ListImages(ctx, col)
	require.NoError(t, err)
	assert.Empty(t, images)

	err = repo.WithCollection(ctx, col, func(tx simplegallery.CatalogTx) error { return nil })
	assert.ErrorIs(t, err, simplegallery.ErrCollectionNotFound)
}

func TestSchemaIsEmbedded(t *testing.T) {
	schema := postgres.Schema()
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS collections")
	assert.Contains(t, schema, "ON DELETE CASCADE")
}

func TestPostgresSlugChangeNeedsEmptyCollection(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	col := newCollection(t, repo)

	stale, err := repo.GetCollection(ctx, col)
	require.NoError(t, err)
	require.NoError(t, insertNext(ctx, repo, col))

	stale.Slug = col + "-norte"
	err = repo.UpdateCollection(ctx, stale)
	assert.ErrorIs(t, err, simplegallery.ErrInvalidCollection)

	got, err := repo.GetCollection(ctx, col)
	require.NoError(t, err)
	assert.Equal(t, col, got.Slug)

	stale.ID = "missing-" + col
	err = repo.UpdateCollection(ctx, stale)
	assert.ErrorIs(t, err, simplegallery.ErrCollectionNotFound)
}

func TestPostgresDeleteCollectionInsideUnit(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	col := newCollection(t, repo)
	require.NoError(t, insertNext(ctx, repo, col))
	require.NoError(t, insertNext(ctx, repo, col))

	var seen []string
	err := repo.WithCollection(ctx, col, func(tx simplegallery.CatalogTx) error {
		images, err := tx.Images(ctx)
		if err != nil {
			return err
		}
		for _, img := range images {
			seen = append(seen, img.ID)
		}
		return tx.DeleteCollection(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{col + "-001", col + "-002"}, seen)

	images, err := repo.ListImages(ctx, col)
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.ErrorIs(t, insertNext(ctx, repo, col), simplegallery.ErrCollectionNotFound)
}
