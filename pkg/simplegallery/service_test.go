package simplegallery_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/presets"
	"github.com/tendant/simple-gallery/pkg/simplegallery/repo/memory"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	return img
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

// listFiles returns every regular file under root, relative to it.
func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

type counter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) IncrementCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name]++
}

func (c *counter) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

func setup(t *testing.T, opts ...presets.TestingOption) (simplegallery.Service, string) {
	t.Helper()
	root := t.TempDir()
	svc := presets.NewTesting(t, append([]presets.TestingOption{presets.WithTestOutputRoot(root)}, opts...)...)
	_, err := svc.CreateCollection(context.Background(), simplegallery.CreateCollectionRequest{
		Slug: "cabo",
		Name: simplegallery.LocalizedText{ES: "Cabo", EN: "Cabo"},
	})
	require.NoError(t, err)
	return svc, root
}

func ingest(t *testing.T, svc simplegallery.Service, data []byte, name, mimeType string) (*simplegallery.Image, error) {
	t.Helper()
	return svc.Ingest(context.Background(), simplegallery.IngestRequest{
		CollectionID: "cabo",
		Data:         data,
		FileName:     name,
		MimeType:     mimeType,
		Metadata: simplegallery.ImageMetadata{
			Title: simplegallery.LocalizedText{ES: "Atardecer"},
			Tags:  []string{"sunset", " sea ", "sunset"},
		},
	})
}

func expectedFiles(id string) []string {
	var files []string
	for _, size := range simplegallery.DefaultSizes() {
		files = append(files, fmt.Sprintf("cabo/%s-%s.jpg", id, size.Label))
	}
	sort.Strings(files)
	return files
}

func TestIngestWritesSixDerivatives(t *testing.T) {
	svc, root := setup(t)

	img, err := ingest(t, svc, testJPEG(t, 640, 480), "sunset.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "cabo-001", img.ID)
	assert.Equal(t, 640, img.Width)
	assert.Equal(t, 480, img.Height)
	assert.Equal(t, "4:3", img.AspectRatio)
	assert.Equal(t, 1, img.SortOrder)
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Equal(t, "sunset.jpg", img.OriginalFilename)
	assert.Equal(t, []string{"sunset", "sea"}, img.Tags)
	assert.Len(t, img.Checksum, 64)
	assert.Equal(t, "/assets/images/collections/cabo/cabo-001-thumb.jpg", img.Files[simplegallery.SizeThumb])
	assert.Len(t, img.Files, 6)

	assert.Equal(t, expectedFiles("cabo-001"), listFiles(t, root))

	col, err := svc.GetCollection(context.Background(), "cabo")
	require.NoError(t, err)
	assert.Equal(t, 1, col.ImageCount)
}

func TestIngestNextIdentifierAfterExisting(t *testing.T) {
	repo := memory.New()
	svc, root := setup(t, presets.WithTestCatalog(repo))
	ctx := context.Background()

	err := repo.WithCollection(ctx, "cabo", func(tx simplegallery.CatalogTx) error {
		if err := tx.InsertImage(ctx, &simplegallery.Image{ID: "cabo-007", CollectionID: "cabo", SortOrder: 7}); err != nil {
			return err
		}
		_, err := tx.RecountImages(ctx)
		return err
	})
	require.NoError(t, err)

	img, err := ingest(t, svc, testJPEG(t, 800, 600), "cabo.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "cabo-008", img.ID)
	assert.Equal(t, "4:3", img.AspectRatio)
	assert.Equal(t, 8, img.SortOrder)
	assert.Equal(t, expectedFiles("cabo-008"), listFiles(t, root))

	col, err := svc.GetCollection(ctx, "cabo")
	require.NoError(t, err)
	assert.Equal(t, 2, col.ImageCount)
}

func TestConcurrentIngestAllocatesContiguousIdentifiers(t *testing.T) {
	svc, root := setup(t)
	const n = 8
	data := testJPEG(t, 64, 48)

	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := svc.Ingest(context.Background(), simplegallery.IngestRequest{
				CollectionID: "cabo",
				Data:         data,
				FileName:     "burst.jpg",
				MimeType:     "image/jpeg",
			})
			errs[i] = err
			if err == nil {
				ids[i] = img.ID
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(ids)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("cabo-%03d", i+1), id)
	}

	col, err := svc.GetCollection(context.Background(), "cabo")
	require.NoError(t, err)
	assert.Equal(t, n, col.ImageCount)
	assert.Len(t, listFiles(t, root), n*6)
}

func TestIngestRejectsExecutablesWithoutWriting(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"windows executable", append([]byte("MZ\x90\x00\x03\x00\x00\x00\x04\x00\x00\x00\xff\xff"), make([]byte, 256)...)},
		{"elf binary", append([]byte("\x7fELF\x02\x01\x01\x00"), make([]byte, 256)...)},
		{"plain text", []byte("definitely not an image")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, root := setup(t)

			_, err := ingest(t, svc, tt.data, "photo.jpg", "image/jpeg")
			require.Error(t, err)
			assert.ErrorIs(t, err, simplegallery.ErrUnsupportedMedia)

			var ingestErr *simplegallery.IngestError
			require.True(t, errors.As(err, &ingestErr))
			assert.Equal(t, simplegallery.StageReceived, ingestErr.Stage)

			assert.Empty(t, listFiles(t, root))
		})
	}
}

func TestIngestRejectsTraversingSlugBeforeWriting(t *testing.T) {
	repo := memory.New()
	parent := t.TempDir()
	root := filepath.Join(parent, "out", "collections")
	svc := presets.NewTesting(t, presets.WithTestCatalog(repo), presets.WithTestOutputRoot(root))
	ctx := context.Background()

	require.NoError(t, repo.CreateCollection(ctx, &simplegallery.Collection{ID: "evil", Slug: "../../etc", Layout: simplegallery.LayoutGrid}))

	_, err := svc.Ingest(ctx, simplegallery.IngestRequest{
		CollectionID: "evil",
		Data:         testJPEG(t, 32, 32),
		FileName:     "x.jpg",
		MimeType:     "image/jpeg",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simplegallery.ErrPathTraversal)
	assert.NotContains(t, simplegallery.PublicMessage(err), parent)

	assert.Empty(t, listFiles(t, parent))
	_, statErr := os.Stat(filepath.Join(parent, "etc"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestIngestUnknownCollection(t *testing.T) {
	svc, root := setup(t)

	_, err := svc.Ingest(context.Background(), simplegallery.IngestRequest{
		CollectionID: "nowhere",
		Data:         testJPEG(t, 32, 32),
		FileName:     "x.jpg",
		MimeType:     "image/jpeg",
	})
	assert.ErrorIs(t, err, simplegallery.ErrCollectionNotFound)
	assert.Empty(t, listFiles(t, root))
}

func TestIngestEmptyUpload(t *testing.T) {
	svc, _ := setup(t)
	_, err := ingest(t, svc, nil, "x.jpg", "image/jpeg")
	assert.ErrorIs(t, err, simplegallery.ErrUnsupportedMedia)
}

func TestIngestUndecodableImageLeavesNothing(t *testing.T) {
	svc, root := setup(t)

	// A valid JPEG header followed by garbage passes sniffing but not decoding.
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x42}, 512)...)
	_, err := ingest(t, svc, data, "broken.jpg", "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, simplegallery.ErrEncodingFailed)
	assert.Empty(t, listFiles(t, root))
}

// failingCatalog fails the insert inside the serialized unit, after the
// staged files were promoted to their final names.
type failingCatalog struct {
	simplegallery.Catalog
}

func (c failingCatalog) WithCollection(ctx context.Context, id string, fn func(tx simplegallery.CatalogTx) error) error {
	return c.Catalog.WithCollection(ctx, id, func(tx simplegallery.CatalogTx) error {
		return fn(failingTx{tx})
	})
}

type failingTx struct {
	simplegallery.CatalogTx
}

func (failingTx) InsertImage(ctx context.Context, img *simplegallery.Image) error {
	return errors.New("connection reset by peer")
}

func TestIngestIndexFailureRemovesAllFiles(t *testing.T) {
	metrics := newCounter()
	svc, root := setup(t,
		presets.WithTestCatalog(failingCatalog{memory.New()}),
		presets.WithTestHooks(simplegallery.CountingHooks(metrics)),
	)

	_, err := ingest(t, svc, testJPEG(t, 320, 240), "x.jpg", "image/jpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, simplegallery.ErrStorageFailure)

	var ingestErr *simplegallery.IngestError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, simplegallery.StageDerivativesGenerated, ingestErr.Stage)

	assert.Empty(t, listFiles(t, root))
	assert.Equal(t, 0, metrics.get("image.ingested"))

	col, err := svc.GetCollection(context.Background(), "cabo")
	require.NoError(t, err)
	assert.Equal(t, 0, col.ImageCount)
}

func TestIngestStageHooks(t *testing.T) {
	var mu sync.Mutex
	var stages []simplegallery.IngestStage
	hooks := &simplegallery.Hooks{
		OnStageChange: []simplegallery.StageChangeHook{
			func(hctx *simplegallery.HookContext, collectionID string, from, to simplegallery.IngestStage) {
				mu.Lock()
				defer mu.Unlock()
				stages = append(stages, to)
			},
		},
	}
	svc, _ := setup(t, presets.WithTestHooks(hooks))

	_, err := ingest(t, svc, testJPEG(t, 40, 30), "x.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, []simplegallery.IngestStage{
		simplegallery.StageContentVerified,
		simplegallery.StageDerivativesGenerated,
		simplegallery.StageIndexed,
	}, stages)
}

func TestMimeMismatchPolicy(t *testing.T) {
	data := testPNG(t, 60, 40)

	t.Run("lenient accepts and reports", func(t *testing.T) {
		metrics := newCounter()
		svc, _ := setup(t, presets.WithTestHooks(simplegallery.CountingHooks(metrics)))

		img, err := ingest(t, svc, data, "photo.jpg", "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "image/png", img.MimeType)
		assert.Equal(t, "3:2", img.AspectRatio)
		assert.Equal(t, 1, metrics.get("upload.mime_mismatch"))
	})

	t.Run("strict rejects", func(t *testing.T) {
		svc, root := setup(t, presets.WithTestStrictMime())

		_, err := ingest(t, svc, data, "photo.jpg", "image/jpeg")
		assert.ErrorIs(t, err, simplegallery.ErrUnsupportedMedia)
		assert.Empty(t, listFiles(t, root))
	})

	t.Run("matching declaration passes strict", func(t *testing.T) {
		svc, _ := setup(t, presets.WithTestStrictMime())

		_, err := ingest(t, svc, data, "photo.png", "image/png")
		assert.NoError(t, err)
	})
}

func TestIngestCanceledBeforeGenerationWritesNothing(t *testing.T) {
	svc, root := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx, simplegallery.IngestRequest{
		CollectionID: "cabo",
		Data:         testJPEG(t, 32, 32),
		FileName:     "x.jpg",
		MimeType:     "image/jpeg",
	})
	require.Error(t, err)
	assert.Empty(t, listFiles(t, root))
}

func TestDeleteImage(t *testing.T) {
	svc, root := setup(t)
	ctx := context.Background()

	first, err := ingest(t, svc, testJPEG(t, 64, 64), "a.jpg", "image/jpeg")
	require.NoError(t, err)
	second, err := ingest(t, svc, testJPEG(t, 64, 64), "b.jpg", "image/jpeg")
	require.NoError(t, err)

	// A file that is already gone does not block the delete.
	require.NoError(t, os.Remove(filepath.Join(root, "cabo", first.ID+"-thumb.jpg")))

	require.NoError(t, svc.DeleteImage(ctx, first.ID))

	_, err = svc.GetImage(ctx, first.ID)
	assert.ErrorIs(t, err, simplegallery.ErrImageNotFound)
	assert.Equal(t, expectedFiles(second.ID), listFiles(t, root))

	col, err := svc.GetCollection(ctx, "cabo")
	require.NoError(t, err)
	assert.Equal(t, 1, col.ImageCount)

	err = svc.DeleteImage(ctx, first.ID)
	assert.ErrorIs(t, err, simplegallery.ErrImageNotFound)
}

func TestDeleteCollectionCascade(t *testing.T) {
	metrics := newCounter()
	svc, root := setup(t, presets.WithTestHooks(simplegallery.CountingHooks(metrics)))
	ctx := context.Background()

	first, err := ingest(t, svc, testJPEG(t, 64, 64), "a.jpg", "image/jpeg")
	require.NoError(t, err)
	second, err := ingest(t, svc, testJPEG(t, 64, 64), "b.jpg", "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "cabo", first.ID+"-large.jpg")))

	report, err := svc.DeleteCollection(ctx, "cabo")
	require.NoError(t, err)
	assert.Equal(t, 2, report.DeletedImages)
	assert.Equal(t, []string{first.ID}, report.FailedImages())
	assert.Len(t, report.FileFailures[first.ID], 1)
	assert.Equal(t, 1, metrics.get("derivative.cleanup_failed"))

	_, err = svc.GetCollection(ctx, "cabo")
	assert.ErrorIs(t, err, simplegallery.ErrCollectionNotFound)
	_, err = svc.GetImage(ctx, second.ID)
	assert.ErrorIs(t, err, simplegallery.ErrImageNotFound)

	assert.Empty(t, listFiles(t, root))
}

// interleavingCatalog runs duringCascade once, when a unit first lists the
// images of its collection.
type interleavingCatalog struct {
	simplegallery.Catalog
	duringCascade func()
	once          sync.Once
}

func (c *interleavingCatalog) WithCollection(ctx context.Context, id string, fn func(tx simplegallery.CatalogTx) error) error {
	return c.Catalog.WithCollection(ctx, id, func(tx simplegallery.CatalogTx) error {
		return fn(interleavingTx{CatalogTx: tx, c: c})
	})
}

type interleavingTx struct {
	simplegallery.CatalogTx
	c *interleavingCatalog
}

func (t interleavingTx) Images(ctx context.Context) ([]*simplegallery.Image, error) {
	if t.c.duringCascade != nil {
		t.c.once.Do(t.c.duringCascade)
	}
	return t.CatalogTx.Images(ctx)
}

func TestDeleteCollectionWithUploadInFlight(t *testing.T) {
	generated := make(chan struct{}, 1)
	var armed atomic.Bool
	hooks := &simplegallery.Hooks{
		OnStageChange: []simplegallery.StageChangeHook{
			func(hctx *simplegallery.HookContext, collectionID string, from, to simplegallery.IngestStage) {
				if to == simplegallery.StageDerivativesGenerated && armed.Load() {
					generated <- struct{}{}
				}
			},
		},
	}
	catalog := &interleavingCatalog{Catalog: memory.New()}
	svc, root := setup(t, presets.WithTestCatalog(catalog), presets.WithTestHooks(hooks))
	ctx := context.Background()

	_, err := ingest(t, svc, testJPEG(t, 64, 64), "a.jpg", "image/jpeg")
	require.NoError(t, err)

	late := testJPEG(t, 48, 48)
	uploadErr := make(chan error, 1)
	catalog.duringCascade = func() {
		armed.Store(true)
		go func() {
			_, err := svc.Ingest(ctx, simplegallery.IngestRequest{
				CollectionID: "cabo",
				Data:         late,
				FileName:     "b.jpg",
				MimeType:     "image/jpeg",
			})
			uploadErr <- err
		}()
		select {
		case <-generated:
		case <-time.After(10 * time.Second):
		}
	}

	report, err := svc.DeleteCollection(ctx, "cabo")
	require.NoError(t, err)
	assert.Equal(t, 1, report.DeletedImages)
	assert.Empty(t, report.FailedImages())

	select {
	case err = <-uploadErr:
	case <-time.After(10 * time.Second):
		t.Fatal("upload did not finish")
	}
	assert.ErrorIs(t, err, simplegallery.ErrCollectionNotFound)

	images, err := svc.ListImages(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.Empty(t, listFiles(t, root))
}

// staleReadCatalog runs afterRead once, right after a collection was read.
type staleReadCatalog struct {
	simplegallery.Catalog
	afterRead func()
}

func (c *staleReadCatalog) GetCollection(ctx context.Context, id string) (*simplegallery.Collection, error) {
	col, err := c.Catalog.GetCollection(ctx, id)
	if f := c.afterRead; f != nil {
		c.afterRead = nil
		f()
	}
	return col, err
}

func TestSlugChangeRacingUploadIsRejected(t *testing.T) {
	catalog := &staleReadCatalog{Catalog: memory.New()}
	svc, root := setup(t, presets.WithTestCatalog(catalog))
	ctx := context.Background()

	var uploaded *simplegallery.Image
	catalog.afterRead = func() {
		var err error
		uploaded, err = ingest(t, svc, testJPEG(t, 32, 32), "a.jpg", "image/jpeg")
		require.NoError(t, err)
	}

	slug := "cabo-norte"
	_, err := svc.UpdateCollection(ctx, "cabo", simplegallery.UpdateCollectionRequest{Slug: &slug})
	assert.ErrorIs(t, err, simplegallery.ErrInvalidCollection)

	col, err := svc.GetCollection(ctx, "cabo")
	require.NoError(t, err)
	assert.Equal(t, "cabo", col.Slug)
	assert.Equal(t, 1, col.ImageCount)

	require.NotNil(t, uploaded)
	assert.Equal(t, expectedFiles(uploaded.ID), listFiles(t, root))
	require.NoError(t, svc.DeleteImage(ctx, uploaded.ID))
	assert.Empty(t, listFiles(t, root))
}

func TestUpdateImageLeavesFilesAlone(t *testing.T) {
	svc, root := setup(t)
	ctx := context.Background()

	img, err := ingest(t, svc, testJPEG(t, 64, 64), "a.jpg", "image/jpeg")
	require.NoError(t, err)

	camera := "X100V"
	featured := true
	updated, err := svc.UpdateImage(ctx, img.ID, simplegallery.UpdateImageRequest{
		Camera:   &camera,
		Featured: &featured,
		Tags:     []string{"street", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "X100V", updated.Camera)
	assert.True(t, updated.Featured)
	assert.Equal(t, []string{"street"}, updated.Tags)
	assert.Equal(t, img.Files, updated.Files)
	assert.Equal(t, expectedFiles(img.ID), listFiles(t, root))

	bad := 0
	_, err = svc.UpdateImage(ctx, img.ID, simplegallery.UpdateImageRequest{SortOrder: &bad})
	assert.ErrorIs(t, err, simplegallery.ErrInvalidMetadata)
}

func TestCollectionLifecycle(t *testing.T) {
	svc := presets.NewTesting(t)
	ctx := context.Background()

	col, err := svc.CreateCollection(ctx, simplegallery.CreateCollectionRequest{
		Name: simplegallery.LocalizedText{ES: "Ciudad de México"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ciudad-de-mexico", col.ID)
	assert.Equal(t, "ciudad-de-mexico", col.Slug)
	assert.Equal(t, simplegallery.LayoutGrid, col.Layout)

	_, err = svc.CreateCollection(ctx, simplegallery.CreateCollectionRequest{
		Name: simplegallery.LocalizedText{ES: "Ciudad de Mexico"},
	})
	assert.ErrorIs(t, err, simplegallery.ErrCollectionExists)

	_, err = svc.CreateCollection(ctx, simplegallery.CreateCollectionRequest{Slug: "x"})
	assert.ErrorIs(t, err, simplegallery.ErrInvalidCollection)

	_, err = svc.CreateCollection(ctx, simplegallery.CreateCollectionRequest{
		Slug: "Bad Slug",
		Name: simplegallery.LocalizedText{ES: "x"},
	})
	assert.ErrorIs(t, err, simplegallery.ErrInvalidCollection)

	layout := simplegallery.LayoutMasonry
	newSlug := "cdmx"
	updated, err := svc.UpdateCollection(ctx, col.ID, simplegallery.UpdateCollectionRequest{
		Layout: &layout,
		Slug:   &newSlug,
	})
	require.NoError(t, err)
	assert.Equal(t, simplegallery.LayoutMasonry, updated.Layout)
	assert.Equal(t, "cdmx", updated.Slug)
	assert.Equal(t, col.ID, updated.ID)

	unknown := simplegallery.Layout("carousel")
	_, err = svc.UpdateCollection(ctx, col.ID, simplegallery.UpdateCollectionRequest{Layout: &unknown})
	assert.ErrorIs(t, err, simplegallery.ErrInvalidCollection)

	cols, err := svc.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, cols, 1)
}

func TestSlugChangeRejectedWhileCollectionHasImages(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := ingest(t, svc, testJPEG(t, 32, 32), "a.jpg", "image/jpeg")
	require.NoError(t, err)

	slug := "los-cabos"
	_, err = svc.UpdateCollection(ctx, "cabo", simplegallery.UpdateCollectionRequest{Slug: &slug})
	require.Error(t, err)
	assert.ErrorIs(t, err, simplegallery.ErrInvalidCollection)
	assert.True(t, strings.Contains(simplegallery.PublicMessage(err), "slug"))
}

func TestListImagesOrdered(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ingest(t, svc, testJPEG(t, 32, 32), "a.jpg", "image/jpeg")
		require.NoError(t, err)
	}

	images, err := svc.ListImages(ctx, "cabo")
	require.NoError(t, err)
	require.Len(t, images, 3)
	for i, img := range images {
		assert.Equal(t, i+1, img.SortOrder)
	}

	all, err := svc.ListImages(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
