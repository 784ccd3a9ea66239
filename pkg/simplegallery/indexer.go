package simplegallery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/tendant/simple-gallery/pkg/simplegallery/objectkey"
)

// IndexRequest describes a freshly rendered image ready to be catalogued.
type IndexRequest struct {
	CollectionID     string
	ImageID          string
	Files            DerivativeSet
	Dimensions       Dimensions
	Metadata         ImageMetadata
	OriginalFilename string
	MimeType         string
	Checksum         string
}

// Indexer writes image rows and keeps the parent collection's aggregates in
// step. It is the only writer of Collection.ImageCount.
type Indexer struct {
	now func() time.Time
}

// Index inserts the image with the next sort order and recounts the
// collection. It must run inside a serialized catalog unit.
func (ix *Indexer) Index(ctx context.Context, tx CatalogTx, req IndexRequest) (*Image, error) {
	maxSort, err := tx.MaxSortOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max sort order: %w", err)
	}

	now := ix.now()
	m := req.Metadata
	img := &Image{
		ID:               req.ImageID,
		CollectionID:     req.CollectionID,
		Title:            m.Title,
		Description:      m.Description,
		Files:            req.Files,
		OriginalFilename: req.OriginalFilename,
		Width:            req.Dimensions.Width,
		Height:           req.Dimensions.Height,
		AspectRatio:      req.Dimensions.AspectRatio,
		Camera:           m.Camera,
		Lens:             m.Lens,
		Settings:         m.Settings,
		Location:         m.Location,
		PhotoDate:        m.PhotoDate,
		Tags:             NormalizeTags(m.Tags),
		SortOrder:        maxSort + 1,
		Featured:         m.Featured,
		MimeType:         req.MimeType,
		Checksum:         req.Checksum,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := tx.InsertImage(ctx, img); err != nil {
		return nil, err
	}
	if _, err := tx.RecountImages(ctx); err != nil {
		return nil, fmt.Errorf("recount images: %w", err)
	}
	return img, nil
}

// Remove deletes an image row and recounts the collection.
func (ix *Indexer) Remove(ctx context.Context, tx CatalogTx, imageID string) error {
	if err := tx.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	if _, err := tx.RecountImages(ctx); err != nil {
		return fmt.Errorf("recount images: %w", err)
	}
	return nil
}

// commit allocates an id, promotes the staged files and indexes the image in
// one serialized unit, retrying on identifier conflicts. On failure every
// file of the upload is removed.
func (s *service) commit(ctx context.Context, col *Collection, staged *stagedSet, req IndexRequest) (*Image, error) {
	var img *Image
	var err error
	for attempt := 0; attempt < s.maxAllocAttempts; attempt++ {
		err = s.catalog.WithCollection(ctx, col.ID, func(tx CatalogTx) error {
			if tx.Collection().Slug != col.Slug {
				return fmt.Errorf("%w: collection slug changed during upload", ErrStorageFailure)
			}
			imageID, err := s.allocator.Allocate(ctx, tx, col.ID, attempt)
			if err != nil {
				return err
			}
			if err := staged.promote(imageID); err != nil {
				return err
			}

			r := req
			r.ImageID = imageID
			r.Files = s.publicFiles(col.Slug, staged)
			img, err = s.indexer.Index(ctx, tx, r)
			return err
		})
		if !errors.Is(err, ErrIdentifierConflict) {
			break
		}
		s.logger.Warn("image identifier conflict, retrying", "collection_id", col.ID, "attempt", attempt+1)
	}
	if err != nil {
		s.cleanup(ctx, staged)
		if errors.Is(err, ErrCollectionNotFound) {
			// The collection was deleted while this upload rendered.
			if perr := staged.dir.Prune(); perr != nil {
				s.logger.Warn("failed to remove collection directory", "collection_id", col.ID, "err", perr)
			}
		}
		return nil, catalogErr("index_image", col.ID, err)
	}
	return img, nil
}

func (s *service) publicFiles(slug string, st *stagedSet) DerivativeSet {
	files := make(DerivativeSet, len(st.labels))
	for _, label := range st.labels {
		files[label] = objectkey.PublicPath(s.urlPrefix, slug, st.files[label])
	}
	return files
}

// derivativeNames lists the on-disk names of an image's files.
func (s *service) derivativeNames(img *Image) []string {
	if len(img.Files) > 0 {
		names := make([]string, 0, len(img.Files))
		for _, p := range img.Files {
			names = append(names, path.Base(p))
		}
		return names
	}
	names := make([]string, 0, len(s.sizes))
	for _, size := range s.sizes {
		names = append(names, objectkey.FileName(img.ID, string(size.Label)))
	}
	return names
}

// removeDerivatives deletes every file of img and returns the failures.
func (s *service) removeDerivatives(ctx context.Context, dir DerivativeDir, img *Image) []error {
	var failures []error
	for _, name := range s.derivativeNames(img) {
		if err := dir.RemoveFile(name); err != nil {
			failures = append(failures, err)
			s.hooks.executeOnCleanupFailure(ctx, name, err)
		}
	}
	return failures
}

// DeleteImage removes an image's files and then its row. Missing files are
// tolerated.
func (s *service) DeleteImage(ctx context.Context, id string) error {
	img, err := s.catalog.GetImage(ctx, id)
	if err != nil {
		return catalogErr("get_image", id, err)
	}
	col, err := s.catalog.GetCollection(ctx, img.CollectionID)
	if err != nil {
		return catalogErr("get_collection", img.CollectionID, err)
	}

	dir, err := s.store.Dir(ctx, col.Slug)
	if err != nil {
		s.logger.Error("cannot resolve collection directory", "collection_id", col.ID, "err", err)
	} else {
		for _, ferr := range s.removeDerivatives(ctx, dir, img) {
			if errors.Is(ferr, fs.ErrNotExist) {
				s.logger.Info("derivative already missing", "image_id", id, "err", ferr)
				continue
			}
			s.logger.Warn("failed to remove derivative", "image_id", id, "err", ferr)
		}
	}

	err = s.catalog.WithCollection(ctx, img.CollectionID, func(tx CatalogTx) error {
		return s.indexer.Remove(ctx, tx, id)
	})
	if err != nil {
		s.hooks.executeOnError(ctx, "delete_image", err)
		return catalogErr("delete_image", id, err)
	}

	s.logger.Info("image deleted", "image_id", id, "collection_id", img.CollectionID)
	s.hooks.executeAfterImageDelete(ctx, id)
	return nil
}

// DeleteCollection removes the files of every image first, then the
// collection row together with its images, all inside the collection's
// serialized unit so no upload can land in between. File failures never
// abort the metadata deletion; they are returned in the report.
func (s *service) DeleteCollection(ctx context.Context, id string) (*CascadeReport, error) {
	report := &CascadeReport{CollectionID: id, FileFailures: make(map[string][]error)}
	var dir DerivativeDir
	var dirErr error

	err := s.catalog.WithCollection(ctx, id, func(tx CatalogTx) error {
		images, err := tx.Images(ctx)
		if err != nil {
			return err
		}
		dir, dirErr = s.store.Dir(ctx, tx.Collection().Slug)
		for _, img := range images {
			if dirErr != nil {
				report.FileFailures[img.ID] = []error{dirErr}
				continue
			}
			if failures := s.removeDerivatives(ctx, dir, img); len(failures) > 0 {
				report.FileFailures[img.ID] = failures
			}
		}
		if err := tx.DeleteCollection(ctx); err != nil {
			return err
		}
		report.DeletedImages = len(images)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrCollectionNotFound) {
			s.hooks.executeOnError(ctx, "delete_collection", err)
		}
		report.DeletedImages = 0
		return report, catalogErr("delete_collection", id, err)
	}

	if dirErr == nil && dir != nil {
		if err := dir.Prune(); err != nil {
			s.logger.Warn("failed to remove collection directory", "collection_id", id, "err", err)
		}
	}
	if len(report.FileFailures) > 0 {
		s.logger.Warn("collection deleted with file cleanup failures",
			"collection_id", id,
			"images", report.FailedImages())
	}
	s.logger.Info("collection deleted", "collection_id", id, "images", report.DeletedImages)
	s.hooks.executeAfterCollectionDelete(ctx, report)
	return report, nil
}
