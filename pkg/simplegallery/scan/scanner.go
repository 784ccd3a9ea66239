// Package scan walks the catalog and hands every image to a processor,
// e.g. to audit that indexed images still have all their files.
package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
)

// Scanner queries images and processes them with the provided processor.
type Scanner struct {
	svc    simplegallery.Service
	logger *slog.Logger
}

// New creates a new Scanner instance.
func New(svc simplegallery.Service, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{svc: svc, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// CollectionID restricts the scan to one collection; empty scans all.
	CollectionID string

	// Processor defines the processing logic (required unless DryRun is true)
	Processor ImageProcessor

	// DryRun only counts what would be processed
	DryRun bool

	// OnProgress is called after each collection (optional)
	OnProgress func(processed, total int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64
	// Failures maps failed image ids to their processing error.
	Failures map[string]error
}

// Scan processes every image of the selected collections. A failing image
// is recorded and the scan moves on.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{Failures: make(map[string]error)}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}

	collections := []string{opts.CollectionID}
	if opts.CollectionID == "" {
		cols, err := s.svc.ListCollections(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to list collections: %w", err)
		}
		collections = collections[:0]
		for _, c := range cols {
			collections = append(collections, c.ID)
		}
	}

	for _, id := range collections {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		images, err := s.svc.ListImages(ctx, id)
		if err != nil {
			return result, fmt.Errorf("failed to list images of %s: %w", id, err)
		}
		result.TotalFound += int64(len(images))

		for _, img := range images {
			if opts.DryRun {
				s.logger.Info("dry run: would process image", "image_id", img.ID, "collection_id", img.CollectionID)
				result.TotalProcessed++
				continue
			}
			if err := opts.Processor.Process(ctx, img); err != nil {
				result.TotalFailed++
				result.Failures[img.ID] = err
				s.logger.Warn("image failed processing", "image_id", img.ID, "err", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
	}

	return result, nil
}

// ForEach processes each image with a callback function.
func (s *Scanner) ForEach(ctx context.Context, collectionID string, fn func(context.Context, *simplegallery.Image) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		CollectionID: collectionID,
		Processor:    &funcProcessor{fn: fn},
	})
}
