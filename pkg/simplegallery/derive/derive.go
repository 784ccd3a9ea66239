// Package derive renders the derivative set of an uploaded image: one
// orientation-normalized, width-bounded JPEG per size tier.
package derive

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"runtime"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/objectkey"
)

// MaxPixels bounds the decoded size of a source image.
const MaxPixels = 0x3FFF * 0x3FFF

// Generator implements simplegallery.DerivativeGenerator.
type Generator struct {
	sem       *semaphore.Weighted
	maxPixels int
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxConcurrent caps how many images are rendered at once.
func WithMaxConcurrent(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMaxPixels overrides the decoded size limit.
func WithMaxPixels(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxPixels = n
		}
	}
}

// WithLogger sets the logger used for cleanup failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Generator. By default it renders up to GOMAXPROCS images
// concurrently.
func New(opts ...Option) *Generator {
	g := &Generator{
		sem:       semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		maxPixels: MaxPixels,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type outcome struct {
	res *simplegallery.Derivatives
	err error
}

// Generate renders every size in sizes and writes it as
// "{baseName}-{label}.jpg" through out. ctx only bounds the wait for a
// rendering slot; once rendering has started it runs to completion. On
// failure every file already written is removed before returning.
func (g *Generator) Generate(ctx context.Context, src []byte, out simplegallery.DerivativeWriter, baseName string, sizes []simplegallery.SizeSpec) (*simplegallery.Derivatives, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for generation slot: %w", err)
	}

	done := make(chan outcome, 1)
	go func() {
		defer g.sem.Release(1)
		res, err := g.render(src, out, baseName, sizes)
		done <- outcome{res: res, err: err}
	}()
	o := <-done
	return o.res, o.err
}

func (g *Generator) render(src []byte, out simplegallery.DerivativeWriter, baseName string, sizes []simplegallery.SizeSpec) (res *simplegallery.Derivatives, err error) {
	written := make(map[simplegallery.SizeLabel]string, len(sizes))
	defer func() {
		if r := recover(); r != nil {
			err = simplegallery.Reject(simplegallery.ErrEncodingFailed, "the image data is corrupt")
			g.logger.Error("panic while rendering derivatives", "panic", r)
		}
		if err != nil {
			g.removeAll(out, written)
			res = nil
		}
	}()

	dims, err := Measure(src)
	if err != nil {
		return nil, err
	}
	if dims.Width*dims.Height > g.maxPixels {
		return nil, simplegallery.Reject(simplegallery.ErrEncodingFailed, "the image is too large")
	}

	decoded, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, simplegallery.Reject(simplegallery.ErrEncodingFailed, "the image could not be decoded")
	}
	oriented := Orient(decoded, Orientation(src))

	for _, size := range sizes {
		data, err := encode(fitWidth(oriented, size.MaxWidth), size.Quality)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", simplegallery.ErrEncodingFailed, size.Label, err)
		}
		name := objectkey.FileName(baseName, string(size.Label))
		if err := out.WriteFile(name, data); err != nil {
			return nil, err
		}
		written[size.Label] = name
	}

	return &simplegallery.Derivatives{Files: written, Dimensions: dims}, nil
}

func (g *Generator) removeAll(out simplegallery.DerivativeWriter, written map[simplegallery.SizeLabel]string) {
	for _, name := range written {
		if err := out.RemoveFile(name); err != nil {
			g.logger.Error("failed to remove partial derivative", "file", name, "err", err)
		}
	}
}

// Measure reads the intrinsic, un-rotated dimensions of src from its header.
func Measure(src []byte) (simplegallery.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return simplegallery.Dimensions{}, simplegallery.Reject(simplegallery.ErrEncodingFailed, "the image could not be decoded")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return simplegallery.Dimensions{}, simplegallery.Reject(simplegallery.ErrEncodingFailed, "the image has no pixels")
	}
	return simplegallery.Dimensions{
		Width:       cfg.Width,
		Height:      cfg.Height,
		AspectRatio: AspectRatio(cfg.Width, cfg.Height),
	}, nil
}

// fitWidth scales img down to at most maxWidth pixels wide, keeping its
// aspect ratio. Narrower images are returned as they are.
func fitWidth(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
