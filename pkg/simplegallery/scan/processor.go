package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/pathguard"
)

// ImageProcessor processes individual images found during a scan.
// Return an error to mark the image as failed; the scan continues.
type ImageProcessor interface {
	Process(ctx context.Context, img *simplegallery.Image) error
}

// ErrMissingDerivative marks an indexed image whose files are incomplete.
var ErrMissingDerivative = errors.New("derivative file missing")

// FileAudit checks that every derivative an image lists exists under the
// output root.
type FileAudit struct {
	baseDir   string
	urlPrefix string
	sizes     []simplegallery.SizeSpec
}

// NewFileAudit creates an audit for files published under urlPrefix from baseDir.
func NewFileAudit(baseDir, urlPrefix string, sizes []simplegallery.SizeSpec) *FileAudit {
	if sizes == nil {
		sizes = simplegallery.DefaultSizes()
	}
	return &FileAudit{baseDir: baseDir, urlPrefix: strings.TrimSuffix(urlPrefix, "/"), sizes: sizes}
}

func (a *FileAudit) Process(ctx context.Context, img *simplegallery.Image) error {
	var missing []string
	for _, size := range a.sizes {
		public, ok := img.Files[size.Label]
		if !ok {
			missing = append(missing, string(size.Label))
			continue
		}
		rel := strings.TrimPrefix(public, a.urlPrefix+"/")
		if rel == public {
			missing = append(missing, string(size.Label))
			continue
		}
		target, err := pathguard.Resolve(a.baseDir, path.Dir(rel), path.Base(rel))
		if err != nil {
			return err
		}
		if _, err := os.Stat(target); err != nil {
			missing = append(missing, string(size.Label))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingDerivative, strings.Join(missing, ", "))
	}
	return nil
}

// funcProcessor adapts a function to the ImageProcessor interface.
type funcProcessor struct {
	fn func(context.Context, *simplegallery.Image) error
}

func (p *funcProcessor) Process(ctx context.Context, img *simplegallery.Image) error {
	return p.fn(ctx, img)
}
