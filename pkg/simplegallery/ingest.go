package simplegallery

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/tendant/simple-gallery/pkg/simplegallery/objectkey"
)

// ingestRun tracks one upload through the stage machine.
type ingestRun struct {
	s            *service
	ctx          context.Context
	collectionID string
	stage        IngestStage
}

func (r *ingestRun) advance(to IngestStage) error {
	if err := ValidateStageTransition(r.stage, to); err != nil {
		return err
	}
	from := r.stage
	r.stage = to
	r.s.logger.Debug("ingest stage changed", "collection_id", r.collectionID, "from", from, "to", to)
	r.s.hooks.executeOnStageChange(r.ctx, r.collectionID, from, to)
	return nil
}

// fail moves the run to failed and wraps err with the stage it failed in.
func (r *ingestRun) fail(err error) error {
	stage := r.stage
	if !stage.IsTerminal() {
		r.stage = StageFailed
		r.s.hooks.executeOnStageChange(r.ctx, r.collectionID, stage, StageFailed)
	}
	r.s.logger.Warn("ingest failed", "collection_id", r.collectionID, "stage", stage, "err", err)
	r.s.hooks.executeOnError(r.ctx, "ingest", err)
	return &IngestError{Stage: stage, CollectionID: r.collectionID, Err: err}
}

// Ingest verifies an upload, renders its derivatives and indexes it. On
// failure no derivative file of this upload is left behind.
func (s *service) Ingest(ctx context.Context, req IngestRequest) (*Image, error) {
	run := &ingestRun{s: s, ctx: ctx, collectionID: req.CollectionID, stage: StageReceived}

	if len(req.Data) == 0 {
		return nil, run.fail(Reject(ErrUnsupportedMedia, "empty upload"))
	}

	col, err := s.catalog.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, run.fail(catalogErr("get_collection", req.CollectionID, err))
	}
	dir, err := s.store.Dir(ctx, col.Slug)
	if err != nil {
		return nil, run.fail(err)
	}

	ext := strings.TrimPrefix(filepath.Ext(req.FileName), ".")
	verification, err := s.verifier.Verify(req.Data, ext, req.MimeType)
	if err != nil {
		return nil, run.fail(err)
	}
	if verification.Mismatch {
		s.logger.Warn("declared and sniffed mime types differ",
			"collection_id", col.ID,
			"declared", verification.DeclaredMime,
			"sniffed", verification.SniffedMime)
		s.hooks.executeOnMimeMismatch(ctx, filepath.Base(req.FileName), verification.DeclaredMime, verification.SniffedMime)
	}
	if err := run.advance(StageContentVerified); err != nil {
		return nil, run.fail(err)
	}

	// The caller's context only bounds the wait for a generation slot. Once
	// files exist the upload runs to an indexed record or a full cleanup.
	base := objectkey.StagingBase()
	derived, err := s.generator.Generate(ctx, req.Data, dir, base, s.sizes)
	if err != nil {
		return nil, run.fail(err)
	}
	detached := context.WithoutCancel(ctx)
	run.ctx = detached

	staged := newStagedSet(dir, s.sizes, derived)
	if err := staged.complete(); err != nil {
		s.cleanup(detached, staged)
		return nil, run.fail(err)
	}
	if err := run.advance(StageDerivativesGenerated); err != nil {
		s.cleanup(detached, staged)
		return nil, run.fail(err)
	}

	sum := blake3.Sum256(req.Data)
	img, err := s.commit(detached, col, staged, IndexRequest{
		CollectionID:     col.ID,
		Dimensions:       derived.Dimensions,
		Metadata:         req.Metadata,
		OriginalFilename: filepath.Base(req.FileName),
		MimeType:         verification.SniffedMime,
		Checksum:         hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return nil, run.fail(err)
	}
	if err := run.advance(StageIndexed); err != nil {
		return nil, run.fail(err)
	}

	s.logger.Info("image ingested",
		"image_id", img.ID,
		"collection_id", col.ID,
		"width", img.Width,
		"height", img.Height)
	s.hooks.executeAfterIngest(detached, img)
	return img, nil
}

// stagedSet tracks the current on-disk name of every derivative of one
// upload while it moves from its staging name to its final name.
type stagedSet struct {
	dir    DerivativeDir
	labels []SizeLabel
	files  map[SizeLabel]string
}

func newStagedSet(dir DerivativeDir, sizes []SizeSpec, derived *Derivatives) *stagedSet {
	st := &stagedSet{dir: dir, files: make(map[SizeLabel]string, len(sizes))}
	for _, size := range sizes {
		st.labels = append(st.labels, size.Label)
		if name, ok := derived.Files[size.Label]; ok {
			st.files[size.Label] = name
		}
	}
	// Files the generator reported beyond the size table are still ours to clean.
	for label, name := range derived.Files {
		if _, ok := st.files[label]; !ok {
			st.files[label] = name
		}
	}
	return st
}

func (st *stagedSet) complete() error {
	for _, label := range st.labels {
		if _, ok := st.files[label]; !ok {
			return fmt.Errorf("%w: derivative %s missing", ErrEncodingFailed, label)
		}
	}
	return nil
}

// promote renames every file to its final name for imageID. A partial
// promotion is rolled back; files that cannot be moved back keep their new
// name in the set so cleanup still finds them.
func (st *stagedSet) promote(imageID string) error {
	moved := make(map[SizeLabel]string, len(st.labels))
	for _, label := range st.labels {
		target := objectkey.FileName(imageID, string(label))
		if err := st.dir.Rename(st.files[label], target); err != nil {
			for l, t := range moved {
				if rerr := st.dir.Rename(t, st.files[l]); rerr != nil {
					st.files[l] = t
				}
			}
			return err
		}
		moved[label] = target
	}
	for label, target := range moved {
		st.files[label] = target
	}
	return nil
}

// cleanup removes every file of the set. Failures are logged and reported to
// hooks but never replace the error that triggered the cleanup.
func (s *service) cleanup(ctx context.Context, st *stagedSet) {
	for _, name := range st.files {
		if err := st.dir.RemoveFile(name); err != nil {
			s.logger.Error("failed to remove derivative during cleanup", "file", name, "err", err)
			s.hooks.executeOnCleanupFailure(ctx, name, err)
		}
	}
}
