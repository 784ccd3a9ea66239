package simplegallery

import "context"

// Hooks let callers observe the ingestion pipeline without modifying it.
// Hooks are observers: they cannot veto a stage.
type Hooks struct {
	// Pipeline hooks
	OnStageChange    []StageChangeHook
	OnMimeMismatch   []MimeMismatchHook
	OnCleanupFailure []CleanupFailureHook
	AfterIngest      []AfterIngestHook

	// Removal hooks
	AfterImageDelete      []AfterImageDeleteHook
	AfterCollectionDelete []AfterCollectionDeleteHook

	// Error hooks
	OnError []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{} // Custom metadata passed between hooks
	StopChain bool                   // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// StageChangeHook is called after an upload moves to a new stage
type StageChangeHook func(hctx *HookContext, collectionID string, from, to IngestStage)

// MimeMismatchHook is called when the sniffed type differs from the declared one
type MimeMismatchHook func(hctx *HookContext, fileName, declared, sniffed string)

// CleanupFailureHook is called when a derivative file could not be removed
type CleanupFailureHook func(hctx *HookContext, fileName string, err error)

// AfterIngestHook is called once an image is indexed
type AfterIngestHook func(hctx *HookContext, img *Image)

// AfterImageDeleteHook is called after an image row is removed
type AfterImageDeleteHook func(hctx *HookContext, imageID string)

// AfterCollectionDeleteHook is called after a cascade delete
type AfterCollectionDeleteHook func(hctx *HookContext, report *CascadeReport)

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

func (h *Hooks) executeOnStageChange(ctx context.Context, collectionID string, from, to IngestStage) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnStageChange {
		hook(hctx, collectionID, from, to)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnMimeMismatch(ctx context.Context, fileName, declared, sniffed string) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnMimeMismatch {
		hook(hctx, fileName, declared, sniffed)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnCleanupFailure(ctx context.Context, fileName string, err error) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnCleanupFailure {
		hook(hctx, fileName, err)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeAfterIngest(ctx context.Context, img *Image) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterIngest {
		hook(hctx, img)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeAfterImageDelete(ctx context.Context, imageID string) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterImageDelete {
		hook(hctx, imageID)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeAfterCollectionDelete(ctx context.Context, report *CascadeReport) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterCollectionDelete {
		hook(hctx, report)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// Common hook implementations

// CountingHooks tallies pipeline events, e.g. for tests or simple metrics.
func CountingHooks(metrics interface {
	IncrementCounter(name string)
}) *Hooks {
	return &Hooks{
		AfterIngest: []AfterIngestHook{
			func(hctx *HookContext, img *Image) {
				metrics.IncrementCounter("image.ingested")
			},
		},
		OnMimeMismatch: []MimeMismatchHook{
			func(hctx *HookContext, fileName, declared, sniffed string) {
				metrics.IncrementCounter("upload.mime_mismatch")
			},
		},
		OnCleanupFailure: []CleanupFailureHook{
			func(hctx *HookContext, fileName string, err error) {
				metrics.IncrementCounter("derivative.cleanup_failed")
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				metrics.IncrementCounter("error." + operation)
			},
		},
	}
}
