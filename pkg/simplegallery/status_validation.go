package simplegallery

import "fmt"

// ValidateStageTransition checks that an upload may move from one stage to
// the next. Stages advance strictly in order; failed is reachable from any
// non-terminal stage.
func ValidateStageTransition(from, to IngestStage) error {
	switch from {
	case StageIndexed, StageFailed:
		return fmt.Errorf("%w: %s is terminal (requested %s)", ErrInvalidStageTransition, from, to)
	case StageReceived, StageContentVerified, StageDerivativesGenerated:
	default:
		return fmt.Errorf("%w: unknown stage %s", ErrInvalidStageTransition, from)
	}

	if to == StageFailed {
		return nil
	}
	if next, ok := nextStage(from); ok && next == to {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStageTransition, from, to)
}

func nextStage(s IngestStage) (IngestStage, bool) {
	switch s {
	case StageReceived:
		return StageContentVerified, true
	case StageContentVerified:
		return StageDerivativesGenerated, true
	case StageDerivativesGenerated:
		return StageIndexed, true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s IngestStage) IsTerminal() bool {
	return s == StageIndexed || s == StageFailed
}
