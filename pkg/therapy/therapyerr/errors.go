package therapyerr

import "fmt"

// UnsupportedConditionError: the diagnosis is outside the supported
// condition registry. Halts the pipeline at stage 0, non-fatal to the
// conversation.
type UnsupportedConditionError struct {
	Diagnosis string
}

func (e *UnsupportedConditionError) Error() string {
	return fmt.Sprintf("unsupported condition: %q", e.Diagnosis)
}

// FatalStageError: stage 1 (baseline requirements) failed. The pipeline
// aborts entirely and no partial content is returned.
type FatalStageError struct {
	Stage  int
	Reason string
}

func (e *FatalStageError) Error() string {
	return fmt.Sprintf("stage %d failed fatally: %s", e.Stage, e.Reason)
}
