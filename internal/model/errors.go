package model

import (
	"errors"
	"fmt"
)

// ErrAnalysisFailed is the only error the analysis pipeline returns for
// unexpected failures. The cause is wrapped for logging but callers should
// not branch on it.
var ErrAnalysisFailed = errors.New("analysis failed")

// ErrOverlappingMerges marks a sheet whose merge regions overlap. The sheet
// is skipped; other sheets continue.
var ErrOverlappingMerges = errors.New("overlapping merged regions")

// StructuralError wraps a sheet-level failure (corrupt sheet, overlapping
// merge set) that stops analysis of that sheet only.
type StructuralError struct {
	Sheet string
	Err   error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error on sheet %q: %v", e.Sheet, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// AnalysisFailure wraps an unexpected panic or error caught at the pipeline
// boundary as ErrAnalysisFailed with the cause retained for logs.
func AnalysisFailure(cause error) error {
	return fmt.Errorf("%w: %v", ErrAnalysisFailed, cause)
}
