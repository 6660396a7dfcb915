package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrProcessNotFound   = errors.New("process not found")
	ErrRecordNotFound    = errors.New("record not found")
	ErrNoInitialStage    = errors.New("no stage is marked as initial")
	ErrRecordsNotAllowed = errors.New("process does not allow record creation")
	ErrVersionConflict   = errors.New("record was modified concurrently")
)

// InvalidStageConfigurationError is returned when a candidate stage
// set violates the single-initial/single-final invariant or declares
// an inconsistent field schema.
type InvalidStageConfigurationError struct {
	Reason string
}

func (e *InvalidStageConfigurationError) Error() string {
	return fmt.Sprintf("invalid stage configuration: %s", e.Reason)
}

// StageInUseConflictError is returned when a stage replacement would
// remove a stage that is the current stage of existing records.
type StageInUseConflictError struct {
	StageID string
	Records int
}

func (e *StageInUseConflictError) Error() string {
	return fmt.Sprintf("stage %q is the current stage of %d record(s)", e.StageID, e.Records)
}

// UnknownStageError is returned when a stage id does not belong to the
// process in question.
type UnknownStageError struct {
	StageID   string
	ProcessID string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("stage %q does not belong to process %q", e.StageID, e.ProcessID)
}

// ValidationError is returned when record creation is rejected because
// required fields are absent from the initial data.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}
