package derive

import "fmt"

// Phase identifies which step of a projection rebuild failed.
type Phase string

const (
	PhaseClear  Phase = "clear"
	PhaseFetch  Phase = "fetch"
	PhaseInsert Phase = "insert"
)

// RebuildError reports a phase-level failure of one projection rebuild. A
// zero Phase means the failure happened outside the three classified phases
// and was wrapped at the builder's outer boundary.
type RebuildError struct {
	Projection string
	Phase      Phase
	Cause      error
}

func (e *RebuildError) Error() string {
	if e.Phase == "" {
		return fmt.Sprintf("derive: %s rebuild failed: %v", e.Projection, e.Cause)
	}
	return fmt.Sprintf("derive: %s rebuild failed (phase %s): %v", e.Projection, e.Phase, e.Cause)
}

func (e *RebuildError) Unwrap() error { return e.Cause }

// RecordError reports a single-user conversion failure during the ods_users
// rebuild. It is logged at warning level and never escalates past the
// per-user boundary.
type RecordError struct {
	UserID int64
	Cause  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("derive: invalid data structure for user %d: %v", e.UserID, e.Cause)
}

func (e *RecordError) Unwrap() error { return e.Cause }
