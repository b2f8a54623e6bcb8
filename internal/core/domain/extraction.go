package domain

import (
	"fmt"
	"time"
)

// SupersededReason is recorded on an attempt replaced by a forced re-extraction.
const SupersededReason = "superseded by re-extraction"

// ExtractionStatus is the lifecycle state of a FileExtraction.
type ExtractionStatus string

// Extraction statuses.
const (
	// ExtractionPending is the initial state of a new attempt.
	ExtractionPending ExtractionStatus = "pending"

	// ExtractionProcessing means a worker has claimed the attempt.
	ExtractionProcessing ExtractionStatus = "processing"

	// ExtractionCompleted means the attempt produced an ExtractedDocument.
	ExtractionCompleted ExtractionStatus = "completed"

	// ExtractionError means the attempt failed or was superseded.
	ExtractionError ExtractionStatus = "error"
)

// AllExtractionStatuses returns every status in lifecycle order.
func AllExtractionStatuses() []ExtractionStatus {
	return []ExtractionStatus{ExtractionPending, ExtractionProcessing, ExtractionCompleted, ExtractionError}
}

// IsValid returns true if the status is recognised.
func (s ExtractionStatus) IsValid() bool {
	switch s {
	case ExtractionPending, ExtractionProcessing, ExtractionCompleted, ExtractionError:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ExtractionStatus) IsTerminal() bool {
	return s == ExtractionCompleted || s == ExtractionError
}

// IsActive reports whether the status is Pending or Processing.
func (s ExtractionStatus) IsActive() bool {
	return s == ExtractionPending || s == ExtractionProcessing
}

// String returns the string representation.
func (s ExtractionStatus) String() string {
	return string(s)
}

// ExtractionFailure describes why an attempt ended in ExtractionError.
type ExtractionFailure struct {
	// Reason is a human-readable explanation.
	Reason string

	// Retryable is true for transient failures (I/O, parser crash).
	Retryable bool

	// Superseded is true when a forced re-extraction replaced the attempt.
	Superseded bool
}

// FileExtraction is one extraction attempt for a document.
// A new attempt is always a new record; terminal attempts never come back.
type FileExtraction struct {
	id          ExtractionID
	documentID  DocumentID
	method      ExtractionMethod
	status      ExtractionStatus
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	failure     *ExtractionFailure
}

// FileExtractionState is the flat, persistable form of a FileExtraction.
type FileExtractionState struct {
	ID          ExtractionID
	DocumentID  DocumentID
	Method      ExtractionMethod
	Status      ExtractionStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Failure     *ExtractionFailure
}

// NewFileExtraction creates a Pending attempt.
func NewFileExtraction(documentID DocumentID, method ExtractionMethod, now time.Time) (*FileExtraction, error) {
	if documentID.IsZero() {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: unknown extraction method %q", ErrInvalidInput, method)
	}
	return &FileExtraction{
		id:         NewExtractionID(),
		documentID: documentID,
		method:     method,
		status:     ExtractionPending,
		createdAt:  now,
	}, nil
}

// RestoreFileExtraction rebuilds an attempt from persisted state.
func RestoreFileExtraction(state FileExtractionState) (*FileExtraction, error) {
	switch {
	case state.ID.IsZero():
		return nil, fmt.Errorf("%w: extraction id is required", ErrInvalidInput)
	case state.DocumentID.IsZero():
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	case !state.Method.IsValid():
		return nil, fmt.Errorf("%w: unknown extraction method %q", ErrInvalidInput, state.Method)
	case !state.Status.IsValid():
		return nil, fmt.Errorf("%w: unknown extraction status %q", ErrInvalidInput, state.Status)
	case state.Status == ExtractionError && state.Failure == nil:
		return nil, fmt.Errorf("%w: error status without failure detail", ErrInvalidInput)
	}
	e := &FileExtraction{
		id:          state.ID,
		documentID:  state.DocumentID,
		method:      state.Method,
		status:      state.Status,
		createdAt:   state.CreatedAt,
		startedAt:   copyTime(state.StartedAt),
		completedAt: copyTime(state.CompletedAt),
	}
	if state.Failure != nil {
		f := *state.Failure
		e.failure = &f
	}
	return e, nil
}

// ID returns the attempt identity.
func (e *FileExtraction) ID() ExtractionID { return e.id }

// DocumentID returns the targeted document.
func (e *FileExtraction) DocumentID() DocumentID { return e.documentID }

// Method returns the extraction method.
func (e *FileExtraction) Method() ExtractionMethod { return e.method }

// Status returns the current lifecycle state.
func (e *FileExtraction) Status() ExtractionStatus { return e.status }

// CreatedAt returns when the attempt was created.
func (e *FileExtraction) CreatedAt() time.Time { return e.createdAt }

// StartedAt returns when a worker claimed the attempt, if it has been claimed.
func (e *FileExtraction) StartedAt() *time.Time { return copyTime(e.startedAt) }

// CompletedAt returns when the attempt reached a terminal state.
func (e *FileExtraction) CompletedAt() *time.Time { return copyTime(e.completedAt) }

// Failure returns the failure detail for ExtractionError attempts.
func (e *FileExtraction) Failure() *ExtractionFailure {
	if e.failure == nil {
		return nil
	}
	f := *e.failure
	return &f
}

// IsSuperseded reports whether a forced re-extraction replaced the attempt.
func (e *FileExtraction) IsSuperseded() bool {
	return e.failure != nil && e.failure.Superseded
}

// Duration returns the processing time of a finished attempt.
func (e *FileExtraction) Duration() (time.Duration, bool) {
	if e.startedAt == nil || e.completedAt == nil {
		return 0, false
	}
	return e.completedAt.Sub(*e.startedAt), true
}

// MarkProcessing moves Pending to Processing.
func (e *FileExtraction) MarkProcessing(now time.Time) error {
	if e.status != ExtractionPending {
		return e.transitionError(ExtractionProcessing)
	}
	e.status = ExtractionProcessing
	e.startedAt = &now
	return nil
}

// MarkCompleted moves Processing to Completed.
func (e *FileExtraction) MarkCompleted(now time.Time) error {
	if e.status != ExtractionProcessing {
		return e.transitionError(ExtractionCompleted)
	}
	e.status = ExtractionCompleted
	e.completedAt = &now
	return nil
}

// MarkFailed moves a non-terminal attempt to Error.
func (e *FileExtraction) MarkFailed(reason string, retryable bool, now time.Time) error {
	if e.status.IsTerminal() {
		return e.transitionError(ExtractionError)
	}
	e.status = ExtractionError
	e.completedAt = &now
	e.failure = &ExtractionFailure{Reason: reason, Retryable: retryable}
	return nil
}

// Supersede records the attempt as replaced by a forced re-extraction.
func (e *FileExtraction) Supersede(now time.Time) error {
	if e.status.IsTerminal() {
		return e.transitionError(ExtractionError)
	}
	e.status = ExtractionError
	e.completedAt = &now
	e.failure = &ExtractionFailure{Reason: SupersededReason, Superseded: true}
	return nil
}

func (e *FileExtraction) transitionError(to ExtractionStatus) error {
	return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, e.id, e.status, to)
}

// State returns a persistable snapshot.
func (e *FileExtraction) State() FileExtractionState {
	return FileExtractionState{
		ID:          e.id,
		DocumentID:  e.documentID,
		Method:      e.method,
		Status:      e.status,
		CreatedAt:   e.createdAt,
		StartedAt:   copyTime(e.startedAt),
		CompletedAt: copyTime(e.completedAt),
		Failure:     e.Failure(),
	}
}

// Clone returns an independent copy.
func (e *FileExtraction) Clone() *FileExtraction {
	c, _ := RestoreFileExtraction(e.State())
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
