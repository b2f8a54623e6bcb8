package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// ExtractionService drives the extraction lifecycle of documents.
// Every write re-reads current state, so callers may hold stale entities.
type ExtractionService interface {
	// StartExtraction creates a Pending attempt with the document's default
	// method. With an active attempt it fails with ErrExtractionInProgress,
	// unless forceReextract is set, in which case the active attempt is
	// superseded.
	StartExtraction(ctx context.Context, documentID domain.DocumentID, forceReextract bool) (*domain.FileExtraction, error)

	// StartExtractionWithMethod is StartExtraction with an explicit method.
	// Returns ErrMethodNotApplicable if the method cannot process the document.
	StartExtractionWithMethod(
		ctx context.Context,
		documentID domain.DocumentID,
		method domain.ExtractionMethod,
		forceReextract bool,
	) (*domain.FileExtraction, error)

	// BeginProcessing claims a Pending attempt.
	BeginProcessing(ctx context.Context, extractionID domain.ExtractionID) (*domain.FileExtraction, error)

	// CompleteExtraction stores content as the document's next content
	// version and completes the attempt.
	CompleteExtraction(
		ctx context.Context,
		extractionID domain.ExtractionID,
		content *domain.RichTextDocument,
	) (*domain.ExtractedDocument, error)

	// FailExtraction moves a non-terminal attempt to Error.
	FailExtraction(ctx context.Context, extractionID domain.ExtractionID, reason string, retryable bool) (*domain.FileExtraction, error)

	// Summary returns a read-only view of a document's extraction state.
	Summary(ctx context.Context, documentID domain.DocumentID) (*ExtractionSummary, error)
}

// ExtractionSummary is a read-only projection of one document's extractions.
type ExtractionSummary struct {
	// Document is the source document.
	Document *domain.OriginalDocument

	// Active is the Pending or Processing attempt, if any.
	Active *domain.FileExtraction

	// Attempts is the number of attempts ever made.
	Attempts int

	// Failed is the number of attempts that ended in Error.
	Failed int

	// LastAttemptAt is when the latest attempt was created.
	LastAttemptAt *time.Time

	// LatestStatus is the status of the latest attempt. Empty when the
	// document has never been extracted.
	LatestStatus domain.ExtractionStatus

	// LastSuccessAt is when an attempt last completed.
	LastSuccessAt *time.Time

	// Latest is the newest extracted content, if any.
	Latest *domain.ExtractedDocument

	// LatestVersion is 0 until the first extraction completes.
	LatestVersion int
}

// HasActiveExtraction reports whether an attempt is Pending or Processing.
func (s *ExtractionSummary) HasActiveExtraction() bool {
	return s.Active != nil
}
