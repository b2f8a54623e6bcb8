package driven

import (
	"context"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// ExtractionRepository persists extraction attempts.
//
// Implementations must refuse to hold two active (Pending or Processing)
// attempts for one document and report the conflict as
// domain.ErrConstraintViolation. This closes the read-then-write window of
// the aggregate's own check under concurrent callers.
type ExtractionRepository interface {
	// FindByID retrieves an attempt. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id domain.ExtractionID) (*domain.FileExtraction, error)

	// FindByDocument returns a document's attempts, oldest first.
	FindByDocument(ctx context.Context, documentID domain.DocumentID) ([]*domain.FileExtraction, error)

	// FindActiveByDocument returns a document's Pending or Processing attempts.
	FindActiveByDocument(ctx context.Context, documentID domain.DocumentID) ([]*domain.FileExtraction, error)

	// FindByStatus returns attempts in one status, oldest first.
	FindByStatus(ctx context.Context, status domain.ExtractionStatus) ([]*domain.FileExtraction, error)

	// Save inserts or updates an attempt.
	Save(ctx context.Context, extraction *domain.FileExtraction) error

	// SaveAtomically saves every attempt in order, or none of them.
	// Used to supersede an active attempt and create its replacement.
	SaveAtomically(ctx context.Context, extractions ...*domain.FileExtraction) error

	// SaveBatch saves each attempt independently and reports failures explicitly.
	SaveBatch(ctx context.Context, extractions []*domain.FileExtraction) (domain.BatchResult, error)

	// Delete removes an attempt. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id domain.ExtractionID) error

	// DeleteByDocument removes a document's attempts and returns how many.
	DeleteByDocument(ctx context.Context, documentID domain.DocumentID) (int, error)

	// Exists reports whether an attempt exists.
	Exists(ctx context.Context, id domain.ExtractionID) (bool, error)

	// CountByStatus counts attempts per status. Every status is present.
	CountByStatus(ctx context.Context) (map[domain.ExtractionStatus]int, error)

	// Statistics summarises attempts created within r.
	Statistics(ctx context.Context, r domain.TimeRange) (domain.ExtractionStatistics, error)

	// PerformanceMetrics aggregates attempts created within r per method.
	PerformanceMetrics(ctx context.Context, r domain.TimeRange) ([]domain.MethodPerformance, error)

	// ListPaginated returns one page of attempts, newest first.
	ListPaginated(ctx context.Context, offset, limit int) (domain.Page[*domain.FileExtraction], error)

	// Search runs a criteria query.
	Search(ctx context.Context, criteria domain.ExtractionSearchCriteria) (domain.Page[*domain.FileExtraction], error)
}
