package driven

import (
	"context"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// ExtractedDocumentRepository persists extraction outputs.
// A document may not hold two outputs with the same content version; that is
// a constraint violation.
type ExtractedDocumentRepository interface {
	// FindByID retrieves an output. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id domain.ExtractedDocumentID) (*domain.ExtractedDocument, error)

	// FindByExtraction retrieves the output of an attempt. Returns ErrNotFound if absent.
	FindByExtraction(ctx context.Context, extractionID domain.ExtractionID) (*domain.ExtractedDocument, error)

	// FindByDocument returns every output of a document, newest version first.
	FindByDocument(ctx context.Context, documentID domain.DocumentID) ([]*domain.ExtractedDocument, error)

	// FindLatestByDocument returns the highest content version.
	// Returns ErrNotFound if the document was never extracted.
	FindLatestByDocument(ctx context.Context, documentID domain.DocumentID) (*domain.ExtractedDocument, error)

	// LatestVersion returns the highest content version, or 0 if none.
	LatestVersion(ctx context.Context, documentID domain.DocumentID) (int, error)

	// VersionHistory lists a document's versions, oldest first.
	VersionHistory(ctx context.Context, documentID domain.DocumentID) ([]domain.ContentVersionInfo, error)

	// Save inserts an output. Outputs are immutable; saving an existing ID
	// is ErrAlreadyExists.
	Save(ctx context.Context, doc *domain.ExtractedDocument) error

	// Delete removes an output. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id domain.ExtractedDocumentID) error

	// DeleteByDocument removes a document's outputs and returns how many.
	DeleteByDocument(ctx context.Context, documentID domain.DocumentID) (int, error)

	// Exists reports whether an output exists.
	Exists(ctx context.Context, id domain.ExtractedDocumentID) (bool, error)

	// Count returns the number of stored outputs.
	Count(ctx context.Context) (int, error)

	// ListPaginated returns one page of outputs, newest first.
	ListPaginated(ctx context.Context, offset, limit int) (domain.Page[*domain.ExtractedDocument], error)

	// SupportedExportFormats lists the formats outputs can be exported as.
	SupportedExportFormats() []domain.ExportFormat
}
