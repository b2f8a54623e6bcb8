package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// DocumentRepository persists original documents.
// Implementations must return equal results for equal queries; ordering ties
// break on document ID.
type DocumentRepository interface {
	// FindByID retrieves a document. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id domain.DocumentID) (*domain.OriginalDocument, error)

	// FindByProject returns all documents of a project ordered by file name.
	FindByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.OriginalDocument, error)

	// FindByPath retrieves the document at path within a project.
	// Returns ErrNotFound if absent.
	FindByPath(ctx context.Context, projectID domain.ProjectID, path domain.FilePath) (*domain.OriginalDocument, error)

	// FindByType returns a project's documents of one type.
	FindByType(ctx context.Context, projectID domain.ProjectID, docType domain.DocumentType) ([]*domain.OriginalDocument, error)

	// FindByNamePattern returns documents whose file name contains pattern, ignoring case.
	FindByNamePattern(ctx context.Context, projectID domain.ProjectID, pattern string) ([]*domain.OriginalDocument, error)

	// FindExtractable returns documents within their type's size ceiling.
	FindExtractable(ctx context.Context, projectID domain.ProjectID) ([]*domain.OriginalDocument, error)

	// FindModifiedSince returns documents modified at or after since.
	FindModifiedSince(ctx context.Context, projectID domain.ProjectID, since time.Time) ([]*domain.OriginalDocument, error)

	// Save inserts or updates a document. Two documents of one project may
	// not share a path; that is a constraint violation.
	Save(ctx context.Context, doc *domain.OriginalDocument) error

	// SaveBatch saves each document independently and reports failures
	// explicitly. The returned error is reserved for failures that prevent
	// the batch from running at all.
	SaveBatch(ctx context.Context, docs []*domain.OriginalDocument) (domain.BatchResult, error)

	// Delete removes a document. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id domain.DocumentID) error

	// DeleteByProject removes every document of a project and returns how many.
	DeleteByProject(ctx context.Context, projectID domain.ProjectID) (int, error)

	// Exists reports whether a document exists.
	Exists(ctx context.Context, id domain.DocumentID) (bool, error)

	// ExistsAtPath reports whether a project already tracks path.
	ExistsAtPath(ctx context.Context, projectID domain.ProjectID, path domain.FilePath) (bool, error)

	// CountByProject counts a project's documents.
	CountByProject(ctx context.Context, projectID domain.ProjectID) (int, error)

	// CountByType counts a project's documents per type. Types without
	// documents are omitted.
	CountByType(ctx context.Context, projectID domain.ProjectID) (map[domain.DocumentType]int, error)

	// TotalSizeByProject sums a project's document sizes in bytes.
	TotalSizeByProject(ctx context.Context, projectID domain.ProjectID) (int64, error)

	// FindDuplicates groups a project's documents sharing a checksum.
	// Every group has at least two members.
	FindDuplicates(ctx context.Context, projectID domain.ProjectID) ([]domain.DuplicateGroup, error)

	// UpdateChecksum records new content for a document.
	// Returns ErrNotFound if absent.
	UpdateChecksum(ctx context.Context, id domain.DocumentID, checksum string, size int64, modifiedAt time.Time) error

	// ListPaginated returns one page of a project's documents ordered by file name.
	ListPaginated(ctx context.Context, projectID domain.ProjectID, offset, limit int) (domain.Page[*domain.OriginalDocument], error)

	// Search runs a criteria query.
	Search(ctx context.Context, criteria domain.DocumentSearchCriteria) (domain.Page[*domain.OriginalDocument], error)
}
