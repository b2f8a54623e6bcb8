package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure DocumentRepository implements the interface.
var _ driven.DocumentRepository = (*DocumentRepository)(nil)

// DocumentRepository is an in-memory implementation of driven.DocumentRepository.
type DocumentRepository struct {
	mu        sync.RWMutex
	documents map[domain.DocumentID]*domain.OriginalDocument
}

// NewDocumentRepository creates a new in-memory document repository.
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{
		documents: make(map[domain.DocumentID]*domain.OriginalDocument),
	}
}

// FindByID retrieves a document by ID.
func (r *DocumentRepository) FindByID(_ context.Context, id domain.DocumentID) (*domain.OriginalDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, domain.NewRepositoryError(domain.RepoNotFound, "documents.find_by_id",
			fmt.Errorf("document %s", id))
	}
	return doc.Clone(), nil
}

// FindByProject returns all documents of a project ordered by file name.
func (r *DocumentRepository) FindByProject(_ context.Context, projectID domain.ProjectID) ([]*domain.OriginalDocument, error) {
	return r.filter(projectID, func(*domain.OriginalDocument) bool { return true }), nil
}

// FindByPath retrieves the document at path within a project.
func (r *DocumentRepository) FindByPath(
	_ context.Context,
	projectID domain.ProjectID,
	path domain.FilePath,
) (*domain.OriginalDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if doc := r.atPathLocked(projectID, path); doc != nil {
		return doc.Clone(), nil
	}
	return nil, domain.NewRepositoryError(domain.RepoNotFound, "documents.find_by_path",
		fmt.Errorf("no document at %s", path))
}

// FindByType returns a project's documents of one type.
func (r *DocumentRepository) FindByType(
	_ context.Context,
	projectID domain.ProjectID,
	docType domain.DocumentType,
) ([]*domain.OriginalDocument, error) {
	return r.filter(projectID, func(d *domain.OriginalDocument) bool { return d.Type() == docType }), nil
}

// FindByNamePattern returns documents whose file name contains pattern.
func (r *DocumentRepository) FindByNamePattern(
	_ context.Context,
	projectID domain.ProjectID,
	pattern string,
) ([]*domain.OriginalDocument, error) {
	criteria := domain.NewDocumentSearchCriteria(projectID).WithNamePattern(pattern)
	return r.filter(projectID, criteria.Matches), nil
}

// FindExtractable returns documents within their type's size ceiling.
func (r *DocumentRepository) FindExtractable(_ context.Context, projectID domain.ProjectID) ([]*domain.OriginalDocument, error) {
	return r.filter(projectID, (*domain.OriginalDocument).IsExtractable), nil
}

// FindModifiedSince returns documents modified at or after since.
func (r *DocumentRepository) FindModifiedSince(
	_ context.Context,
	projectID domain.ProjectID,
	since time.Time,
) ([]*domain.OriginalDocument, error) {
	return r.filter(projectID, func(d *domain.OriginalDocument) bool { return !d.ModifiedAt().Before(since) }), nil
}

// Save inserts or updates a document.
func (r *DocumentRepository) Save(_ context.Context, doc *domain.OriginalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked("documents.save", doc)
}

func (r *DocumentRepository) saveLocked(op string, doc *domain.OriginalDocument) error {
	if doc == nil {
		return domain.NewRepositoryError(domain.RepoValidation, op, fmt.Errorf("nil document"))
	}
	if existing := r.atPathLocked(doc.ProjectID(), doc.Path()); existing != nil && existing.ID() != doc.ID() {
		return domain.NewRepositoryError(domain.RepoConstraint, op,
			fmt.Errorf("%w: path %s already tracked by %s", domain.ErrAlreadyExists, doc.Path(), existing.ID()))
	}
	r.documents[doc.ID()] = doc.Clone()
	return nil
}

// SaveBatch saves each document independently.
func (r *DocumentRepository) SaveBatch(_ context.Context, docs []*domain.OriginalDocument) (domain.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result domain.BatchResult
	for _, doc := range docs {
		id := ""
		if doc != nil {
			id = doc.ID().String()
		}
		if err := r.saveLocked("documents.save_batch", doc); err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: id, Err: err})
			continue
		}
		result.Saved = append(result.Saved, id)
	}
	return result, nil
}

// Delete removes a document.
func (r *DocumentRepository) Delete(_ context.Context, id domain.DocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.documents[id]; !ok {
		return domain.NewRepositoryError(domain.RepoNotFound, "documents.delete", fmt.Errorf("document %s", id))
	}
	delete(r.documents, id)
	return nil
}

// DeleteByProject removes every document of a project.
func (r *DocumentRepository) DeleteByProject(_ context.Context, projectID domain.ProjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, doc := range r.documents {
		if doc.ProjectID() == projectID {
			delete(r.documents, id)
			removed++
		}
	}
	return removed, nil
}

// Exists reports whether a document exists.
func (r *DocumentRepository) Exists(_ context.Context, id domain.DocumentID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.documents[id]
	return ok, nil
}

// ExistsAtPath reports whether a project already tracks path.
func (r *DocumentRepository) ExistsAtPath(_ context.Context, projectID domain.ProjectID, path domain.FilePath) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.atPathLocked(projectID, path) != nil, nil
}

// CountByProject counts a project's documents.
func (r *DocumentRepository) CountByProject(_ context.Context, projectID domain.ProjectID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, doc := range r.documents {
		if doc.ProjectID() == projectID {
			count++
		}
	}
	return count, nil
}

// CountByType counts a project's documents per type.
func (r *DocumentRepository) CountByType(_ context.Context, projectID domain.ProjectID) (map[domain.DocumentType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.DocumentType]int)
	for _, doc := range r.documents {
		if doc.ProjectID() == projectID {
			counts[doc.Type()]++
		}
	}
	return counts, nil
}

// TotalSizeByProject sums a project's document sizes.
func (r *DocumentRepository) TotalSizeByProject(_ context.Context, projectID domain.ProjectID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, doc := range r.documents {
		if doc.ProjectID() == projectID {
			total += doc.Size()
		}
	}
	return total, nil
}

// FindDuplicates groups a project's documents sharing a checksum.
func (r *DocumentRepository) FindDuplicates(_ context.Context, projectID domain.ProjectID) ([]domain.DuplicateGroup, error) {
	return domain.GroupDuplicates(r.filter(projectID, func(*domain.OriginalDocument) bool { return true })), nil
}

// UpdateChecksum records new content for a document.
func (r *DocumentRepository) UpdateChecksum(
	_ context.Context,
	id domain.DocumentID,
	checksum string,
	size int64,
	modifiedAt time.Time,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return domain.NewRepositoryError(domain.RepoNotFound, "documents.update_checksum", fmt.Errorf("document %s", id))
	}
	updated := doc.Clone()
	if err := updated.UpdateChecksum(checksum, size, modifiedAt); err != nil {
		return domain.NewRepositoryError(domain.RepoValidation, "documents.update_checksum", err)
	}
	r.documents[id] = updated
	return nil
}

// ListPaginated returns one page of a project's documents ordered by file name.
func (r *DocumentRepository) ListPaginated(
	ctx context.Context,
	projectID domain.ProjectID,
	offset, limit int,
) (domain.Page[*domain.OriginalDocument], error) {
	return r.Search(ctx, domain.NewDocumentSearchCriteria(projectID).WithPage(offset, limit))
}

// Search runs a criteria query.
func (r *DocumentRepository) Search(
	_ context.Context,
	criteria domain.DocumentSearchCriteria,
) (domain.Page[*domain.OriginalDocument], error) {
	if err := criteria.Validate(); err != nil {
		return domain.Page[*domain.OriginalDocument]{}, domain.NewRepositoryError(domain.RepoValidation, "documents.search", err)
	}
	matches := r.filter(criteria.ProjectID(), criteria.Matches)
	field, direction := criteria.Sort()
	domain.SortDocuments(matches, field, direction)
	return domain.Paginate(matches, criteria.Offset(), criteria.Limit()), nil
}

// filter returns clones of a project's documents accepted by keep, ordered by file name.
func (r *DocumentRepository) filter(projectID domain.ProjectID, keep func(*domain.OriginalDocument) bool) []*domain.OriginalDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.OriginalDocument, 0)
	for _, doc := range r.documents {
		if doc.ProjectID() == projectID && keep(doc) {
			result = append(result, doc.Clone())
		}
	}
	domain.SortDocuments(result, domain.SortByFileName, domain.Ascending)
	return result
}

func (r *DocumentRepository) atPathLocked(projectID domain.ProjectID, path domain.FilePath) *domain.OriginalDocument {
	for _, doc := range r.documents {
		if doc.ProjectID() == projectID && doc.Path() == path {
			return doc
		}
	}
	return nil
}
