package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure ExtractionRepository implements the interface.
var _ driven.ExtractionRepository = (*ExtractionRepository)(nil)

// ExtractionRepository is an in-memory implementation of driven.ExtractionRepository.
type ExtractionRepository struct {
	mu          sync.RWMutex
	extractions map[domain.ExtractionID]*domain.FileExtraction
}

// NewExtractionRepository creates a new in-memory extraction repository.
func NewExtractionRepository() *ExtractionRepository {
	return &ExtractionRepository{
		extractions: make(map[domain.ExtractionID]*domain.FileExtraction),
	}
}

// FindByID retrieves an attempt by ID.
func (r *ExtractionRepository) FindByID(_ context.Context, id domain.ExtractionID) (*domain.FileExtraction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractions[id]
	if !ok {
		return nil, domain.NewRepositoryError(domain.RepoNotFound, "extractions.find_by_id",
			fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id))
	}
	return e.Clone(), nil
}

// FindByDocument returns a document's attempts, oldest first.
func (r *ExtractionRepository) FindByDocument(_ context.Context, documentID domain.DocumentID) ([]*domain.FileExtraction, error) {
	return r.filter(func(e *domain.FileExtraction) bool { return e.DocumentID() == documentID }), nil
}

// FindActiveByDocument returns a document's Pending or Processing attempts.
func (r *ExtractionRepository) FindActiveByDocument(
	_ context.Context,
	documentID domain.DocumentID,
) ([]*domain.FileExtraction, error) {
	return r.filter(func(e *domain.FileExtraction) bool {
		return e.DocumentID() == documentID && e.Status().IsActive()
	}), nil
}

// FindByStatus returns attempts in one status, oldest first.
func (r *ExtractionRepository) FindByStatus(_ context.Context, status domain.ExtractionStatus) ([]*domain.FileExtraction, error) {
	return r.filter(func(e *domain.FileExtraction) bool { return e.Status() == status }), nil
}

// Save inserts or updates an attempt.
func (r *ExtractionRepository) Save(_ context.Context, extraction *domain.FileExtraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLocked("extractions.save", r.extractions, extraction); err != nil {
		return err
	}
	r.extractions[extraction.ID()] = extraction.Clone()
	return nil
}

// SaveAtomically saves every attempt in order, or none of them.
func (r *ExtractionRepository) SaveAtomically(_ context.Context, extractions ...*domain.FileExtraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := make(map[domain.ExtractionID]*domain.FileExtraction, len(r.extractions)+len(extractions))
	for id, e := range r.extractions {
		staged[id] = e
	}
	for _, e := range extractions {
		if err := r.checkLocked("extractions.save_atomically", staged, e); err != nil {
			return err
		}
		staged[e.ID()] = e.Clone()
	}
	r.extractions = staged
	return nil
}

// SaveBatch saves each attempt independently.
func (r *ExtractionRepository) SaveBatch(_ context.Context, extractions []*domain.FileExtraction) (domain.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result domain.BatchResult
	for _, e := range extractions {
		id := ""
		if e != nil {
			id = e.ID().String()
		}
		if err := r.checkLocked("extractions.save_batch", r.extractions, e); err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: id, Err: err})
			continue
		}
		r.extractions[e.ID()] = e.Clone()
		result.Saved = append(result.Saved, id)
	}
	return result, nil
}

// checkLocked rejects nil attempts and a second active attempt for one document.
func (r *ExtractionRepository) checkLocked(
	op string,
	current map[domain.ExtractionID]*domain.FileExtraction,
	e *domain.FileExtraction,
) error {
	if e == nil {
		return domain.NewRepositoryError(domain.RepoValidation, op, fmt.Errorf("nil extraction"))
	}
	if !e.Status().IsActive() {
		return nil
	}
	for id, other := range current {
		if id != e.ID() && other.DocumentID() == e.DocumentID() && other.Status().IsActive() {
			return domain.NewRepositoryError(domain.RepoConstraint, op,
				fmt.Errorf("%w: document %s already has active extraction %s",
					domain.ErrExtractionInProgress, e.DocumentID(), id))
		}
	}
	return nil
}

// Delete removes an attempt.
func (r *ExtractionRepository) Delete(_ context.Context, id domain.ExtractionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extractions[id]; !ok {
		return domain.NewRepositoryError(domain.RepoNotFound, "extractions.delete",
			fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id))
	}
	delete(r.extractions, id)
	return nil
}

// DeleteByDocument removes a document's attempts.
func (r *ExtractionRepository) DeleteByDocument(_ context.Context, documentID domain.DocumentID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.extractions {
		if e.DocumentID() == documentID {
			delete(r.extractions, id)
			removed++
		}
	}
	return removed, nil
}

// Exists reports whether an attempt exists.
func (r *ExtractionRepository) Exists(_ context.Context, id domain.ExtractionID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractions[id]
	return ok, nil
}

// CountByStatus counts attempts per status.
func (r *ExtractionRepository) CountByStatus(_ context.Context) (map[domain.ExtractionStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.ExtractionStatus]int, 4)
	for _, status := range domain.AllExtractionStatuses() {
		counts[status] = 0
	}
	for _, e := range r.extractions {
		counts[e.Status()]++
	}
	return counts, nil
}

// Statistics summarises attempts created within tr.
func (r *ExtractionRepository) Statistics(_ context.Context, tr domain.TimeRange) (domain.ExtractionStatistics, error) {
	return domain.ComputeExtractionStatistics(r.filter(func(e *domain.FileExtraction) bool {
		return tr.Contains(e.CreatedAt())
	})), nil
}

// PerformanceMetrics aggregates attempts created within tr per method.
func (r *ExtractionRepository) PerformanceMetrics(_ context.Context, tr domain.TimeRange) ([]domain.MethodPerformance, error) {
	return domain.ComputeMethodPerformance(r.filter(func(e *domain.FileExtraction) bool {
		return tr.Contains(e.CreatedAt())
	})), nil
}

// ListPaginated returns one page of attempts, newest first.
func (r *ExtractionRepository) ListPaginated(ctx context.Context, offset, limit int) (domain.Page[*domain.FileExtraction], error) {
	return r.Search(ctx, domain.NewExtractionSearchCriteria().WithPage(offset, limit))
}

// Search runs a criteria query.
func (r *ExtractionRepository) Search(
	_ context.Context,
	criteria domain.ExtractionSearchCriteria,
) (domain.Page[*domain.FileExtraction], error) {
	if err := criteria.Validate(); err != nil {
		return domain.Page[*domain.FileExtraction]{}, domain.NewRepositoryError(domain.RepoValidation, "extractions.search", err)
	}
	matches := r.filter(criteria.Matches)
	field, direction := criteria.Sort()
	domain.SortExtractions(matches, field, direction)
	return domain.Paginate(matches, criteria.Offset(), criteria.Limit()), nil
}

// filter returns clones of attempts accepted by keep, oldest first.
func (r *ExtractionRepository) filter(keep func(*domain.FileExtraction) bool) []*domain.FileExtraction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.FileExtraction, 0)
	for _, e := range r.extractions {
		if keep(e) {
			result = append(result, e.Clone())
		}
	}
	domain.SortExtractions(result, domain.SortExtractionsByCreatedAt, domain.Ascending)
	return result
}
