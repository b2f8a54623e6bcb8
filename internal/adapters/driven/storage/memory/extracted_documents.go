package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure ExtractedDocumentRepository implements the interface.
var _ driven.ExtractedDocumentRepository = (*ExtractedDocumentRepository)(nil)

// ExtractedDocumentRepository is an in-memory implementation of
// driven.ExtractedDocumentRepository. Outputs are kept as state snapshots.
type ExtractedDocumentRepository struct {
	mu      sync.RWMutex
	outputs map[domain.ExtractedDocumentID]domain.ExtractedDocumentState
}

// NewExtractedDocumentRepository creates a new in-memory extracted document repository.
func NewExtractedDocumentRepository() *ExtractedDocumentRepository {
	return &ExtractedDocumentRepository{
		outputs: make(map[domain.ExtractedDocumentID]domain.ExtractedDocumentState),
	}
}

// FindByID retrieves an output by ID.
func (r *ExtractedDocumentRepository) FindByID(
	_ context.Context,
	id domain.ExtractedDocumentID,
) (*domain.ExtractedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.outputs[id]
	if !ok {
		return nil, domain.NewRepositoryError(domain.RepoNotFound, "extracted_documents.find_by_id",
			fmt.Errorf("extracted document %s", id))
	}
	return restore("extracted_documents.find_by_id", state)
}

// FindByExtraction retrieves the output of an attempt.
func (r *ExtractedDocumentRepository) FindByExtraction(
	_ context.Context,
	extractionID domain.ExtractionID,
) (*domain.ExtractedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, state := range r.outputs {
		if state.ExtractionID == extractionID {
			return restore("extracted_documents.find_by_extraction", state)
		}
	}
	return nil, domain.NewRepositoryError(domain.RepoNotFound, "extracted_documents.find_by_extraction",
		fmt.Errorf("no output for extraction %s", extractionID))
}

// FindByDocument returns every output of a document, newest version first.
func (r *ExtractedDocumentRepository) FindByDocument(
	_ context.Context,
	documentID domain.DocumentID,
) ([]*domain.ExtractedDocument, error) {
	states := r.forDocument(documentID)
	result := make([]*domain.ExtractedDocument, 0, len(states))
	for i := len(states) - 1; i >= 0; i-- {
		doc, err := restore("extracted_documents.find_by_document", states[i])
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, nil
}

// FindLatestByDocument returns the highest content version.
func (r *ExtractedDocumentRepository) FindLatestByDocument(
	_ context.Context,
	documentID domain.DocumentID,
) (*domain.ExtractedDocument, error) {
	states := r.forDocument(documentID)
	if len(states) == 0 {
		return nil, domain.NewRepositoryError(domain.RepoNotFound, "extracted_documents.find_latest",
			fmt.Errorf("document %s has no extracted content", documentID))
	}
	return restore("extracted_documents.find_latest", states[len(states)-1])
}

// LatestVersion returns the highest content version, or 0 if none.
func (r *ExtractedDocumentRepository) LatestVersion(_ context.Context, documentID domain.DocumentID) (int, error) {
	states := r.forDocument(documentID)
	if len(states) == 0 {
		return 0, nil
	}
	return states[len(states)-1].ContentVersion, nil
}

// VersionHistory lists a document's versions, oldest first.
func (r *ExtractedDocumentRepository) VersionHistory(
	_ context.Context,
	documentID domain.DocumentID,
) ([]domain.ContentVersionInfo, error) {
	states := r.forDocument(documentID)
	history := make([]domain.ContentVersionInfo, 0, len(states))
	for _, s := range states {
		history = append(history, domain.ContentVersionInfo{
			ExtractedDocumentID: s.ID,
			ExtractionID:        s.ExtractionID,
			ContentVersion:      s.ContentVersion,
			WordCount:           s.Statistics.WordCount,
			CreatedAt:           s.CreatedAt,
		})
	}
	return history, nil
}

// Save inserts an output.
func (r *ExtractedDocumentRepository) Save(_ context.Context, doc *domain.ExtractedDocument) error {
	if doc == nil {
		return domain.NewRepositoryError(domain.RepoValidation, "extracted_documents.save", fmt.Errorf("nil document"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outputs[doc.ID()]; ok {
		return domain.NewRepositoryError(domain.RepoConstraint, "extracted_documents.save",
			fmt.Errorf("%w: extracted document %s", domain.ErrAlreadyExists, doc.ID()))
	}
	for _, s := range r.outputs {
		if s.DocumentID == doc.DocumentID() && s.ContentVersion == doc.ContentVersion() {
			return domain.NewRepositoryError(domain.RepoConstraint, "extracted_documents.save",
				fmt.Errorf("%w: document %s already has content version %d",
					domain.ErrAlreadyExists, doc.DocumentID(), doc.ContentVersion()))
		}
	}
	r.outputs[doc.ID()] = doc.State()
	return nil
}

// Delete removes an output.
func (r *ExtractedDocumentRepository) Delete(_ context.Context, id domain.ExtractedDocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.outputs[id]; !ok {
		return domain.NewRepositoryError(domain.RepoNotFound, "extracted_documents.delete",
			fmt.Errorf("extracted document %s", id))
	}
	delete(r.outputs, id)
	return nil
}

// DeleteByDocument removes a document's outputs.
func (r *ExtractedDocumentRepository) DeleteByDocument(_ context.Context, documentID domain.DocumentID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.outputs {
		if s.DocumentID == documentID {
			delete(r.outputs, id)
			removed++
		}
	}
	return removed, nil
}

// Exists reports whether an output exists.
func (r *ExtractedDocumentRepository) Exists(_ context.Context, id domain.ExtractedDocumentID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outputs[id]
	return ok, nil
}

// Count returns the number of stored outputs.
func (r *ExtractedDocumentRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outputs), nil
}

// ListPaginated returns one page of outputs, newest first.
func (r *ExtractedDocumentRepository) ListPaginated(
	_ context.Context,
	offset, limit int,
) (domain.Page[*domain.ExtractedDocument], error) {
	if err := domain.ValidatePagination(offset, limit); err != nil {
		return domain.Page[*domain.ExtractedDocument]{}, domain.NewRepositoryError(
			domain.RepoValidation, "extracted_documents.list", err)
	}
	r.mu.RLock()
	states := make([]domain.ExtractedDocumentState, 0, len(r.outputs))
	for _, s := range r.outputs {
		states = append(states, s)
	}
	r.mu.RUnlock()
	sort.Slice(states, func(i, j int) bool {
		if !states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].CreatedAt.After(states[j].CreatedAt)
		}
		return states[i].ID.String() < states[j].ID.String()
	})
	page := domain.Paginate(states, offset, limit)
	items := make([]*domain.ExtractedDocument, 0, len(page.Items))
	for _, s := range page.Items {
		doc, err := restore("extracted_documents.list", s)
		if err != nil {
			return domain.Page[*domain.ExtractedDocument]{}, err
		}
		items = append(items, doc)
	}
	return domain.NewPage(items, page.TotalCount, offset, limit), nil
}

// SupportedExportFormats lists the formats outputs can be exported as.
func (r *ExtractedDocumentRepository) SupportedExportFormats() []domain.ExportFormat {
	return domain.AllExportFormats()
}

// forDocument returns a document's states ordered by content version.
func (r *ExtractedDocumentRepository) forDocument(documentID domain.DocumentID) []domain.ExtractedDocumentState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var states []domain.ExtractedDocumentState
	for _, s := range r.outputs {
		if s.DocumentID == documentID {
			states = append(states, s)
		}
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ContentVersion < states[j].ContentVersion })
	return states
}

func restore(op string, state domain.ExtractedDocumentState) (*domain.ExtractedDocument, error) {
	doc, err := domain.RestoreExtractedDocument(state)
	if err != nil {
		return nil, domain.NewRepositoryError(domain.RepoSerialization, op, err)
	}
	return doc, nil
}
