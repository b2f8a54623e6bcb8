package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

const extractedDocumentColumns = `id, extraction_id, document_id, method, content, statistics, content_version, created_at`

// extractedDocumentRepository implements driven.ExtractedDocumentRepository.
type extractedDocumentRepository struct {
	store *Store
}

var _ driven.ExtractedDocumentRepository = (*extractedDocumentRepository)(nil)

// FindByID retrieves an output by ID.
func (r *extractedDocumentRepository) FindByID(
	ctx context.Context,
	id domain.ExtractedDocumentID,
) (*domain.ExtractedDocument, error) {
	return r.one(ctx, "extracted_documents.find_by_id", `WHERE id = ?`, id.String())
}

// FindByExtraction retrieves the output of an attempt.
func (r *extractedDocumentRepository) FindByExtraction(
	ctx context.Context,
	extractionID domain.ExtractionID,
) (*domain.ExtractedDocument, error) {
	return r.one(ctx, "extracted_documents.find_by_extraction", `WHERE extraction_id = ?`, extractionID.String())
}

// FindByDocument returns every output of a document, newest version first.
func (r *extractedDocumentRepository) FindByDocument(
	ctx context.Context,
	documentID domain.DocumentID,
) ([]*domain.ExtractedDocument, error) {
	return r.query(ctx, "extracted_documents.find_by_document",
		`WHERE document_id = ? ORDER BY content_version DESC`, documentID.String())
}

// FindLatestByDocument returns the highest content version.
func (r *extractedDocumentRepository) FindLatestByDocument(
	ctx context.Context,
	documentID domain.DocumentID,
) (*domain.ExtractedDocument, error) {
	return r.one(ctx, "extracted_documents.find_latest",
		`WHERE document_id = ? ORDER BY content_version DESC LIMIT 1`, documentID.String())
}

// LatestVersion returns the highest content version, or 0 if none.
func (r *extractedDocumentRepository) LatestVersion(ctx context.Context, documentID domain.DocumentID) (int, error) {
	var version int
	err := r.store.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(content_version), 0) FROM extracted_documents WHERE document_id = ?`,
		documentID.String()).Scan(&version)
	if err != nil {
		return 0, mapError("extracted_documents.latest_version", err)
	}
	return version, nil
}

// VersionHistory lists a document's versions, oldest first.
func (r *extractedDocumentRepository) VersionHistory(
	ctx context.Context,
	documentID domain.DocumentID,
) ([]domain.ContentVersionInfo, error) {
	docs, err := r.query(ctx, "extracted_documents.version_history",
		`WHERE document_id = ? ORDER BY content_version ASC`, documentID.String())
	if err != nil {
		return nil, err
	}
	history := make([]domain.ContentVersionInfo, 0, len(docs))
	for _, d := range docs {
		history = append(history, d.VersionInfo())
	}
	return history, nil
}

// Save inserts an output.
func (r *extractedDocumentRepository) Save(ctx context.Context, doc *domain.ExtractedDocument) error {
	const op = "extracted_documents.save"
	if doc == nil {
		return domain.NewRepositoryError(domain.RepoValidation, op, fmt.Errorf("nil document"))
	}
	s := doc.State()
	content, err := json.Marshal(s.Content)
	if err != nil {
		return domain.NewRepositoryError(domain.RepoSerialization, op, fmt.Errorf("marshalling content: %w", err))
	}
	stats, err := json.Marshal(s.Statistics)
	if err != nil {
		return domain.NewRepositoryError(domain.RepoSerialization, op, fmt.Errorf("marshalling statistics: %w", err))
	}
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO extracted_documents (`+extractedDocumentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID.String(), s.ExtractionID.String(), s.DocumentID.String(), s.Method.String(),
		string(content), string(stats), s.ContentVersion, unixNanos(s.CreatedAt))
	return mapError(op, err)
}

// Delete removes an output.
func (r *extractedDocumentRepository) Delete(ctx context.Context, id domain.ExtractedDocumentID) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM extracted_documents WHERE id = ?`, id.String())
	if err != nil {
		return mapError("extracted_documents.delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewRepositoryError(domain.RepoNotFound, "extracted_documents.delete",
			fmt.Errorf("extracted document %s", id))
	}
	return nil
}

// DeleteByDocument removes a document's outputs.
func (r *extractedDocumentRepository) DeleteByDocument(ctx context.Context, documentID domain.DocumentID) (int, error) {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM extracted_documents WHERE document_id = ?`, documentID.String())
	if err != nil {
		return 0, mapError("extracted_documents.delete_by_document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("extracted_documents.delete_by_document", err)
	}
	return int(n), nil
}

// Exists reports whether an output exists.
func (r *extractedDocumentRepository) Exists(ctx context.Context, id domain.ExtractedDocumentID) (bool, error) {
	var one int
	err := r.store.db.QueryRowContext(ctx, `SELECT 1 FROM extracted_documents WHERE id = ?`, id.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapError("extracted_documents.exists", err)
	}
	return true, nil
}

// Count returns the number of stored outputs.
func (r *extractedDocumentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extracted_documents`).Scan(&count); err != nil {
		return 0, mapError("extracted_documents.count", err)
	}
	return count, nil
}

// ListPaginated returns one page of outputs, newest first.
func (r *extractedDocumentRepository) ListPaginated(
	ctx context.Context,
	offset, limit int,
) (domain.Page[*domain.ExtractedDocument], error) {
	const op = "extracted_documents.list"
	if err := domain.ValidatePagination(offset, limit); err != nil {
		return domain.Page[*domain.ExtractedDocument]{}, domain.NewRepositoryError(domain.RepoValidation, op, err)
	}
	total, err := r.Count(ctx)
	if err != nil {
		return domain.Page[*domain.ExtractedDocument]{}, err
	}
	items, err := r.query(ctx, op, `ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return domain.Page[*domain.ExtractedDocument]{}, err
	}
	return domain.NewPage(items, total, offset, limit), nil
}

// SupportedExportFormats lists the formats outputs can be exported as.
func (r *extractedDocumentRepository) SupportedExportFormats() []domain.ExportFormat {
	return domain.AllExportFormats()
}

func (r *extractedDocumentRepository) one(
	ctx context.Context,
	op, where string,
	args ...any,
) (*domain.ExtractedDocument, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT `+extractedDocumentColumns+` FROM extracted_documents `+where, args...)
	doc, err := scanExtractedDocument(row)
	if err != nil {
		return nil, mapError(op, err)
	}
	return doc, nil
}

func (r *extractedDocumentRepository) query(
	ctx context.Context,
	op, clause string,
	args ...any,
) ([]*domain.ExtractedDocument, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT `+extractedDocumentColumns+` FROM extracted_documents `+clause, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	result := make([]*domain.ExtractedDocument, 0)
	for rows.Next() {
		doc, err := scanExtractedDocument(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return result, nil
}

// scanExtractedDocument scans a single output row.
func scanExtractedDocument(row scanner) (*domain.ExtractedDocument, error) {
	var id, extractionID, documentID, method, content, stats string
	var version int
	var createdAt int64
	if err := row.Scan(&id, &extractionID, &documentID, &method, &content, &stats, &version, &createdAt); err != nil {
		return nil, err
	}

	state := domain.ExtractedDocumentState{
		Method:         domain.ExtractionMethod(method),
		ContentVersion: version,
		CreatedAt:      fromUnixNanos(createdAt),
	}
	var err error
	if state.ID, err = domain.ParseExtractedDocumentID(id); err != nil {
		return nil, serializationError(err)
	}
	if state.ExtractionID, err = domain.ParseExtractionID(extractionID); err != nil {
		return nil, serializationError(err)
	}
	if state.DocumentID, err = domain.ParseDocumentID(documentID); err != nil {
		return nil, serializationError(err)
	}
	if err := json.Unmarshal([]byte(content), &state.Content); err != nil {
		return nil, serializationError(fmt.Errorf("unmarshaling content: %w", err))
	}
	if err := json.Unmarshal([]byte(stats), &state.Statistics); err != nil {
		return nil, serializationError(fmt.Errorf("unmarshaling statistics: %w", err))
	}
	doc, err := domain.RestoreExtractedDocument(state)
	if err != nil {
		return nil, serializationError(err)
	}
	return doc, nil
}
