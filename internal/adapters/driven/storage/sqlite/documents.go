package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

const documentColumns = `id, project_id, path, doc_type, size, checksum, created_at, modified_at`

// documentRepository implements driven.DocumentRepository.
type documentRepository struct {
	store *Store
}

var _ driven.DocumentRepository = (*documentRepository)(nil)

// FindByID retrieves a document by ID.
func (r *documentRepository) FindByID(ctx context.Context, id domain.DocumentID) (*domain.OriginalDocument, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
	doc, err := scanDocument(row)
	if err != nil {
		return nil, mapError("documents.find_by_id", err)
	}
	return doc, nil
}

// FindByProject returns all documents of a project ordered by file name.
func (r *documentRepository) FindByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.OriginalDocument, error) {
	return r.query(ctx, "documents.find_by_project", nil,
		`WHERE project_id = ?`, projectID.String())
}

// FindByPath retrieves the document at path within a project.
func (r *documentRepository) FindByPath(
	ctx context.Context,
	projectID domain.ProjectID,
	path domain.FilePath,
) (*domain.OriginalDocument, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE project_id = ? AND path = ?`,
		projectID.String(), path.String())
	doc, err := scanDocument(row)
	if err != nil {
		return nil, mapError("documents.find_by_path", err)
	}
	return doc, nil
}

// FindByType returns a project's documents of one type.
func (r *documentRepository) FindByType(
	ctx context.Context,
	projectID domain.ProjectID,
	docType domain.DocumentType,
) ([]*domain.OriginalDocument, error) {
	return r.query(ctx, "documents.find_by_type", nil,
		`WHERE project_id = ? AND doc_type = ?`, projectID.String(), docType.String())
}

// FindByNamePattern returns documents whose file name contains pattern.
// SQLite LIKE folds ASCII only, so matching happens in Go.
func (r *documentRepository) FindByNamePattern(
	ctx context.Context,
	projectID domain.ProjectID,
	pattern string,
) ([]*domain.OriginalDocument, error) {
	criteria := domain.NewDocumentSearchCriteria(projectID).WithNamePattern(pattern)
	return r.query(ctx, "documents.find_by_name_pattern", criteria.Matches,
		`WHERE project_id = ?`, projectID.String())
}

// FindExtractable returns documents within their type's size ceiling.
func (r *documentRepository) FindExtractable(ctx context.Context, projectID domain.ProjectID) ([]*domain.OriginalDocument, error) {
	return r.query(ctx, "documents.find_extractable", (*domain.OriginalDocument).IsExtractable,
		`WHERE project_id = ?`, projectID.String())
}

// FindModifiedSince returns documents modified at or after since.
func (r *documentRepository) FindModifiedSince(
	ctx context.Context,
	projectID domain.ProjectID,
	since time.Time,
) ([]*domain.OriginalDocument, error) {
	return r.query(ctx, "documents.find_modified_since", nil,
		`WHERE project_id = ? AND modified_at >= ?`, projectID.String(), unixNanos(since))
}

// Save inserts or updates a document.
func (r *documentRepository) Save(ctx context.Context, doc *domain.OriginalDocument) error {
	return saveDocument(ctx, r.store.db, "documents.save", doc)
}

func saveDocument(ctx context.Context, q queryer, op string, doc *domain.OriginalDocument) error {
	if doc == nil {
		return domain.NewRepositoryError(domain.RepoValidation, op, fmt.Errorf("nil document"))
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, path, file_name, doc_type, size, checksum, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			path = excluded.path,
			file_name = excluded.file_name,
			doc_type = excluded.doc_type,
			size = excluded.size,
			checksum = excluded.checksum,
			modified_at = excluded.modified_at
	`, doc.ID().String(), doc.ProjectID().String(), doc.Path().String(), doc.FileName(),
		doc.Type().String(), doc.Size(), doc.Checksum(),
		unixNanos(doc.CreatedAt()), unixNanos(doc.ModifiedAt()))
	return mapError(op, err)
}

// SaveBatch saves each document independently.
func (r *documentRepository) SaveBatch(ctx context.Context, docs []*domain.OriginalDocument) (domain.BatchResult, error) {
	var result domain.BatchResult
	for _, doc := range docs {
		id := ""
		if doc != nil {
			id = doc.ID().String()
		}
		if err := saveDocument(ctx, r.store.db, "documents.save_batch", doc); err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: id, Err: err})
			continue
		}
		result.Saved = append(result.Saved, id)
	}
	return result, nil
}

// Delete removes a document along with its attempts and outputs.
func (r *documentRepository) Delete(ctx context.Context, id domain.DocumentID) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id.String())
	if err != nil {
		return mapError("documents.delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewRepositoryError(domain.RepoNotFound, "documents.delete", fmt.Errorf("document %s", id))
	}
	return nil
}

// DeleteByProject removes every document of a project.
func (r *documentRepository) DeleteByProject(ctx context.Context, projectID domain.ProjectID) (int, error) {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM documents WHERE project_id = ?`, projectID.String())
	if err != nil {
		return 0, mapError("documents.delete_by_project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("documents.delete_by_project", err)
	}
	return int(n), nil
}

// Exists reports whether a document exists.
func (r *documentRepository) Exists(ctx context.Context, id domain.DocumentID) (bool, error) {
	return r.exists(ctx, "documents.exists", `SELECT 1 FROM documents WHERE id = ?`, id.String())
}

// ExistsAtPath reports whether a project already tracks path.
func (r *documentRepository) ExistsAtPath(ctx context.Context, projectID domain.ProjectID, path domain.FilePath) (bool, error) {
	return r.exists(ctx, "documents.exists_at_path",
		`SELECT 1 FROM documents WHERE project_id = ? AND path = ?`, projectID.String(), path.String())
}

func (r *documentRepository) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := r.store.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapError(op, err)
	}
	return true, nil
}

// CountByProject counts a project's documents.
func (r *documentRepository) CountByProject(ctx context.Context, projectID domain.ProjectID) (int, error) {
	var count int
	err := r.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE project_id = ?`, projectID.String()).Scan(&count)
	if err != nil {
		return 0, mapError("documents.count_by_project", err)
	}
	return count, nil
}

// CountByType counts a project's documents per type.
func (r *documentRepository) CountByType(ctx context.Context, projectID domain.ProjectID) (map[domain.DocumentType]int, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT doc_type, COUNT(*) FROM documents WHERE project_id = ? GROUP BY doc_type`, projectID.String())
	if err != nil {
		return nil, mapError("documents.count_by_type", err)
	}
	defer rows.Close()

	counts := make(map[domain.DocumentType]int)
	for rows.Next() {
		var docType string
		var count int
		if err := rows.Scan(&docType, &count); err != nil {
			return nil, mapError("documents.count_by_type", err)
		}
		counts[domain.DocumentType(docType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("documents.count_by_type", err)
	}
	return counts, nil
}

// TotalSizeByProject sums a project's document sizes.
func (r *documentRepository) TotalSizeByProject(ctx context.Context, projectID domain.ProjectID) (int64, error) {
	var total int64
	err := r.store.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size), 0) FROM documents WHERE project_id = ?`, projectID.String()).Scan(&total)
	if err != nil {
		return 0, mapError("documents.total_size", err)
	}
	return total, nil
}

// FindDuplicates groups a project's documents sharing a checksum.
func (r *documentRepository) FindDuplicates(ctx context.Context, projectID domain.ProjectID) ([]domain.DuplicateGroup, error) {
	docs, err := r.query(ctx, "documents.find_duplicates", nil, `
		WHERE project_id = ? AND checksum IN (
			SELECT checksum FROM documents WHERE project_id = ?
			GROUP BY checksum HAVING COUNT(*) > 1
		)`, projectID.String(), projectID.String())
	if err != nil {
		return nil, err
	}
	return domain.GroupDuplicates(docs), nil
}

// UpdateChecksum records new content for a document.
func (r *documentRepository) UpdateChecksum(
	ctx context.Context,
	id domain.DocumentID,
	checksum string,
	size int64,
	modifiedAt time.Time,
) error {
	const op = "documents.update_checksum"
	return r.store.inTx(ctx, op, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
		doc, err := scanDocument(row)
		if err != nil {
			return mapError(op, err)
		}
		if err := doc.UpdateChecksum(checksum, size, modifiedAt); err != nil {
			return domain.NewRepositoryError(domain.RepoValidation, op, err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET checksum = ?, size = ?, modified_at = ? WHERE id = ?`,
			doc.Checksum(), doc.Size(), unixNanos(doc.ModifiedAt()), id.String())
		return mapError(op, err)
	})
}

// ListPaginated returns one page of a project's documents ordered by file name.
func (r *documentRepository) ListPaginated(
	ctx context.Context,
	projectID domain.ProjectID,
	offset, limit int,
) (domain.Page[*domain.OriginalDocument], error) {
	return r.Search(ctx, domain.NewDocumentSearchCriteria(projectID).WithPage(offset, limit))
}

// Search runs a criteria query. The project and type filters narrow the
// SQL query; the remaining criteria, ordering and paging are applied by the
// domain helpers every backend shares.
func (r *documentRepository) Search(
	ctx context.Context,
	criteria domain.DocumentSearchCriteria,
) (domain.Page[*domain.OriginalDocument], error) {
	if err := criteria.Validate(); err != nil {
		return domain.Page[*domain.OriginalDocument]{}, domain.NewRepositoryError(domain.RepoValidation, "documents.search", err)
	}
	where := `WHERE project_id = ?`
	args := []any{criteria.ProjectID().String()}
	if types := criteria.FileTypes(); len(types) > 0 {
		where += ` AND doc_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, t.String())
		}
	}
	matches, err := r.query(ctx, "documents.search", criteria.Matches, where, args...)
	if err != nil {
		return domain.Page[*domain.OriginalDocument]{}, err
	}
	field, direction := criteria.Sort()
	domain.SortDocuments(matches, field, direction)
	return domain.Paginate(matches, criteria.Offset(), criteria.Limit()), nil
}

// query selects documents matching where, keeps those accepted by keep (nil
// keeps all) and orders them by file name.
func (r *documentRepository) query(
	ctx context.Context,
	op string,
	keep func(*domain.OriginalDocument) bool,
	where string,
	args ...any,
) ([]*domain.OriginalDocument, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents `+where, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	result := make([]*domain.OriginalDocument, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		if keep == nil || keep(doc) {
			result = append(result, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	domain.SortDocuments(result, domain.SortByFileName, domain.Ascending)
	return result, nil
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.OriginalDocument, error) {
	var id, projectID, path, docType, checksum string
	var size, createdAt, modifiedAt int64
	if err := row.Scan(&id, &projectID, &path, &docType, &size, &checksum, &createdAt, &modifiedAt); err != nil {
		return nil, err
	}

	state := domain.OriginalDocumentState{
		Type:       domain.DocumentType(docType),
		Size:       size,
		Checksum:   checksum,
		CreatedAt:  fromUnixNanos(createdAt),
		ModifiedAt: fromUnixNanos(modifiedAt),
	}
	var err error
	if state.ID, err = domain.ParseDocumentID(id); err != nil {
		return nil, serializationError(err)
	}
	if state.ProjectID, err = domain.ParseProjectID(projectID); err != nil {
		return nil, serializationError(err)
	}
	if state.Path, err = domain.RestoreFilePath(path); err != nil {
		return nil, serializationError(err)
	}
	doc, err := domain.RestoreOriginalDocument(state)
	if err != nil {
		return nil, serializationError(err)
	}
	return doc, nil
}

// serializationError marks a row that could not be turned back into an entity.
func serializationError(err error) error {
	return domain.NewRepositoryError(domain.RepoSerialization, "decode", err)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
