package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

const extractionColumns = `id, document_id, method, status, created_at, started_at, completed_at,
	failure_reason, failure_retryable, failure_superseded`

// extractionRepository implements driven.ExtractionRepository.
// The partial unique index idx_extractions_one_active rejects a second
// pending or processing attempt for one document.
type extractionRepository struct {
	store *Store
}

var _ driven.ExtractionRepository = (*extractionRepository)(nil)

// FindByID retrieves an attempt by ID.
func (r *extractionRepository) FindByID(ctx context.Context, id domain.ExtractionID) (*domain.FileExtraction, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT `+extractionColumns+` FROM extractions WHERE id = ?`, id.String())
	e, err := scanExtraction(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewRepositoryError(domain.RepoNotFound, "extractions.find_by_id",
			fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id))
	}
	if err != nil {
		return nil, mapError("extractions.find_by_id", err)
	}
	return e, nil
}

// FindByDocument returns a document's attempts, oldest first.
func (r *extractionRepository) FindByDocument(ctx context.Context, documentID domain.DocumentID) ([]*domain.FileExtraction, error) {
	return r.query(ctx, "extractions.find_by_document", `WHERE document_id = ?`, documentID.String())
}

// FindActiveByDocument returns a document's Pending or Processing attempts.
func (r *extractionRepository) FindActiveByDocument(
	ctx context.Context,
	documentID domain.DocumentID,
) ([]*domain.FileExtraction, error) {
	return r.query(ctx, "extractions.find_active_by_document",
		`WHERE document_id = ? AND status IN (?, ?)`,
		documentID.String(), domain.ExtractionPending.String(), domain.ExtractionProcessing.String())
}

// FindByStatus returns attempts in one status, oldest first.
func (r *extractionRepository) FindByStatus(ctx context.Context, status domain.ExtractionStatus) ([]*domain.FileExtraction, error) {
	return r.query(ctx, "extractions.find_by_status", `WHERE status = ?`, status.String())
}

// Save inserts or updates an attempt.
func (r *extractionRepository) Save(ctx context.Context, extraction *domain.FileExtraction) error {
	return saveExtraction(ctx, r.store.db, "extractions.save", extraction)
}

// SaveAtomically saves every attempt in order, or none of them.
func (r *extractionRepository) SaveAtomically(ctx context.Context, extractions ...*domain.FileExtraction) error {
	const op = "extractions.save_atomically"
	return r.store.inTx(ctx, op, func(tx *sql.Tx) error {
		for _, e := range extractions {
			if err := saveExtraction(ctx, tx, op, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveBatch saves each attempt independently.
func (r *extractionRepository) SaveBatch(ctx context.Context, extractions []*domain.FileExtraction) (domain.BatchResult, error) {
	var result domain.BatchResult
	for _, e := range extractions {
		id := ""
		if e != nil {
			id = e.ID().String()
		}
		if err := saveExtraction(ctx, r.store.db, "extractions.save_batch", e); err != nil {
			result.Failed = append(result.Failed, domain.BatchFailure{ID: id, Err: err})
			continue
		}
		result.Saved = append(result.Saved, id)
	}
	return result, nil
}

func saveExtraction(ctx context.Context, q queryer, op string, e *domain.FileExtraction) error {
	if e == nil {
		return domain.NewRepositoryError(domain.RepoValidation, op, fmt.Errorf("nil extraction"))
	}
	s := e.State()
	var reason sql.NullString
	var retryable, superseded bool
	if s.Failure != nil {
		reason = sql.NullString{String: s.Failure.Reason, Valid: true}
		retryable = s.Failure.Retryable
		superseded = s.Failure.Superseded
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO extractions (id, document_id, method, status, created_at, started_at, completed_at,
			failure_reason, failure_retryable, failure_superseded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			failure_reason = excluded.failure_reason,
			failure_retryable = excluded.failure_retryable,
			failure_superseded = excluded.failure_superseded
	`, s.ID.String(), s.DocumentID.String(), s.Method.String(), s.Status.String(),
		unixNanos(s.CreatedAt), nullUnixNanos(s.StartedAt), nullUnixNanos(s.CompletedAt),
		reason, boolInt(retryable), boolInt(superseded))
	if err != nil {
		return mapError(op, err, fmt.Errorf("%w: document %s", domain.ErrExtractionInProgress, s.DocumentID))
	}
	return nil
}

// Delete removes an attempt.
func (r *extractionRepository) Delete(ctx context.Context, id domain.ExtractionID) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM extractions WHERE id = ?`, id.String())
	if err != nil {
		return mapError("extractions.delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NewRepositoryError(domain.RepoNotFound, "extractions.delete",
			fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, id))
	}
	return nil
}

// DeleteByDocument removes a document's attempts.
func (r *extractionRepository) DeleteByDocument(ctx context.Context, documentID domain.DocumentID) (int, error) {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM extractions WHERE document_id = ?`, documentID.String())
	if err != nil {
		return 0, mapError("extractions.delete_by_document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("extractions.delete_by_document", err)
	}
	return int(n), nil
}

// Exists reports whether an attempt exists.
func (r *extractionRepository) Exists(ctx context.Context, id domain.ExtractionID) (bool, error) {
	var one int
	err := r.store.db.QueryRowContext(ctx, `SELECT 1 FROM extractions WHERE id = ?`, id.String()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, mapError("extractions.exists", err)
	}
	return true, nil
}

// CountByStatus counts attempts per status.
func (r *extractionRepository) CountByStatus(ctx context.Context) (map[domain.ExtractionStatus]int, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM extractions GROUP BY status`)
	if err != nil {
		return nil, mapError("extractions.count_by_status", err)
	}
	defer rows.Close()

	counts := make(map[domain.ExtractionStatus]int, 4)
	for _, status := range domain.AllExtractionStatuses() {
		counts[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, mapError("extractions.count_by_status", err)
		}
		counts[domain.ExtractionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("extractions.count_by_status", err)
	}
	return counts, nil
}

// Statistics summarises attempts created within tr.
func (r *extractionRepository) Statistics(ctx context.Context, tr domain.TimeRange) (domain.ExtractionStatistics, error) {
	within, err := r.createdWithin(ctx, "extractions.statistics", tr)
	if err != nil {
		return domain.ExtractionStatistics{}, err
	}
	return domain.ComputeExtractionStatistics(within), nil
}

// PerformanceMetrics aggregates attempts created within tr per method.
func (r *extractionRepository) PerformanceMetrics(ctx context.Context, tr domain.TimeRange) ([]domain.MethodPerformance, error) {
	within, err := r.createdWithin(ctx, "extractions.performance_metrics", tr)
	if err != nil {
		return nil, err
	}
	return domain.ComputeMethodPerformance(within), nil
}

func (r *extractionRepository) createdWithin(ctx context.Context, op string, tr domain.TimeRange) ([]*domain.FileExtraction, error) {
	where := `WHERE 1 = 1`
	var args []any
	if !tr.From.IsZero() {
		where += ` AND created_at >= ?`
		args = append(args, unixNanos(tr.From))
	}
	if !tr.To.IsZero() {
		where += ` AND created_at < ?`
		args = append(args, unixNanos(tr.To))
	}
	return r.query(ctx, op, where, args...)
}

// ListPaginated returns one page of attempts, newest first.
func (r *extractionRepository) ListPaginated(ctx context.Context, offset, limit int) (domain.Page[*domain.FileExtraction], error) {
	return r.Search(ctx, domain.NewExtractionSearchCriteria().WithPage(offset, limit))
}

// Search runs a criteria query.
func (r *extractionRepository) Search(
	ctx context.Context,
	criteria domain.ExtractionSearchCriteria,
) (domain.Page[*domain.FileExtraction], error) {
	if err := criteria.Validate(); err != nil {
		return domain.Page[*domain.FileExtraction]{}, domain.NewRepositoryError(domain.RepoValidation, "extractions.search", err)
	}
	where := `WHERE 1 = 1`
	var args []any
	if id := criteria.DocumentID(); !id.IsZero() {
		where += ` AND document_id = ?`
		args = append(args, id.String())
	}
	if statuses := criteria.Statuses(); len(statuses) > 0 {
		where += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, s.String())
		}
	}
	found, err := r.query(ctx, "extractions.search", where, args...)
	if err != nil {
		return domain.Page[*domain.FileExtraction]{}, err
	}
	matches := make([]*domain.FileExtraction, 0, len(found))
	for _, e := range found {
		if criteria.Matches(e) {
			matches = append(matches, e)
		}
	}
	field, direction := criteria.Sort()
	domain.SortExtractions(matches, field, direction)
	return domain.Paginate(matches, criteria.Offset(), criteria.Limit()), nil
}

// query selects attempts matching where, oldest first.
func (r *extractionRepository) query(ctx context.Context, op, where string, args ...any) ([]*domain.FileExtraction, error) {
	rows, err := r.store.db.QueryContext(ctx, `SELECT `+extractionColumns+` FROM extractions `+where, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	result := make([]*domain.FileExtraction, 0)
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	domain.SortExtractions(result, domain.SortExtractionsByCreatedAt, domain.Ascending)
	return result, nil
}

// scanExtraction scans a single attempt row.
func scanExtraction(row scanner) (*domain.FileExtraction, error) {
	var id, documentID, method, status string
	var createdAt int64
	var startedAt, completedAt sql.NullInt64
	var reason sql.NullString
	var retryable, superseded int
	if err := row.Scan(&id, &documentID, &method, &status, &createdAt, &startedAt, &completedAt,
		&reason, &retryable, &superseded); err != nil {
		return nil, err
	}

	state := domain.FileExtractionState{
		Method:      domain.ExtractionMethod(method),
		Status:      domain.ExtractionStatus(status),
		CreatedAt:   fromUnixNanos(createdAt),
		StartedAt:   fromNullUnixNanos(startedAt),
		CompletedAt: fromNullUnixNanos(completedAt),
	}
	if reason.Valid {
		state.Failure = &domain.ExtractionFailure{
			Reason:     reason.String,
			Retryable:  retryable != 0,
			Superseded: superseded != 0,
		}
	}
	var err error
	if state.ID, err = domain.ParseExtractionID(id); err != nil {
		return nil, serializationError(err)
	}
	if state.DocumentID, err = domain.ParseDocumentID(documentID); err != nil {
		return nil, serializationError(err)
	}
	e, err := domain.RestoreFileExtraction(state)
	if err != nil {
		return nil, serializationError(err)
	}
	return e, nil
}
