package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
	"github.com/custodia-labs/docreview/internal/core/ports/driving"
	"github.com/custodia-labs/docreview/internal/logger"
)

// Ensure DocumentExtractionAggregate implements the interface.
var _ driving.ExtractionService = (*DocumentExtractionAggregate)(nil)

// DocumentExtractionAggregate owns the extraction lifecycle of documents.
//
// It holds no entity state between calls. Every write re-reads the document
// and its attempts under the document's lock, validates, then persists, so a
// document never has more than one Pending or Processing attempt.
type DocumentExtractionAggregate struct {
	documents   driven.DocumentRepository
	extractions driven.ExtractionRepository
	outputs     driven.ExtractedDocumentRepository
	locks       *DocumentLocks
	now         func() time.Time
}

// NewDocumentExtractionAggregate creates the aggregate over the three repositories.
func NewDocumentExtractionAggregate(
	documents driven.DocumentRepository,
	extractions driven.ExtractionRepository,
	outputs driven.ExtractedDocumentRepository,
) *DocumentExtractionAggregate {
	return &DocumentExtractionAggregate{
		documents:   documents,
		extractions: extractions,
		outputs:     outputs,
		locks:       NewDocumentLocks(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (a *DocumentExtractionAggregate) WithClock(now func() time.Time) *DocumentExtractionAggregate {
	a.now = now
	return a
}

// StartExtraction creates a Pending attempt using the document's default method.
func (a *DocumentExtractionAggregate) StartExtraction(
	ctx context.Context,
	documentID domain.DocumentID,
	forceReextract bool,
) (*domain.FileExtraction, error) {
	doc, err := a.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	method, ok := domain.ExtractionMethodFor(doc.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDocumentType, doc.Type())
	}
	return a.StartExtractionWithMethod(ctx, documentID, method, forceReextract)
}

// StartExtractionWithMethod creates a Pending attempt with an explicit method.
// With forceReextract, an active attempt is superseded in the same atomic
// write that stores the new one.
func (a *DocumentExtractionAggregate) StartExtractionWithMethod(
	ctx context.Context,
	documentID domain.DocumentID,
	method domain.ExtractionMethod,
	forceReextract bool,
) (*domain.FileExtraction, error) {
	unlock, err := a.locks.Lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := a.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := doc.CheckExtractable(); err != nil {
		return nil, err
	}
	if !method.IsApplicableTo(doc.Type()) {
		return nil, fmt.Errorf("%w: %s cannot process %s", domain.ErrMethodNotApplicable, method, doc.Type())
	}

	active, err := a.extractions.FindActiveByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load active extractions: %w", err)
	}
	if len(active) > 0 && !forceReextract {
		logger.Debug("rejecting extraction for %s: %s is %s", documentID, active[0].ID(), active[0].Status())
		return nil, fmt.Errorf("%w: document %s has %s extraction %s",
			domain.ErrExtractionInProgress, documentID, active[0].Status(), active[0].ID())
	}

	now := a.now()
	for _, e := range active {
		if err := e.Supersede(now); err != nil {
			return nil, err
		}
		logger.Info("superseding extraction %s of %s", e.ID(), documentID)
	}

	extraction, err := domain.NewFileExtraction(documentID, method, now)
	if err != nil {
		return nil, err
	}
	if err := a.extractions.SaveAtomically(ctx, append(active, extraction)...); err != nil {
		if errors.Is(err, domain.ErrConstraintViolation) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractionInProgress, err)
		}
		return nil, fmt.Errorf("save extraction: %w", err)
	}

	logger.Debug("started extraction %s (%s) for %s", extraction.ID(), method, documentID)
	return extraction, nil
}

// BeginProcessing claims a Pending attempt.
func (a *DocumentExtractionAggregate) BeginProcessing(
	ctx context.Context,
	extractionID domain.ExtractionID,
) (*domain.FileExtraction, error) {
	var claimed *domain.FileExtraction
	err := a.withExtraction(ctx, extractionID, func(e *domain.FileExtraction) error {
		if err := e.MarkProcessing(a.now()); err != nil {
			return err
		}
		if err := a.extractions.Save(ctx, e); err != nil {
			return fmt.Errorf("save extraction: %w", err)
		}
		claimed = e
		return nil
	})
	return claimed, err
}

// CompleteExtraction stores content as the document's next content version
// and completes the attempt. If the attempt cannot be saved the stored
// content is removed again.
func (a *DocumentExtractionAggregate) CompleteExtraction(
	ctx context.Context,
	extractionID domain.ExtractionID,
	content *domain.RichTextDocument,
) (*domain.ExtractedDocument, error) {
	var output *domain.ExtractedDocument
	err := a.withExtraction(ctx, extractionID, func(e *domain.FileExtraction) error {
		if err := content.Validate(); err != nil {
			return err
		}
		if exists, err := a.documents.Exists(ctx, e.DocumentID()); err != nil {
			return fmt.Errorf("check document: %w", err)
		} else if !exists {
			return domain.NewRepositoryError(domain.RepoNotFound, "aggregate.complete",
				fmt.Errorf("document %s was removed", e.DocumentID()))
		}

		now := a.now()
		if err := e.MarkCompleted(now); err != nil {
			return err
		}
		latest, err := a.outputs.LatestVersion(ctx, e.DocumentID())
		if err != nil {
			return fmt.Errorf("load content version: %w", err)
		}
		doc, err := domain.NewExtractedDocument(e, content, latest+1, now)
		if err != nil {
			return err
		}
		if err := a.outputs.Save(ctx, doc); err != nil {
			return fmt.Errorf("save extracted document: %w", err)
		}
		if err := a.extractions.Save(ctx, e); err != nil {
			if delErr := a.outputs.Delete(ctx, doc.ID()); delErr != nil {
				logger.Error("orphaned extracted document %s: %v", doc.ID(), delErr)
			}
			return fmt.Errorf("save extraction: %w", err)
		}
		logger.Info("completed extraction %s: %s v%d, %d words",
			e.ID(), e.DocumentID(), doc.ContentVersion(), doc.Statistics().WordCount)
		output = doc
		return nil
	})
	return output, err
}

// FailExtraction moves a non-terminal attempt to Error.
func (a *DocumentExtractionAggregate) FailExtraction(
	ctx context.Context,
	extractionID domain.ExtractionID,
	reason string,
	retryable bool,
) (*domain.FileExtraction, error) {
	var failed *domain.FileExtraction
	err := a.withExtraction(ctx, extractionID, func(e *domain.FileExtraction) error {
		if err := e.MarkFailed(reason, retryable, a.now()); err != nil {
			return err
		}
		if err := a.extractions.Save(ctx, e); err != nil {
			return fmt.Errorf("save extraction: %w", err)
		}
		logger.Warn("extraction %s of %s failed (retryable=%t): %s", e.ID(), e.DocumentID(), retryable, reason)
		failed = e
		return nil
	})
	return failed, err
}

// Summary returns a read-only view of a document's extraction state.
func (a *DocumentExtractionAggregate) Summary(
	ctx context.Context,
	documentID domain.DocumentID,
) (*driving.ExtractionSummary, error) {
	doc, err := a.documents.FindByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	attempts, err := a.extractions.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load extractions: %w", err)
	}

	summary := &driving.ExtractionSummary{Document: doc, Attempts: len(attempts)}
	for _, e := range attempts {
		if e.Status().IsActive() {
			summary.Active = e
		}
		switch e.Status() {
		case domain.ExtractionError:
			summary.Failed++
		case domain.ExtractionCompleted:
			if at := e.CompletedAt(); at != nil && (summary.LastSuccessAt == nil || at.After(*summary.LastSuccessAt)) {
				summary.LastSuccessAt = at
			}
		}
		if summary.LastAttemptAt == nil || !e.CreatedAt().Before(*summary.LastAttemptAt) {
			created := e.CreatedAt()
			summary.LastAttemptAt = &created
			summary.LatestStatus = e.Status()
		}
	}

	latest, err := a.outputs.FindLatestByDocument(ctx, documentID)
	switch {
	case err == nil:
		summary.Latest = latest
		summary.LatestVersion = latest.ContentVersion()
	case domain.IsNotFound(err):
	default:
		return nil, fmt.Errorf("load latest content: %w", err)
	}
	return summary, nil
}

// RemoveDocument deletes a document with its attempts and extracted content.
func (a *DocumentExtractionAggregate) RemoveDocument(ctx context.Context, documentID domain.DocumentID) error {
	unlock, err := a.locks.Lock(ctx, documentID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := a.outputs.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete extracted documents: %w", err)
	}
	if _, err := a.extractions.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete extractions: %w", err)
	}
	if err := a.documents.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// withExtraction loads an attempt, locks its document, re-reads the attempt
// under the lock and runs fn on the fresh copy.
func (a *DocumentExtractionAggregate) withExtraction(
	ctx context.Context,
	extractionID domain.ExtractionID,
	fn func(*domain.FileExtraction) error,
) error {
	e, err := a.loadExtraction(ctx, extractionID)
	if err != nil {
		return err
	}
	unlock, err := a.locks.Lock(ctx, e.DocumentID())
	if err != nil {
		return err
	}
	defer unlock()

	e, err = a.loadExtraction(ctx, extractionID)
	if err != nil {
		return err
	}
	return fn(e)
}

func (a *DocumentExtractionAggregate) loadExtraction(
	ctx context.Context,
	extractionID domain.ExtractionID,
) (*domain.FileExtraction, error) {
	e, err := a.extractions.FindByID(ctx, extractionID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractionNotFound, err)
		}
		return nil, fmt.Errorf("load extraction: %w", err)
	}
	return e, nil
}
