package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
	"github.com/custodia-labs/docreview/internal/core/ports/driving"
	"github.com/custodia-labs/docreview/internal/logger"
)

// Ensure ExtractionWorker implements the interface.
var _ driving.ExtractionRunner = (*ExtractionWorker)(nil)

// DefaultPollInterval is how often a running worker looks for pending attempts
// when nobody calls Notify.
const DefaultPollInterval = 5 * time.Second

// ExtractionWorker runs pending extraction attempts through the registered
// extractors. Claims are throttled by a token bucket.
type ExtractionWorker struct {
	aggregate    *DocumentExtractionAggregate
	documents    driven.DocumentRepository
	extractions  driven.ExtractionRepository
	registry     driven.ExtractorRegistry
	artifacts    driven.ArtifactWriter
	limiter      *rate.Limiter
	ocrFallback  bool
	pollInterval time.Duration
	wake         chan struct{}
}

// NewExtractionWorker creates a worker. The artifact writer is optional.
func NewExtractionWorker(
	aggregate *DocumentExtractionAggregate,
	documents driven.DocumentRepository,
	extractions driven.ExtractionRepository,
	registry driven.ExtractorRegistry,
	settings domain.ExtractionSettings,
) *ExtractionWorker {
	burst := settings.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(settings.RatePerSecond)
	if settings.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	return &ExtractionWorker{
		aggregate:    aggregate,
		documents:    documents,
		extractions:  extractions,
		registry:     registry,
		limiter:      rate.NewLimiter(limit, burst),
		ocrFallback:  settings.OCRFallback,
		pollInterval: DefaultPollInterval,
		wake:         make(chan struct{}, 1),
	}
}

// WithArtifacts writes an artifact for every completed extraction.
func (w *ExtractionWorker) WithArtifacts(artifacts driven.ArtifactWriter) *ExtractionWorker {
	w.artifacts = artifacts
	return w
}

// WithPollInterval overrides DefaultPollInterval.
func (w *ExtractionWorker) WithPollInterval(d time.Duration) *ExtractionWorker {
	w.pollInterval = d
	return w
}

// Notify wakes a running worker. It never blocks.
func (w *ExtractionWorker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run processes pending attempts until ctx is cancelled.
func (w *ExtractionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessPending(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("extraction worker: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.wake:
		case <-ticker.C:
		}
	}
}

// ProcessPending runs every Pending attempt once, oldest first.
func (w *ExtractionWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.extractions.FindByStatus(ctx, domain.ExtractionPending)
	if err != nil {
		return 0, fmt.Errorf("load pending extractions: %w", err)
	}

	processed := 0
	for _, e := range pending {
		if err := w.limiter.Wait(ctx); err != nil {
			return processed, err
		}
		ok, err := w.process(ctx, e.ID())
		if err != nil {
			return processed, err
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}

// process claims and runs one attempt. It reports false when the attempt was
// no longer Pending. Extraction failures are recorded on the attempt; only
// repository failures are returned.
func (w *ExtractionWorker) process(ctx context.Context, id domain.ExtractionID) (bool, error) {
	e, err := w.aggregate.BeginProcessing(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrExtractionNotFound) {
			logger.Debug("skipping %s: %v", id, err)
			return false, nil
		}
		return false, err
	}

	doc, err := w.documents.FindByID(ctx, e.DocumentID())
	if err != nil {
		if domain.IsNotFound(err) {
			return true, w.fail(ctx, e, "document no longer exists", false)
		}
		return false, err
	}

	extractor, err := w.registry.Get(e.Method())
	if err != nil {
		return true, w.fail(ctx, e, fmt.Sprintf("no extractor for %s", e.Method()), false)
	}

	logger.Debug("extracting %s with %s", doc.Path(), e.Method())
	content, err := extractor.Extract(ctx, doc.Path())
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		permanent := errors.Is(err, domain.ErrExtractionFailed)
		if failErr := w.fail(ctx, e, err.Error(), !permanent); failErr != nil {
			return true, failErr
		}
		if permanent {
			w.fallback(ctx, e)
		}
		return true, nil
	}

	output, err := w.aggregate.CompleteExtraction(ctx, e.ID(), content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return true, w.fail(ctx, e, err.Error(), false)
		case errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, domain.ErrExtractionNotFound),
			domain.IsNotFound(err):
			// Superseded or removed while running.
			logger.Debug("discarding result of %s: %v", e.ID(), err)
			return true, nil
		}
		return true, err
	}

	if w.artifacts != nil {
		if path, err := w.artifacts.Write(ctx, doc.Path(), output); err != nil {
			logger.Warn("write artifact for %s: %v", doc.Path(), err)
		} else {
			logger.Debug("wrote %s", path)
		}
	}
	return true, nil
}

func (w *ExtractionWorker) fail(ctx context.Context, e *domain.FileExtraction, reason string, retryable bool) error {
	_, err := w.aggregate.FailExtraction(ctx, e.ID(), reason, retryable)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Superseded while running.
		return nil
	}
	return err
}

// fallback queues an OCR attempt after a permanent text-layer failure,
// if an OCR extractor is registered.
func (w *ExtractionWorker) fallback(ctx context.Context, e *domain.FileExtraction) {
	if !w.ocrFallback || e.Method() != domain.ExtractionMethodPDFText {
		return
	}
	if _, err := w.registry.Get(domain.ExtractionMethodPDFOCR); err != nil {
		return
	}
	next, err := w.aggregate.StartExtractionWithMethod(ctx, e.DocumentID(), domain.ExtractionMethodPDFOCR, false)
	if err != nil {
		logger.Warn("ocr fallback for %s: %v", e.DocumentID(), err)
		return
	}
	logger.Info("queued ocr fallback %s for %s", next.ID(), e.DocumentID())
	w.Notify()
}
