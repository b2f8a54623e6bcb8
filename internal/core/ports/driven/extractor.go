package driven

import (
	"context"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// Extractor turns a source file into a rich-text content tree.
// Each extractor implements exactly one extraction method.
//
// Errors wrapping domain.ErrExtractionFailed are permanent (corrupt file,
// unsupported structure); any other error is treated as transient.
type Extractor interface {
	// Method returns the extraction method this extractor implements.
	Method() domain.ExtractionMethod

	// Extract parses the file at path.
	Extract(ctx context.Context, path domain.FilePath) (*domain.RichTextDocument, error)
}

// ExtractorRegistry selects an extractor by method.
type ExtractorRegistry interface {
	// Register adds an extractor, replacing any previous one for its method.
	Register(extractor Extractor)

	// Get returns the extractor for method.
	// Returns ErrMethodNotApplicable when none is registered.
	Get(method domain.ExtractionMethod) (Extractor, error)

	// Methods returns the methods with a registered extractor.
	Methods() []domain.ExtractionMethod
}

// ArtifactWriter persists an extracted document next to its source.
type ArtifactWriter interface {
	// Write renders doc for source and returns the artifact path.
	Write(ctx context.Context, source domain.FilePath, doc *domain.ExtractedDocument) (string, error)

	// Remove deletes the artifact for source if it exists.
	Remove(source domain.FilePath) error
}
