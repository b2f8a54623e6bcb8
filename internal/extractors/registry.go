package extractors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
	"github.com/custodia-labs/docreview/internal/extractors/docx"
	"github.com/custodia-labs/docreview/internal/extractors/markdown"
	"github.com/custodia-labs/docreview/internal/extractors/pdf"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps extraction methods to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.ExtractionMethod]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[domain.ExtractionMethod]driven.Extractor),
	}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
// There is no OCR extractor; pdf_ocr attempts fail until one is registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	return r
}

// Register adds an extractor, replacing any previous one for its method.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[extractor.Method()] = extractor
}

// Get returns the extractor for method.
func (r *Registry) Get(method domain.ExtractionMethod) (driven.Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	extractor, ok := r.extractors[method]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor registered for %s", domain.ErrMethodNotApplicable, method)
	}
	return extractor, nil
}

// Methods returns the methods with a registered extractor, sorted.
func (r *Registry) Methods() []domain.ExtractionMethod {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]domain.ExtractionMethod, 0, len(r.extractors))
	for method := range r.extractors {
		methods = append(methods, method)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
