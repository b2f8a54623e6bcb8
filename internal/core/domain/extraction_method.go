package domain

import "time"

const unknownDescription = "Unknown"

// ExtractionMethod names the strategy used to extract a document.
type ExtractionMethod string

// Available extraction methods.
const (
	// ExtractionMethodPDFText reads the embedded text layer of a PDF.
	ExtractionMethodPDFText ExtractionMethod = "pdf_text"

	// ExtractionMethodPDFOCR recognises text from rendered PDF pages.
	ExtractionMethodPDFOCR ExtractionMethod = "pdf_ocr"

	// ExtractionMethodDocxStructure walks the OOXML paragraph structure.
	ExtractionMethodDocxStructure ExtractionMethod = "docx_structure"

	// ExtractionMethodMarkdown converts Markdown source into the content tree.
	ExtractionMethodMarkdown ExtractionMethod = "markdown_conversion"
)

// AllExtractionMethods returns every known method.
func AllExtractionMethods() []ExtractionMethod {
	return []ExtractionMethod{
		ExtractionMethodPDFText,
		ExtractionMethodPDFOCR,
		ExtractionMethodDocxStructure,
		ExtractionMethodMarkdown,
	}
}

// IsValid returns true if the method is recognised.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case ExtractionMethodPDFText, ExtractionMethodPDFOCR,
		ExtractionMethodDocxStructure, ExtractionMethodMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m ExtractionMethod) String() string {
	return string(m)
}

// Description returns a human-readable description of the method.
func (m ExtractionMethod) Description() string {
	switch m {
	case ExtractionMethodPDFText:
		return "PDF text layer extraction"
	case ExtractionMethodPDFOCR:
		return "PDF optical character recognition"
	case ExtractionMethodDocxStructure:
		return "Word document structure extraction"
	case ExtractionMethodMarkdown:
		return "Markdown conversion"
	default:
		return unknownDescription
	}
}

// ProcessingTime returns the expected processing-time category.
func (m ExtractionMethod) ProcessingTime() ProcessingTimeCategory {
	switch m {
	case ExtractionMethodPDFText:
		return ProcessingMedium
	case ExtractionMethodPDFOCR:
		return ProcessingSlow
	default:
		return ProcessingFast
	}
}

// IsApplicableTo reports whether the method can process documents of type t.
func (m ExtractionMethod) IsApplicableTo(t DocumentType) bool {
	for _, candidate := range ApplicableMethods(t) {
		if candidate == m {
			return true
		}
	}
	return false
}

// ExtractionMethodFor returns the canonical method for a document type.
func ExtractionMethodFor(t DocumentType) (ExtractionMethod, bool) {
	switch t {
	case DocumentTypePDF:
		return ExtractionMethodPDFText, true
	case DocumentTypeDocx:
		return ExtractionMethodDocxStructure, true
	case DocumentTypeMarkdown:
		return ExtractionMethodMarkdown, true
	default:
		return "", false
	}
}

// ApplicableMethods returns the canonical method first, followed by fallbacks.
func ApplicableMethods(t DocumentType) []ExtractionMethod {
	switch t {
	case DocumentTypePDF:
		return []ExtractionMethod{ExtractionMethodPDFText, ExtractionMethodPDFOCR}
	case DocumentTypeDocx:
		return []ExtractionMethod{ExtractionMethodDocxStructure}
	case DocumentTypeMarkdown:
		return []ExtractionMethod{ExtractionMethodMarkdown}
	default:
		return nil
	}
}

// ProcessingTimeCategory is a scheduling and UX hint. It is never enforced.
type ProcessingTimeCategory string

// Processing-time categories.
const (
	// ProcessingFast completes in under 5 seconds.
	ProcessingFast ProcessingTimeCategory = "fast"

	// ProcessingMedium takes 5 to 30 seconds.
	ProcessingMedium ProcessingTimeCategory = "medium"

	// ProcessingSlow takes 30 to 300 seconds.
	ProcessingSlow ProcessingTimeCategory = "slow"
)

// String returns the string representation.
func (c ProcessingTimeCategory) String() string {
	return string(c)
}

// Range returns the expected lower and upper duration bounds.
func (c ProcessingTimeCategory) Range() (time.Duration, time.Duration) {
	switch c {
	case ProcessingFast:
		return 0, 5 * time.Second
	case ProcessingMedium:
		return 5 * time.Second, 30 * time.Second
	case ProcessingSlow:
		return 30 * time.Second, 300 * time.Second
	default:
		return 0, 0
	}
}

// Description returns a human-readable description of the category.
func (c ProcessingTimeCategory) Description() string {
	switch c {
	case ProcessingFast:
		return "Fast (< 5s)"
	case ProcessingMedium:
		return "Medium (5-30s)"
	case ProcessingSlow:
		return "Slow (30-300s)"
	default:
		return unknownDescription
	}
}
