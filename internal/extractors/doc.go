// Package extractors provides implementations of the Extractor interface.
// Each extractor implements one extraction method and turns a source file
// into a rich-text content tree.
//
// Extractors are registered with a Registry at startup. Permanent failures
// (corrupt or unsupported files) wrap domain.ErrExtractionFailed.
package extractors
