// Package domain defines the core business entities for the document
// extraction workspace.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - ProjectID, DocumentID, ExtractionID, ExtractedDocumentID: prefixed identifiers
//   - FilePath: a validated, security-checked filesystem path
//   - DocumentType, ExtractionMethod: file classification
//   - OriginalDocument: a source file known to a project
//   - FileExtraction: one extraction attempt and its lifecycle
//   - ExtractedDocument: the structured output of a completed attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse. Values and entities never log or retry; every
// failure is returned to the caller.
//
// # Import Rules
//
//   - Can Import: Standard library, github.com/google/uuid
//   - Cannot Import: Any internal/ package
package domain
