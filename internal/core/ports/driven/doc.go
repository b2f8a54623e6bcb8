// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentRepository: OriginalDocument persistence and queries
//   - ExtractionRepository: FileExtraction persistence, statistics and queries
//   - ExtractedDocumentRepository: ExtractedDocument persistence and version history
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Extractor / ExtractorRegistry: Parsers selected by extraction method.
//     Without them attempts can be created but never processed.
//   - ArtifactWriter: Writes ".det" artifacts next to source files.
//
// # Error Contract
//
// Every repository returns *domain.RepositoryError (or an error wrapping one)
// so callers can test errors.Is(err, domain.ErrNotFound) and friends
// regardless of backend.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
