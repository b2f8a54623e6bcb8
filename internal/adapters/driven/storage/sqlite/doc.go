// Package sqlite provides a unified SQLite-based implementation of the
// repository ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements every repository
// through a single database connection:
//
//   - DocumentRepository: original documents, unique per project and path
//   - ExtractionRepository: extraction attempts, at most one active per document
//   - ExtractedDocumentRepository: versioned extraction outputs
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files,
// and every applied version is recorded in schema_migrations.
//
// Identifiers are stored as their prefixed text form and timestamps as unix
// nanoseconds. Extracted content is stored as JSON.
//
// # Data Location
//
// By default, the database is stored at ~/.docreview/data/docreview.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
