// Package memory provides in-memory repository implementations.
//
// The stores hold defensive copies, so entities handed out can be mutated
// freely by callers. They honour the same contracts as the SQLite backend,
// including the rule that a document has at most one active extraction, and
// are used by tests and the "memory" storage backend.
package memory
