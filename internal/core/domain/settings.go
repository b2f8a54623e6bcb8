package domain

import (
	"fmt"
	"time"
)

// StorageBackend selects the repository implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendSQLite persists to a local SQLite database.
	StorageBackendSQLite StorageBackend = "sqlite"

	// StorageBackendMemory keeps everything in process memory.
	StorageBackendMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageBackendSQLite || b == StorageBackendMemory
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageBackendSQLite:
		return "SQLite (persistent)"
	case StorageBackendMemory:
		return "Memory (lost on exit)"
	default:
		return unknownDescription
	}
}

// StorageSettings holds repository configuration.
type StorageSettings struct {
	// Backend selects the repository implementation.
	Backend StorageBackend

	// DataDir holds the SQLite database. Empty means ~/.docreview/data.
	DataDir string
}

// ArtifactSettings controls on-disk ".det" artifacts.
type ArtifactSettings struct {
	// Enabled writes an artifact next to each source after extraction.
	Enabled bool

	// Format is the rendering written to the artifact.
	Format ExportFormat
}

// ExtractionSettings controls the extraction worker.
type ExtractionSettings struct {
	// RatePerSecond is the sustained rate of attempts the worker claims.
	RatePerSecond float64

	// Burst is the number of attempts that may be claimed at once.
	Burst int

	// OCRFallback starts a pdf_ocr attempt when pdf_text fails permanently.
	OCRFallback bool
}

// WatchSettings controls the project folder watcher.
type WatchSettings struct {
	// Enabled turns the watcher on.
	Enabled bool

	// Debounce is how long the watcher waits for events to settle before rescanning.
	Debounce time.Duration
}

// AppSettings holds all workspace settings.
type AppSettings struct {
	Storage    StorageSettings
	Artifacts  ArtifactSettings
	Extraction ExtractionSettings
	Watch      WatchSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend: StorageBackendSQLite,
		},
		Artifacts: ArtifactSettings{
			Enabled: false,
			Format:  ExportJSON,
		},
		Extraction: ExtractionSettings{
			RatePerSecond: 4.0,
			Burst:         2,
			OCRFallback:   true,
		},
		Watch: WatchSettings{
			Enabled:  false,
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks every section.
func (s AppSettings) Validate() error {
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidInput, s.Storage.Backend)
	}
	if !s.Artifacts.Format.IsValid() {
		return fmt.Errorf("%w: unknown artifact format %q", ErrInvalidInput, s.Artifacts.Format)
	}
	if s.Extraction.RatePerSecond <= 0 {
		return fmt.Errorf("%w: extraction rate must be positive", ErrInvalidInput)
	}
	if s.Extraction.Burst < 1 {
		return fmt.Errorf("%w: extraction burst must be at least 1", ErrInvalidInput)
	}
	if s.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch debounce must not be negative", ErrInvalidInput)
	}
	return nil
}

// AllStorageBackends returns all available storage backends.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{StorageBackendSQLite, StorageBackendMemory}
}
