package driving

import "github.com/custodia-labs/docreview/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetStorageBackend updates the storage backend and data directory.
	SetStorageBackend(backend domain.StorageBackend, dataDir string) error

	// SetArtifactFormat enables artifact export in the given format.
	SetArtifactFormat(format domain.ExportFormat) error

	// Validate checks if current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
