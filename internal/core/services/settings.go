package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
	"github.com/custodia-labs/docreview/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyStorageBackend   = "storage.backend"
	keyStorageDataDir   = "storage.data_dir"
	keyArtifactsEnabled = "artifacts.enabled"
	keyArtifactsFormat  = "artifacts.format"
	keyExtractionRate   = "extraction.rate"
	keyExtractionBurst  = "extraction.burst"
	keyOCRFallback      = "extraction.ocr_fallback"
	keyWatchEnabled     = "watch.enabled"
	keyWatchDebounceMS  = "watch.debounce_ms"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Missing or unrecognised
// values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend: s.getBackend(defaults.Storage.Backend),
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
		Artifacts: domain.ArtifactSettings{
			Enabled: s.getBool(keyArtifactsEnabled, defaults.Artifacts.Enabled),
			Format:  s.getFormat(defaults.Artifacts.Format),
		},
		Extraction: domain.ExtractionSettings{
			RatePerSecond: s.getFloat(keyExtractionRate, defaults.Extraction.RatePerSecond),
			Burst:         s.getInt(keyExtractionBurst, defaults.Extraction.Burst),
			OCRFallback:   s.getBool(keyOCRFallback, defaults.Extraction.OCRFallback),
		},
		Watch: domain.WatchSettings{
			Enabled:  s.getBool(keyWatchEnabled, defaults.Watch.Enabled),
			Debounce: s.getDebounce(defaults.Watch.Debounce),
		},
	}

	return settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyArtifactsEnabled, settings.Artifacts.Enabled},
		{keyArtifactsFormat, settings.Artifacts.Format.String()},
		{keyExtractionRate, settings.Extraction.RatePerSecond},
		{keyExtractionBurst, settings.Extraction.Burst},
		{keyOCRFallback, settings.Extraction.OCRFallback},
		{keyWatchEnabled, settings.Watch.Enabled},
		{keyWatchDebounceMS, int(settings.Watch.Debounce / time.Millisecond)},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetStorageBackend updates the storage backend and data directory.
func (s *SettingsService) SetStorageBackend(backend domain.StorageBackend, dataDir string) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Storage.Backend = backend
	settings.Storage.DataDir = dataDir
	return s.Save(settings)
}

// SetArtifactFormat enables artifact export in the given format.
func (s *SettingsService) SetArtifactFormat(format domain.ExportFormat) error {
	if !format.IsValid() {
		return fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, format)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Artifacts.Enabled = true
	settings.Artifacts.Format = format
	return s.Save(settings)
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getFormat(defaultVal domain.ExportFormat) domain.ExportFormat {
	format := domain.ExportFormat(s.configStore.GetString(keyArtifactsFormat))
	if !format.IsValid() {
		return defaultVal
	}
	return format
}

func (s *SettingsService) getDebounce(defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(keyWatchDebounceMS); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(keyWatchDebounceMS)) * time.Millisecond
}
