package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStorageBackend_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		backend  StorageBackend
		expected bool
	}{
		{"sqlite is valid", StorageBackendSQLite, true},
		{"memory is valid", StorageBackendMemory, true},
		{"empty string is invalid", StorageBackend(""), false},
		{"unknown backend is invalid", StorageBackend("postgres"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.backend.IsValid())
		})
	}
}

func TestStorageBackend_Description(t *testing.T) {
	assert.Equal(t, "SQLite (persistent)", StorageBackendSQLite.Description())
	assert.Equal(t, "Memory (lost on exit)", StorageBackendMemory.Description())
	assert.Equal(t, unknownDescription, StorageBackend("other").Description())
	assert.Equal(t, "sqlite", StorageBackendSQLite.String())
}

func TestAllStorageBackends(t *testing.T) {
	backends := AllStorageBackends()

	assert.Equal(t, []StorageBackend{StorageBackendSQLite, StorageBackendMemory}, backends)
	for _, b := range backends {
		assert.True(t, b.IsValid())
	}
}

func TestDefaultAppSettings(t *testing.T) {
	settings := DefaultAppSettings()

	assert.Equal(t, StorageBackendSQLite, settings.Storage.Backend)
	assert.Empty(t, settings.Storage.DataDir)
	assert.False(t, settings.Artifacts.Enabled)
	assert.Equal(t, ExportJSON, settings.Artifacts.Format)
	assert.Equal(t, 4.0, settings.Extraction.RatePerSecond)
	assert.Equal(t, 2, settings.Extraction.Burst)
	assert.True(t, settings.Extraction.OCRFallback)
	assert.False(t, settings.Watch.Enabled)
	assert.Equal(t, 500*time.Millisecond, settings.Watch.Debounce)
	assert.NoError(t, settings.Validate())
}

func TestAppSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*AppSettings)
	}{
		{"unknown backend", func(s *AppSettings) { s.Storage.Backend = "postgres" }},
		{"unknown artifact format", func(s *AppSettings) { s.Artifacts.Format = "docx" }},
		{"zero rate", func(s *AppSettings) { s.Extraction.RatePerSecond = 0 }},
		{"negative rate", func(s *AppSettings) { s.Extraction.RatePerSecond = -1 }},
		{"zero burst", func(s *AppSettings) { s.Extraction.Burst = 0 }},
		{"negative debounce", func(s *AppSettings) { s.Watch.Debounce = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultAppSettings()
			tt.modify(&settings)
			assert.ErrorIs(t, settings.Validate(), ErrInvalidInput)
		})
	}
}

func TestAppSettings_ValidateAcceptsZeroDebounce(t *testing.T) {
	settings := DefaultAppSettings()
	settings.Watch.Debounce = 0

	assert.NoError(t, settings.Validate())
}
