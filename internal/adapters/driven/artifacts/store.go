package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ArtifactWriter = (*Store)(nil)

// Store writes ".det" artifacts in a single export format.
type Store struct {
	format domain.ExportFormat
}

// NewStore creates an artifact store for format.
func NewStore(format domain.ExportFormat) (*Store, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: unknown artifact format %q", domain.ErrInvalidInput, format)
	}
	return &Store{format: format}, nil
}

// Format returns the rendering this store writes.
func (s *Store) Format() domain.ExportFormat {
	return s.format
}

// Write renders doc and replaces the artifact for source atomically.
func (s *Store) Write(ctx context.Context, source domain.FilePath, doc *domain.ExtractedDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if source.IsZero() {
		return "", fmt.Errorf("%w: source path is required", domain.ErrInvalidInput)
	}
	if doc == nil {
		return "", fmt.Errorf("%w: extracted document is required", domain.ErrInvalidInput)
	}

	data, err := Render(s.format, doc)
	if err != nil {
		return "", err
	}

	target := source.WithExtractionSuffix()
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	return target, nil
}

// Remove deletes the artifact for source. A missing artifact is not an error.
func (s *Store) Remove(source domain.FilePath) error {
	if source.IsZero() {
		return fmt.Errorf("%w: source path is required", domain.ErrInvalidInput)
	}
	err := os.Remove(source.WithExtractionSuffix())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	return nil
}

// Render returns doc in the given export format. JSON and YAML carry the
// whole persisted state; Markdown and plain text carry the content only.
func Render(format domain.ExportFormat, doc *domain.ExtractedDocument) ([]byte, error) {
	switch format {
	case domain.ExportJSON:
		data, err := json.MarshalIndent(doc.State(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
		}
		return append(data, '\n'), nil
	case domain.ExportYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc.State()); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSerialization, err)
		}
		return buf.Bytes(), nil
	case domain.ExportMarkdown:
		content := doc.Content()
		return []byte(content.Markdown()), nil
	case domain.ExportPlainText:
		content := doc.Content()
		return []byte(content.PlainText() + "\n"), nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, format)
	}
}

// Read loads a JSON or YAML artifact back into an extracted document.
func Read(path string) (*domain.ExtractedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}

	var state domain.ExtractedDocumentState
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(data, &state)
	} else {
		err = yaml.Unmarshal(data, &state)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrSerialization, path, err)
	}
	return domain.RestoreExtractedDocument(state)
}
