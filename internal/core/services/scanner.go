package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
	"github.com/custodia-labs/docreview/internal/core/ports/driving"
	"github.com/custodia-labs/docreview/internal/logger"
)

// Ensure ProjectScanner implements the interface.
var _ driving.ScanService = (*ProjectScanner)(nil)

// ProjectScanner reconciles a project's documents with a workspace folder.
type ProjectScanner struct {
	documents   driven.DocumentRepository
	aggregate   *DocumentExtractionAggregate
	autoExtract bool
	now         func() time.Time
}

// NewProjectScanner creates a scanner. Removed documents are deleted
// through the aggregate so their extractions go with them.
func NewProjectScanner(documents driven.DocumentRepository, aggregate *DocumentExtractionAggregate) *ProjectScanner {
	return &ProjectScanner{
		documents: documents,
		aggregate: aggregate,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithAutoExtract makes every scan start extractions for added documents
// and force re-extraction of changed ones.
func (s *ProjectScanner) WithAutoExtract(enabled bool) *ProjectScanner {
	s.autoExtract = enabled
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *ProjectScanner) WithClock(now func() time.Time) *ProjectScanner {
	s.now = now
	return s
}

// Scan walks root and reconciles the project's documents with the files
// found. Hidden directories and extraction artifacts are ignored.
func (s *ProjectScanner) Scan(ctx context.Context, projectID domain.ProjectID, root string) (*driving.ScanReport, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPathNotAbsolute, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPathNotFound, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	logger.Section("Scan " + root)

	known, err := s.documents.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	byPath := make(map[string]*domain.OriginalDocument, len(known))
	for _, doc := range known {
		byPath[doc.Path().String()] = doc
	}

	report := &driving.ScanReport{}
	seen := make(map[string]bool)
	var added []*domain.OriginalDocument

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			report.Failed = append(report.Failed, domain.BatchFailure{ID: path, Err: err})
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, domain.ExtractionArtifactSuffix) {
			return nil
		}
		if _, ok := domain.DocumentTypeFromPath(path); !ok {
			report.Skipped++
			return nil
		}

		fp, err := domain.NewWorkspacePath(path)
		if err == nil {
			err = fp.RequireWithinWorkspace(root)
		}
		if err != nil {
			report.Failed = append(report.Failed, domain.BatchFailure{ID: path, Err: err})
			return nil
		}
		seen[fp.String()] = true

		checksum, size, modTime, err := fileDigest(fp.String())
		if err != nil {
			report.Failed = append(report.Failed, domain.BatchFailure{ID: path, Err: err})
			return nil
		}

		if doc, ok := byPath[fp.String()]; ok {
			if doc.Checksum() == checksum {
				report.Unchanged++
				return nil
			}
			if err := s.documents.UpdateChecksum(ctx, doc.ID(), checksum, size, modTime); err != nil {
				report.Failed = append(report.Failed, domain.BatchFailure{ID: doc.ID().String(), Err: err})
				return nil
			}
			logger.Debug("changed: %s", fp)
			report.Updated = append(report.Updated, doc.ID())
			return nil
		}

		doc, err := domain.NewOriginalDocument(projectID, fp, size, checksum, s.now())
		if err != nil {
			report.Failed = append(report.Failed, domain.BatchFailure{ID: path, Err: err})
			return nil
		}
		added = append(added, doc)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	if err := s.saveAdded(ctx, added, report); err != nil {
		return nil, err
	}

	for path, doc := range byPath {
		if seen[path] {
			continue
		}
		if err := s.aggregate.RemoveDocument(ctx, doc.ID()); err != nil {
			report.Failed = append(report.Failed, domain.BatchFailure{ID: doc.ID().String(), Err: err})
			continue
		}
		logger.Debug("removed: %s", path)
		report.Removed = append(report.Removed, doc.ID())
	}

	if s.autoExtract {
		s.queue(ctx, report)
	}

	logger.Info("scan of %s: %d added, %d updated, %d removed, %d unchanged, %d skipped, %d failed",
		root, len(report.Added), len(report.Updated), len(report.Removed),
		report.Unchanged, report.Skipped, len(report.Failed))
	return report, nil
}

func (s *ProjectScanner) saveAdded(ctx context.Context, added []*domain.OriginalDocument, report *driving.ScanReport) error {
	if len(added) == 0 {
		return nil
	}
	result, err := s.documents.SaveBatch(ctx, added)
	if err != nil {
		return fmt.Errorf("save documents: %w", err)
	}
	saved := make(map[string]bool, len(result.Saved))
	for _, id := range result.Saved {
		saved[id] = true
	}
	for _, doc := range added {
		if saved[doc.ID().String()] {
			logger.Debug("added: %s", doc.Path())
			report.Added = append(report.Added, doc.ID())
		}
	}
	report.Failed = append(report.Failed, result.Failed...)
	return nil
}

// queue starts extractions for new documents and restarts changed ones.
// Oversized documents are left alone.
func (s *ProjectScanner) queue(ctx context.Context, report *driving.ScanReport) {
	start := func(id domain.DocumentID, force bool) {
		e, err := s.aggregate.StartExtraction(ctx, id, force)
		switch {
		case err == nil:
			report.Queued = append(report.Queued, e.ID())
		case isNotExtractable(err):
			logger.Debug("not queuing %s: %v", id, err)
		default:
			report.Failed = append(report.Failed, domain.BatchFailure{ID: id.String(), Err: err})
		}
	}
	for _, id := range report.Added {
		start(id, false)
	}
	for _, id := range report.Updated {
		start(id, true)
	}
}

func isNotExtractable(err error) bool {
	return errors.Is(err, domain.ErrFileTooLarge) || errors.Is(err, domain.ErrUnsupportedDocumentType)
}

// fileDigest returns the hex SHA-256, size and modification time of a file.
func fileDigest(path string) (string, int64, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("%w: %w", domain.ErrPathNotReadable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", 0, time.Time{}, fmt.Errorf("%w: %w", domain.ErrFileSystem, err)
	}
	return hex.EncodeToString(h.Sum(nil)), info.Size(), info.ModTime().UTC(), nil
}
