package driving

import (
	"context"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

// ScanService reconciles a project's documents with a workspace folder.
type ScanService interface {
	// Scan walks root, registers new files, records changed checksums and
	// removes documents whose files are gone.
	Scan(ctx context.Context, projectID domain.ProjectID, root string) (*ScanReport, error)
}

// ScanReport describes one reconciliation pass.
type ScanReport struct {
	// Added lists documents registered during the scan.
	Added []domain.DocumentID

	// Updated lists documents whose content changed.
	Updated []domain.DocumentID

	// Removed lists documents whose files disappeared.
	Removed []domain.DocumentID

	// Unchanged counts files that matched their stored checksum.
	Unchanged int

	// Skipped counts files with no supported document type.
	Skipped int

	// Queued lists extractions started for added and updated documents.
	Queued []domain.ExtractionID

	// Failed lists files that could not be processed.
	Failed []domain.BatchFailure
}

// Changed reports whether the scan altered any document.
func (r *ScanReport) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}
