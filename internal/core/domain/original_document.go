package domain

import (
	"fmt"
	"time"
)

// OriginalDocument is a source file known to a project.
// Identity, path and type are fixed at creation; a moved or renamed file is
// modelled as delete plus create so checksums and IDs stay trustworthy.
type OriginalDocument struct {
	id         DocumentID
	projectID  ProjectID
	path       FilePath
	docType    DocumentType
	size       int64
	checksum   string
	createdAt  time.Time
	modifiedAt time.Time
}

// OriginalDocumentState is the flat, persistable form of an OriginalDocument.
type OriginalDocumentState struct {
	ID         DocumentID
	ProjectID  ProjectID
	Path       FilePath
	Type       DocumentType
	Size       int64
	Checksum   string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewOriginalDocument creates a document for a scanned file. The type is
// derived from the path extension.
func NewOriginalDocument(
	projectID ProjectID,
	path FilePath,
	size int64,
	checksum string,
	now time.Time,
) (*OriginalDocument, error) {
	docType, ok := DocumentTypeFromPath(path.String())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, path.Ext())
	}
	doc := &OriginalDocument{
		id:         NewDocumentID(),
		projectID:  projectID,
		path:       path,
		docType:    docType,
		size:       size,
		checksum:   checksum,
		createdAt:  now,
		modifiedAt: now,
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// RestoreOriginalDocument rebuilds a document from persisted state.
func RestoreOriginalDocument(state OriginalDocumentState) (*OriginalDocument, error) {
	doc := &OriginalDocument{
		id:         state.ID,
		projectID:  state.ProjectID,
		path:       state.Path,
		docType:    state.Type,
		size:       state.Size,
		checksum:   state.Checksum,
		createdAt:  state.CreatedAt,
		modifiedAt: state.ModifiedAt,
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *OriginalDocument) validate() error {
	switch {
	case d.id.IsZero():
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	case d.projectID.IsZero():
		return fmt.Errorf("%w: project id is required", ErrInvalidInput)
	case d.path.IsZero():
		return fmt.Errorf("%w: path is required", ErrInvalidInput)
	case !d.docType.IsValid():
		return fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, d.docType)
	case d.size < 0:
		return fmt.Errorf("%w: negative size %d", ErrInvalidInput, d.size)
	case d.checksum == "":
		return fmt.Errorf("%w: checksum is required", ErrInvalidInput)
	}
	return nil
}

// ID returns the document identity.
func (d *OriginalDocument) ID() DocumentID { return d.id }

// ProjectID returns the owning project.
func (d *OriginalDocument) ProjectID() ProjectID { return d.projectID }

// Path returns the source file path.
func (d *OriginalDocument) Path() FilePath { return d.path }

// FileName returns the base name of the source file.
func (d *OriginalDocument) FileName() string { return d.path.Base() }

// Type returns the document type.
func (d *OriginalDocument) Type() DocumentType { return d.docType }

// Size returns the file size in bytes.
func (d *OriginalDocument) Size() int64 { return d.size }

// Checksum returns the content hash.
func (d *OriginalDocument) Checksum() string { return d.checksum }

// CreatedAt returns when the document was first scanned.
func (d *OriginalDocument) CreatedAt() time.Time { return d.createdAt }

// ModifiedAt returns when the content was last seen to change.
func (d *OriginalDocument) ModifiedAt() time.Time { return d.modifiedAt }

// IsExtractable reports whether the document may enter the extraction pipeline.
func (d *OriginalDocument) IsExtractable() bool {
	return d.docType.IsValid() && d.docType.IsSizeAcceptable(d.size)
}

// CheckExtractable returns the classification error that keeps the document
// out of the pipeline, or nil.
func (d *OriginalDocument) CheckExtractable() error {
	if !d.docType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, d.docType)
	}
	if !d.docType.IsSizeAcceptable(d.size) {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, d.size, d.docType.MaxFileSize())
	}
	return nil
}

// UpdateChecksum records new content for the underlying file.
// The size travels with the checksum because both describe the same bytes.
func (d *OriginalDocument) UpdateChecksum(checksum string, size int64, modifiedAt time.Time) error {
	if checksum == "" {
		return fmt.Errorf("%w: checksum is required", ErrInvalidInput)
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidInput, size)
	}
	d.checksum = checksum
	d.size = size
	d.modifiedAt = modifiedAt
	return nil
}

// State returns a persistable snapshot.
func (d *OriginalDocument) State() OriginalDocumentState {
	return OriginalDocumentState{
		ID:         d.id,
		ProjectID:  d.projectID,
		Path:       d.path,
		Type:       d.docType,
		Size:       d.size,
		Checksum:   d.checksum,
		CreatedAt:  d.createdAt,
		ModifiedAt: d.modifiedAt,
	}
}

// Clone returns an independent copy.
func (d *OriginalDocument) Clone() *OriginalDocument {
	c := *d
	return &c
}
