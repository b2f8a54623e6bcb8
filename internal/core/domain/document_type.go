package domain

import (
	"path/filepath"
	"strings"
)

// MaxDocumentSize is the size ceiling shared by every document type today.
const MaxDocumentSize int64 = 10 * 1024 * 1024

// DocumentType classifies a source document by format.
type DocumentType string

// Supported document types.
const (
	// DocumentTypePDF is a Portable Document Format file.
	DocumentTypePDF DocumentType = "pdf"

	// DocumentTypeDocx is a Microsoft Word (OOXML) file.
	DocumentTypeDocx DocumentType = "docx"

	// DocumentTypeMarkdown is a Markdown text file.
	DocumentTypeMarkdown DocumentType = "markdown"
)

// AllDocumentTypes returns the supported types in extension-matching order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{DocumentTypePDF, DocumentTypeDocx, DocumentTypeMarkdown}
}

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypePDF, DocumentTypeDocx, DocumentTypeMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}

// Extensions returns the lower-case extensions (without dot) for the type.
func (t DocumentType) Extensions() []string {
	switch t {
	case DocumentTypePDF:
		return []string{"pdf"}
	case DocumentTypeDocx:
		return []string{"docx"}
	case DocumentTypeMarkdown:
		return []string{"md", "markdown"}
	default:
		return nil
	}
}

// MIMEType returns the canonical MIME type.
func (t DocumentType) MIMEType() string {
	switch t {
	case DocumentTypePDF:
		return "application/pdf"
	case DocumentTypeDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case DocumentTypeMarkdown:
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

// DisplayName returns a human-readable name.
func (t DocumentType) DisplayName() string {
	switch t {
	case DocumentTypePDF:
		return "PDF Document"
	case DocumentTypeDocx:
		return "Word Document"
	case DocumentTypeMarkdown:
		return "Markdown"
	default:
		return unknownDescription
	}
}

// MaxFileSize returns the largest acceptable file size in bytes.
func (t DocumentType) MaxFileSize() int64 {
	return MaxDocumentSize
}

// IsSizeAcceptable reports whether a file of size bytes may be extracted.
func (t DocumentType) IsSizeAcceptable(size int64) bool {
	return size >= 0 && size <= t.MaxFileSize()
}

// DocumentTypeFromExtension maps an extension (with or without the leading
// dot, any case) to its document type. The first matching type wins.
func DocumentTypeFromExtension(ext string) (DocumentType, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return "", false
	}
	for _, t := range AllDocumentTypes() {
		for _, candidate := range t.Extensions() {
			if candidate == ext {
				return t, true
			}
		}
	}
	return "", false
}

// DocumentTypeFromPath classifies a path by its extension.
func DocumentTypeFromPath(path string) (DocumentType, bool) {
	return DocumentTypeFromExtension(filepath.Ext(path))
}
