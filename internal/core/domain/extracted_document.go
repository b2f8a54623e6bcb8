package domain

import (
	"fmt"
	"time"
)

// ExtractedDocument is the structured output of a completed extraction.
// It is immutable; re-extraction produces a new ExtractedDocument with a
// higher content version.
type ExtractedDocument struct {
	id             ExtractedDocumentID
	extractionID   ExtractionID
	documentID     DocumentID
	method         ExtractionMethod
	content        RichTextDocument
	stats          Statistics
	contentVersion int
	createdAt      time.Time
}

// ExtractedDocumentState is the flat, persistable form of an ExtractedDocument.
type ExtractedDocumentState struct {
	ID             ExtractedDocumentID `json:"id" yaml:"id"`
	ExtractionID   ExtractionID        `json:"extraction_id" yaml:"extraction_id"`
	DocumentID     DocumentID          `json:"document_id" yaml:"document_id"`
	Method         ExtractionMethod    `json:"method" yaml:"method"`
	Content        RichTextDocument    `json:"content" yaml:"content"`
	Statistics     Statistics          `json:"statistics" yaml:"statistics"`
	ContentVersion int                 `json:"content_version" yaml:"content_version"`
	CreatedAt      time.Time           `json:"created_at" yaml:"created_at"`
}

// NewExtractedDocument builds the output of a Completed extraction.
// Statistics are computed here and never again.
func NewExtractedDocument(
	extraction *FileExtraction,
	content *RichTextDocument,
	contentVersion int,
	now time.Time,
) (*ExtractedDocument, error) {
	if extraction == nil {
		return nil, fmt.Errorf("%w: extraction is required", ErrInvalidInput)
	}
	if extraction.Status() != ExtractionCompleted {
		return nil, fmt.Errorf("%w: extraction %s is %s, not %s",
			ErrInvalidTransition, extraction.ID(), extraction.Status(), ExtractionCompleted)
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	if contentVersion < 1 {
		return nil, fmt.Errorf("%w: content version must be >= 1, got %d", ErrInvalidInput, contentVersion)
	}
	return &ExtractedDocument{
		id:             NewExtractedDocumentID(),
		extractionID:   extraction.ID(),
		documentID:     extraction.DocumentID(),
		method:         extraction.Method(),
		content:        cloneRichText(*content),
		stats:          content.ComputeStatistics(),
		contentVersion: contentVersion,
		createdAt:      now,
	}, nil
}

// RestoreExtractedDocument rebuilds an extracted document from persisted state.
// Statistics are taken as stored.
func RestoreExtractedDocument(state ExtractedDocumentState) (*ExtractedDocument, error) {
	switch {
	case state.ID.IsZero():
		return nil, fmt.Errorf("%w: extracted document id is required", ErrInvalidInput)
	case state.ExtractionID.IsZero():
		return nil, fmt.Errorf("%w: extraction id is required", ErrInvalidInput)
	case state.DocumentID.IsZero():
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	case state.ContentVersion < 1:
		return nil, fmt.Errorf("%w: content version must be >= 1, got %d", ErrInvalidInput, state.ContentVersion)
	}
	if err := state.Content.Validate(); err != nil {
		return nil, err
	}
	return &ExtractedDocument{
		id:             state.ID,
		extractionID:   state.ExtractionID,
		documentID:     state.DocumentID,
		method:         state.Method,
		content:        cloneRichText(state.Content),
		stats:          state.Statistics,
		contentVersion: state.ContentVersion,
		createdAt:      state.CreatedAt,
	}, nil
}

// ID returns the extracted document identity.
func (d *ExtractedDocument) ID() ExtractedDocumentID { return d.id }

// ExtractionID returns the attempt that produced this output.
func (d *ExtractedDocument) ExtractionID() ExtractionID { return d.extractionID }

// DocumentID returns the source document.
func (d *ExtractedDocument) DocumentID() DocumentID { return d.documentID }

// Method returns the extraction method that produced the content.
func (d *ExtractedDocument) Method() ExtractionMethod { return d.method }

// Content returns a copy of the content tree.
func (d *ExtractedDocument) Content() RichTextDocument { return cloneRichText(d.content) }

// Statistics returns the summary statistics computed at creation.
func (d *ExtractedDocument) Statistics() Statistics { return d.stats }

// ContentVersion returns the re-extraction counter, starting at 1.
func (d *ExtractedDocument) ContentVersion() int { return d.contentVersion }

// CreatedAt returns when the output was produced.
func (d *ExtractedDocument) CreatedAt() time.Time { return d.createdAt }

// State returns a persistable snapshot.
func (d *ExtractedDocument) State() ExtractedDocumentState {
	return ExtractedDocumentState{
		ID:             d.id,
		ExtractionID:   d.extractionID,
		DocumentID:     d.documentID,
		Method:         d.method,
		Content:        cloneRichText(d.content),
		Statistics:     d.stats,
		ContentVersion: d.contentVersion,
		CreatedAt:      d.createdAt,
	}
}

// ContentVersionInfo is one entry of a document's content-version history.
type ContentVersionInfo struct {
	ExtractedDocumentID ExtractedDocumentID
	ExtractionID        ExtractionID
	ContentVersion      int
	WordCount           int
	CreatedAt           time.Time
}

// VersionInfo summarises the document for version-history listings.
func (d *ExtractedDocument) VersionInfo() ContentVersionInfo {
	return ContentVersionInfo{
		ExtractedDocumentID: d.id,
		ExtractionID:        d.extractionID,
		ContentVersion:      d.contentVersion,
		WordCount:           d.stats.WordCount,
		CreatedAt:           d.createdAt,
	}
}

func cloneRichText(d RichTextDocument) RichTextDocument {
	return RichTextDocument{Title: d.Title, Root: cloneNode(d.Root)}
}

func cloneNode(n ContentNode) ContentNode {
	c := ContentNode{Type: n.Type, Text: n.Text}
	if n.Attrs != nil {
		c.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if n.Marks != nil {
		c.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			c.Marks[i] = Mark{Type: m.Type}
			if m.Attrs != nil {
				c.Marks[i].Attrs = make(map[string]string, len(m.Attrs))
				for k, v := range m.Attrs {
					c.Marks[i].Attrs[k] = v
				}
			}
		}
	}
	if n.Children != nil {
		c.Children = make([]ContentNode, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = cloneNode(child)
		}
	}
	return c
}

// ExportFormat is a rendering supported for extracted documents.
type ExportFormat string

// Export formats.
const (
	ExportJSON      ExportFormat = "json"
	ExportYAML      ExportFormat = "yaml"
	ExportMarkdown  ExportFormat = "markdown"
	ExportPlainText ExportFormat = "text"
)

// AllExportFormats returns every supported export format.
func AllExportFormats() []ExportFormat {
	return []ExportFormat{ExportJSON, ExportYAML, ExportMarkdown, ExportPlainText}
}

// IsValid returns true if the export format is recognised.
func (f ExportFormat) IsValid() bool {
	switch f {
	case ExportJSON, ExportYAML, ExportMarkdown, ExportPlainText:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f ExportFormat) String() string {
	return string(f)
}

// MIMEType returns the MIME type of the rendered artifact.
func (f ExportFormat) MIMEType() string {
	switch f {
	case ExportJSON:
		return "application/json"
	case ExportYAML:
		return "application/yaml"
	case ExportMarkdown:
		return "text/markdown"
	case ExportPlainText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
