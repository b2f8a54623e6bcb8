package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentType_IsValid(t *testing.T) {
	for _, dt := range AllDocumentTypes() {
		assert.True(t, dt.IsValid(), dt.String())
	}
	assert.False(t, DocumentType("txt").IsValid())
	assert.False(t, DocumentType("").IsValid())
}

func TestDocumentType_Metadata(t *testing.T) {
	tests := []struct {
		dt      DocumentType
		exts    []string
		mime    string
		display string
	}{
		{DocumentTypePDF, []string{"pdf"}, "application/pdf", "PDF Document"},
		{DocumentTypeDocx, []string{"docx"},
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "Word Document"},
		{DocumentTypeMarkdown, []string{"md", "markdown"}, "text/markdown", "Markdown"},
		{DocumentType("rtf"), nil, "application/octet-stream", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt), func(t *testing.T) {
			assert.Equal(t, tt.exts, tt.dt.Extensions())
			assert.Equal(t, tt.mime, tt.dt.MIMEType())
			assert.Equal(t, tt.display, tt.dt.DisplayName())
		})
	}
}

func TestDocumentType_IsSizeAcceptable(t *testing.T) {
	dt := DocumentTypePDF
	assert.Equal(t, MaxDocumentSize, dt.MaxFileSize())
	assert.True(t, dt.IsSizeAcceptable(0))
	assert.True(t, dt.IsSizeAcceptable(MaxDocumentSize))
	assert.False(t, dt.IsSizeAcceptable(MaxDocumentSize+1))
	assert.False(t, dt.IsSizeAcceptable(-1))
}

func TestDocumentTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext    string
		want   DocumentType
		wantOK bool
	}{
		{"pdf", DocumentTypePDF, true},
		{".PDF", DocumentTypePDF, true},
		{".docx", DocumentTypeDocx, true},
		{"md", DocumentTypeMarkdown, true},
		{".Markdown", DocumentTypeMarkdown, true},
		{".doc", "", false},
		{".txt", "", false},
		{"", "", false},
		{".", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := DocumentTypeFromExtension(tt.ext)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentTypeFromPath(t *testing.T) {
	got, ok := DocumentTypeFromPath("/docs/Report.Final.PDF")
	assert.True(t, ok)
	assert.Equal(t, DocumentTypePDF, got)

	_, ok = DocumentTypeFromPath("/docs/README")
	assert.False(t, ok)
}

func TestExtractionMethod_IsValid(t *testing.T) {
	for _, m := range AllExtractionMethods() {
		assert.True(t, m.IsValid(), m.String())
		assert.NotEqual(t, "Unknown", m.Description())
	}
	assert.False(t, ExtractionMethod("html").IsValid())
	assert.Equal(t, "Unknown", ExtractionMethod("html").Description())
}

func TestExtractionMethod_ProcessingTime(t *testing.T) {
	assert.Equal(t, ProcessingMedium, ExtractionMethodPDFText.ProcessingTime())
	assert.Equal(t, ProcessingSlow, ExtractionMethodPDFOCR.ProcessingTime())
	assert.Equal(t, ProcessingFast, ExtractionMethodDocxStructure.ProcessingTime())
	assert.Equal(t, ProcessingFast, ExtractionMethodMarkdown.ProcessingTime())
}

func TestExtractionMethodFor(t *testing.T) {
	tests := []struct {
		dt     DocumentType
		want   ExtractionMethod
		wantOK bool
	}{
		{DocumentTypePDF, ExtractionMethodPDFText, true},
		{DocumentTypeDocx, ExtractionMethodDocxStructure, true},
		{DocumentTypeMarkdown, ExtractionMethodMarkdown, true},
		{DocumentType("txt"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.dt), func(t *testing.T) {
			got, ok := ExtractionMethodFor(tt.dt)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplicableMethods(t *testing.T) {
	assert.Equal(t,
		[]ExtractionMethod{ExtractionMethodPDFText, ExtractionMethodPDFOCR},
		ApplicableMethods(DocumentTypePDF))
	assert.Equal(t, []ExtractionMethod{ExtractionMethodDocxStructure}, ApplicableMethods(DocumentTypeDocx))
	assert.Nil(t, ApplicableMethods(DocumentType("txt")))

	assert.True(t, ExtractionMethodPDFOCR.IsApplicableTo(DocumentTypePDF))
	assert.False(t, ExtractionMethodPDFOCR.IsApplicableTo(DocumentTypeDocx))
	assert.False(t, ExtractionMethodMarkdown.IsApplicableTo(DocumentTypePDF))
}

func TestProcessingTimeCategory(t *testing.T) {
	tests := []struct {
		c        ProcessingTimeCategory
		min, max time.Duration
		desc     string
	}{
		{ProcessingFast, 0, 5 * time.Second, "Fast (< 5s)"},
		{ProcessingMedium, 5 * time.Second, 30 * time.Second, "Medium (5-30s)"},
		{ProcessingSlow, 30 * time.Second, 300 * time.Second, "Slow (30-300s)"},
	}

	for _, tt := range tests {
		t.Run(tt.c.String(), func(t *testing.T) {
			lo, hi := tt.c.Range()
			assert.Equal(t, tt.min, lo)
			assert.Equal(t, tt.max, hi)
			assert.Equal(t, tt.desc, tt.c.Description())
		})
	}

	lo, hi := ProcessingTimeCategory("glacial").Range()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}
