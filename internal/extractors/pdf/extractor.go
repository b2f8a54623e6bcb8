package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// maxTitleRunes caps titles taken from the first line of text.
const maxTitleRunes = 200

// Extractor reads the text layer of PDF documents, one page node per page.
// Scanned PDFs without a text layer fail permanently so that an OCR
// extractor can take over.
type Extractor struct{}

// New creates a new PDF text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Method returns the extraction method this extractor implements.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionMethodPDFText
}

// Extract parses the PDF at path and returns its text as paragraphs grouped by page.
func (e *Extractor) Extract(ctx context.Context, path domain.FilePath) (*domain.RichTextDocument, error) {
	f, err := os.Open(path.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		return nil, err
	}
	defer f.Close()

	pdfCtx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtractionFailed, path.Base(), err)
	}

	var pages []domain.ContentNode
	var title string
	hasText := false

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		paragraphs := parseContentStream(pageContent(pdfCtx, pageNr))
		page := domain.PageNode(pageNr)
		for _, p := range paragraphs {
			if title == "" {
				title = truncate(p, maxTitleRunes)
			}
			page.Children = append(page.Children, domain.Paragraph(domain.TextNode(p)))
		}
		if len(paragraphs) > 0 {
			hasText = true
		}
		pages = append(pages, page)
	}

	if !hasText {
		return nil, fmt.Errorf("%w: %s has no text layer", domain.ErrExtractionFailed, path.Base())
	}
	if title == "" {
		title = strings.TrimSuffix(path.Base(), filepath.Ext(path.Base()))
	}
	return domain.NewRichTextDocument(title, pages...), nil
}

// pageContent returns the decoded content stream of a page, or nil.
func pageContent(pdfCtx *model.Context, pageNr int) []byte {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return data
}

// operand is a content stream operand. Only strings and numbers matter for text.
type operand struct {
	text     string
	num      float64
	isString bool
	isNum    bool
}

// textCollector accumulates lines of the current text object (BT ... ET).
type textCollector struct {
	paragraphs []string
	lines      []string
	cur        strings.Builder
}

func (c *textCollector) write(s string) {
	c.cur.WriteString(s)
}

func (c *textCollector) space() {
	s := c.cur.String()
	if s != "" && !strings.HasSuffix(s, " ") {
		c.cur.WriteByte(' ')
	}
}

func (c *textCollector) newline() {
	if line := cleanText(c.cur.String()); line != "" {
		c.lines = append(c.lines, line)
	}
	c.cur.Reset()
}

func (c *textCollector) endObject() {
	c.newline()
	if len(c.lines) > 0 {
		c.paragraphs = append(c.paragraphs, strings.Join(c.lines, " "))
	}
	c.lines = nil
}

// parseContentStream interprets the text operators of a page content stream.
// Each text object becomes one paragraph; line moves inside it become spaces.
func parseContentStream(data []byte) []string {
	var c textCollector
	var operands []operand

	lastString := func() string {
		for i := len(operands) - 1; i >= 0; i-- {
			if operands[i].isString {
				return operands[i].text
			}
		}
		return ""
	}
	numAt := func(i int) float64 {
		if i < len(operands) && operands[i].isNum {
			return operands[i].num
		}
		return 0
	}

	s := &scanner{data: data}
	for {
		tok, op, ok := s.next()
		if !ok {
			break
		}
		if op == "" {
			operands = append(operands, tok)
			continue
		}
		switch op {
		case "BT":
			c.newline()
		case "ET":
			c.endObject()
		case "Tj", "TJ":
			c.write(lastString())
		case "'", "\"":
			c.newline()
			c.write(lastString())
		case "T*", "Tm":
			c.newline()
		case "Td", "TD":
			if numAt(1) != 0 {
				c.newline()
			} else {
				c.space()
			}
		}
		operands = operands[:0]
	}
	c.endObject()
	return c.paragraphs
}

// scanner tokenises a content stream.
type scanner struct {
	data []byte
	pos  int
}

// next returns either an operand or an operator name.
func (s *scanner) next() (operand, string, bool) {
	for s.pos < len(s.data) {
		ch := s.data[s.pos]
		switch {
		case isSpace(ch):
			s.pos++
		case ch == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case ch == '(':
			return operand{text: s.literal(), isString: true}, "", true
		case ch == '<' && s.peek(1) == '<', ch == '>' && s.peek(1) == '>':
			s.pos += 2
		case ch == '<':
			return operand{text: s.hex(), isString: true}, "", true
		case ch == '[':
			s.pos++
			return operand{text: s.array(), isString: true}, "", true
		case ch == ']':
			s.pos++
			return operand{}, "]", true
		case ch == '{', ch == '}', ch == '>', ch == ')':
			s.pos++
		case ch == '/':
			s.pos++
			s.word()
			return operand{}, "", true
		case ch == '-' || ch == '+' || ch == '.' || (ch >= '0' && ch <= '9'):
			n, _ := strconv.ParseFloat(s.word(), 64)
			return operand{num: n, isNum: true}, "", true
		default:
			w := s.word()
			if w == "" {
				w = string(ch)
				s.pos++
			}
			return operand{}, w, true
		}
	}
	return operand{}, "", false
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.data) {
		return s.data[s.pos+off]
	}
	return 0
}

func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a (string) with nested parentheses and escapes.
func (s *scanner) literal() string {
	s.pos++
	var raw []byte
	depth := 1
	for s.pos < len(s.data) {
		ch := s.data[s.pos]
		s.pos++
		switch ch {
		case '\\':
			if s.pos < len(s.data) {
				raw = append(raw, '\\', s.data[s.pos])
				s.pos++
			}
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return decodePDFString(raw)
			}
		}
		raw = append(raw, ch)
	}
	return decodePDFString(raw)
}

// hex reads a <hex string>.
func (s *scanner) hex() string {
	s.pos++
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if ch := s.data[s.pos]; !isSpace(ch) {
			digits = append(digits, ch)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, 0, len(digits)/2)
	for i := 0; i+1 < len(digits); i += 2 {
		b, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return ""
		}
		out = append(out, byte(b))
	}
	return decodeText(out)
}

// array reads a TJ array. Large negative adjustments are word gaps.
func (s *scanner) array() string {
	var b strings.Builder
	for {
		tok, op, ok := s.next()
		if !ok || op == "]" {
			break
		}
		switch {
		case tok.isString:
			b.WriteString(tok.text)
		case tok.isNum && tok.num < -250:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// decodePDFString resolves the escape sequences of a literal string.
func decodePDFString(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			out = append(out, raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\n':
			// Line continuation.
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				out = append(out, byte(val))
			} else {
				out = append(out, raw[i])
			}
		}
	}
	return decodeText(out)
}

// decodeText interprets string bytes as UTF-16BE when they carry a byte
// order mark and as Latin-1 otherwise.
func decodeText(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		units := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// cleanText collapses whitespace and drops unprintable characters.
func cleanText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
