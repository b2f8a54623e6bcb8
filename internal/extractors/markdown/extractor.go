package markdown

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor converts Markdown source into the content tree.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// Method returns the extraction method this extractor implements.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionMethodMarkdown
}

// Extract reads and parses the Markdown file at path.
func (e *Extractor) Extract(_ context.Context, path domain.FilePath) (*domain.RichTextDocument, error) {
	raw, err := os.ReadFile(path.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		return nil, err
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrExtractionFailed, path.Base())
	}
	return Parse(string(raw), path.String()), nil
}

// Parse converts Markdown text into a content tree. The title is the first
// level-one heading, or the file name when there is none.
func Parse(content, uri string) *domain.RichTextDocument {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	blocks := parseBlocks(lines)
	return domain.NewRichTextDocument(extractTitle(blocks, uri), blocks...)
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	hrRe       = regexp.MustCompile(`^\s{0,3}([-*_])(\s*[-*_]){2,}\s*$`)
	bulletRe   = regexp.MustCompile(`^(\s*)[-*+]\s+(.*)$`)
	orderedRe  = regexp.MustCompile(`^(\s*)\d+[.)]\s+(.*)$`)
	fenceRe    = regexp.MustCompile("^\\s*(```|~~~)\\s*([\\w+-]*)")
	tableSepRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
)

// parseBlocks turns lines into block nodes.
func parseBlocks(lines []string) []domain.ContentNode {
	var blocks []domain.ContentNode
	var para []string

	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, domain.Paragraph(parseInline(strings.Join(para, " "))...))
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()

		case fenceRe.MatchString(line):
			flush()
			m := fenceRe.FindStringSubmatch(line)
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), m[1]); i++ {
				code = append(code, lines[i])
			}
			node := domain.ContentNode{
				Type:     domain.NodeCodeBlock,
				Children: []domain.ContentNode{domain.TextNode(strings.Join(code, "\n"))},
			}
			if m[2] != "" {
				node.Attrs = map[string]string{"language": m[2]}
			}
			blocks = append(blocks, node)

		case headingRe.MatchString(trimmed):
			flush()
			m := headingRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, domain.Heading(len(m[1]), parseInline(m[2])...))

		case hrRe.MatchString(line):
			flush()
			blocks = append(blocks, domain.ContentNode{Type: domain.NodeHorizontalRule})

		case strings.HasPrefix(trimmed, ">"):
			flush()
			var quoted []string
			for ; i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), ">"); i++ {
				q := strings.TrimPrefix(strings.TrimSpace(lines[i]), ">")
				quoted = append(quoted, strings.TrimPrefix(q, " "))
			}
			i--
			blocks = append(blocks, domain.ContentNode{Type: domain.NodeBlockquote, Children: parseBlocks(quoted)})

		case bulletRe.MatchString(line) || orderedRe.MatchString(line):
			flush()
			var list domain.ContentNode
			list, i = parseList(lines, i)
			blocks = append(blocks, list)

		case strings.HasPrefix(trimmed, "|") && i+1 < len(lines) && tableSepRe.MatchString(lines[i+1]):
			flush()
			var table domain.ContentNode
			table, i = parseTable(lines, i)
			blocks = append(blocks, table)

		default:
			para = append(para, trimmed)
		}
	}
	flush()
	return blocks
}

// parseList consumes a list starting at lines[start]. Items indented deeper
// than the first marker become a nested list. It returns the list and the
// index of its last line.
func parseList(lines []string, start int) (domain.ContentNode, int) {
	indent, ordered := listMarker(lines[start])
	list := domain.ContentNode{Type: domain.NodeBulletList}
	if ordered {
		list.Type = domain.NodeOrderedList
	}

	i := start
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			break
		}
		lineIndent, lineOrdered := listMarker(line)
		switch {
		case lineIndent < 0:
			// Lazy continuation of the previous item, unless a new block starts.
			if len(list.Children) == 0 || startsBlock(line) {
				return list, i - 1
			}
			last := &list.Children[len(list.Children)-1]
			last.Children[0].Children = append(last.Children[0].Children, parseInline(" "+strings.TrimSpace(line))...)
			i++
		case lineIndent > indent && len(list.Children) > 0:
			var nested domain.ContentNode
			nested, i = parseList(lines, i)
			last := &list.Children[len(list.Children)-1]
			last.Children = append(last.Children, nested)
			i++
		case lineIndent < indent || lineOrdered != ordered:
			return list, i - 1
		default:
			list.Children = append(list.Children, domain.ContentNode{
				Type:     domain.NodeListItem,
				Children: []domain.ContentNode{domain.Paragraph(parseInline(listText(line))...)},
			})
			i++
		}
	}
	return list, i - 1
}

// listMarker returns the indentation of a list marker line and whether it is
// ordered. The indentation is -1 for lines that are not list items.
func listMarker(line string) (int, bool) {
	if m := bulletRe.FindStringSubmatch(line); m != nil && !hrRe.MatchString(line) {
		return len(m[1]), false
	}
	if m := orderedRe.FindStringSubmatch(line); m != nil {
		return len(m[1]), true
	}
	return -1, false
}

func startsBlock(line string) bool {
	trimmed := strings.TrimSpace(line)
	return headingRe.MatchString(trimmed) || fenceRe.MatchString(line) ||
		strings.HasPrefix(trimmed, ">") || strings.HasPrefix(trimmed, "|")
}

func listText(line string) string {
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		return m[2]
	}
	if m := orderedRe.FindStringSubmatch(line); m != nil {
		return m[2]
	}
	return strings.TrimSpace(line)
}

// parseTable consumes a pipe table starting at lines[start].
func parseTable(lines []string, start int) (domain.ContentNode, int) {
	table := domain.ContentNode{Type: domain.NodeTable}
	table.Children = append(table.Children, tableRow(lines[start]))
	i := start + 2
	for ; i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), "|"); i++ {
		table.Children = append(table.Children, tableRow(lines[i]))
	}
	return table, i - 1
}

func tableRow(line string) domain.ContentNode {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	row := domain.ContentNode{Type: domain.NodeTableRow}
	for _, cell := range strings.Split(line, "|") {
		row.Children = append(row.Children, domain.ContentNode{
			Type:     domain.NodeTableCell,
			Children: parseInline(strings.TrimSpace(cell)),
		})
	}
	return row
}

var inlineRe = regexp.MustCompile(
	"(`[^`]+`)" + // code
		`|(\*\*[^*]+\*\*|__[^_]+__)` + // bold
		`|(~~[^~]+~~)` + // strike
		`|(\*[^*]+\*|\b_[^_]+_\b)` + // italic
		`|(!?\[[^\]]*\]\([^)]*\))` + // link or image
		`|(\\[\\*_\[\]~<` + "`" + `])`, // backslash escape
)

var linkRe = regexp.MustCompile(`^(!?)\[([^\]]*)\]\(([^)\s]*)[^)]*\)$`)

// parseInline splits text into text nodes carrying marks.
func parseInline(text string) []domain.ContentNode {
	var nodes []domain.ContentNode
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			nodes = append(nodes, domain.TextNode(plain.String()))
			plain.Reset()
		}
	}
	emit := func(s string, marks ...domain.Mark) {
		flush()
		if s == "" {
			return
		}
		nodes = append(nodes, domain.TextNode(s, marks...))
	}

	last := 0
	for _, loc := range inlineRe.FindAllStringSubmatchIndex(text, -1) {
		plain.WriteString(text[last:loc[0]])
		match := text[loc[0]:loc[1]]
		switch {
		case loc[2] >= 0:
			emit(match[1:len(match)-1], domain.Mark{Type: domain.MarkCode})
		case loc[4] >= 0:
			emit(match[2:len(match)-2], domain.Mark{Type: domain.MarkBold})
		case loc[6] >= 0:
			emit(match[2:len(match)-2], domain.Mark{Type: domain.MarkStrike})
		case loc[8] >= 0:
			emit(match[1:len(match)-1], domain.Mark{Type: domain.MarkItalic})
		case loc[12] >= 0:
			plain.WriteString(match[1:])
		default:
			m := linkRe.FindStringSubmatch(match)
			if m == nil {
				emit(match)
			} else if m[1] == "!" {
				emit(m[2])
			} else {
				emit(m[2], domain.Mark{Type: domain.MarkLink, Attrs: map[string]string{"href": m[3]}})
			}
		}
		last = loc[1]
	}
	plain.WriteString(text[last:])
	flush()
	return nodes
}

// extractTitle returns the first level-one heading or falls back to filename.
func extractTitle(blocks []domain.ContentNode, uri string) string {
	for _, b := range blocks {
		if b.Type == domain.NodeHeading && b.HeadingLevel() == 1 {
			return strings.TrimSpace(b.InlineText())
		}
	}

	filename := filepath.Base(uri)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
