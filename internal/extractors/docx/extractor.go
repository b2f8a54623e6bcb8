package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docreview/internal/core/domain"
	"github.com/custodia-labs/docreview/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor walks the OOXML paragraph structure of DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Method returns the extraction method this extractor implements.
func (e *Extractor) Method() domain.ExtractionMethod {
	return domain.ExtractionMethodDocxStructure
}

// Extract opens the DOCX archive at path and converts word/document.xml.
func (e *Extractor) Extract(ctx context.Context, path domain.FilePath) (*domain.RichTextDocument, error) {
	reader, err := zip.OpenReader(path.String())
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s is not a DOCX archive", domain.ErrExtractionFailed, path.Base())
		}
		return nil, err
	}
	defer reader.Close()

	body, err := readPart(&reader.Reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: %s has no word/document.xml", domain.ErrExtractionFailed, path.Base())
	}

	blocks, err := parseDocumentXML(ctx, body)
	if err != nil {
		return nil, err
	}
	return domain.NewRichTextDocument(extractTitle(&reader.Reader, path.String()), blocks...), nil
}

// readPart returns the content of a named archive member, or nil if absent.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrExtractionFailed, name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtractionFailed, name, err)
		}
		return content, nil
	}
	return nil, nil
}

// wParagraph is a w:p element.
type wParagraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
		Numbering *struct{} `xml:"numPr"`
	} `xml:"pPr"`
	Runs       []wRun       `xml:"r"`
	Hyperlinks []wHyperlink `xml:"hyperlink"`
}

type wHyperlink struct {
	Runs []wRun `xml:"r"`
}

type wRun struct {
	Props struct {
		Bold      *wToggle `xml:"b"`
		Italic    *wToggle `xml:"i"`
		Underline *wToggle `xml:"u"`
		Strike    *wToggle `xml:"strike"`
	} `xml:"rPr"`
	Text   []wText   `xml:"t"`
	Breaks []struct{} `xml:"br"`
}

type wText struct {
	Content string `xml:",chardata"`
}

// wToggle is an on/off run property; absent val means on.
type wToggle struct {
	Val string `xml:"val,attr"`
}

func (t *wToggle) on() bool {
	if t == nil {
		return false
	}
	switch t.Val {
	case "0", "false", "off", "none":
		return false
	default:
		return true
	}
}

type wTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []wParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// parseDocumentXML streams the body so paragraphs and tables keep their order.
func parseDocumentXML(ctx context.Context, content []byte) ([]domain.ContentNode, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(content)))
	var blocks []domain.ContentNode
	var list *domain.ContentNode

	closeList := func() {
		if list != nil {
			blocks = append(blocks, *list)
			list = nil
		}
	}

	depth := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed document.xml: %w", domain.ErrExtractionFailed, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			// document > body > block
			if depth != 3 {
				continue
			}
			switch el.Name.Local {
			case "p":
				var p wParagraph
				if err := decoder.DecodeElement(&p, &el); err != nil {
					return nil, fmt.Errorf("%w: malformed paragraph: %w", domain.ErrExtractionFailed, err)
				}
				depth--
				node, ok := convertParagraph(p)
				if !ok {
					continue
				}
				if p.Props.Numbering != nil {
					if list == nil {
						list = &domain.ContentNode{Type: domain.NodeBulletList}
					}
					list.Children = append(list.Children, domain.ContentNode{
						Type:     domain.NodeListItem,
						Children: []domain.ContentNode{node},
					})
					continue
				}
				closeList()
				blocks = append(blocks, node)
			case "tbl":
				var tbl wTable
				if err := decoder.DecodeElement(&tbl, &el); err != nil {
					return nil, fmt.Errorf("%w: malformed table: %w", domain.ErrExtractionFailed, err)
				}
				depth--
				closeList()
				blocks = append(blocks, convertTable(tbl))
			}
		case xml.EndElement:
			depth--
		}
	}
	closeList()
	return blocks, nil
}

// convertParagraph maps a w:p to a heading or paragraph. Empty paragraphs
// are dropped.
func convertParagraph(p wParagraph) (domain.ContentNode, bool) {
	inline := convertRuns(p.Runs, nil)
	for _, h := range p.Hyperlinks {
		inline = append(inline, convertRuns(h.Runs, &domain.Mark{Type: domain.MarkLink})...)
	}
	if strings.TrimSpace(domain.ContentNode{Type: domain.NodeParagraph, Children: inline}.InlineText()) == "" {
		return domain.ContentNode{}, false
	}
	if level := headingLevel(p.Props.Style.Val); level > 0 {
		return domain.Heading(level, inline...), true
	}
	return domain.Paragraph(inline...), true
}

func convertRuns(runs []wRun, extra *domain.Mark) []domain.ContentNode {
	var nodes []domain.ContentNode
	for _, r := range runs {
		var text strings.Builder
		for _, t := range r.Text {
			text.WriteString(t.Content)
		}
		if text.Len() > 0 {
			var marks []domain.Mark
			if r.Props.Bold.on() {
				marks = append(marks, domain.Mark{Type: domain.MarkBold})
			}
			if r.Props.Italic.on() {
				marks = append(marks, domain.Mark{Type: domain.MarkItalic})
			}
			if r.Props.Underline.on() {
				marks = append(marks, domain.Mark{Type: domain.MarkUnderline})
			}
			if r.Props.Strike.on() {
				marks = append(marks, domain.Mark{Type: domain.MarkStrike})
			}
			if extra != nil {
				marks = append(marks, *extra)
			}
			nodes = append(nodes, domain.TextNode(text.String(), marks...))
		}
		for range r.Breaks {
			nodes = append(nodes, domain.ContentNode{Type: domain.NodeHardBreak})
		}
	}
	return nodes
}

// headingLevel maps Word style IDs like "Heading2" or "Title" to a level.
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if strings.HasPrefix(s, "heading") && len(s) == len("heading")+1 {
		if d := s[len(s)-1]; d >= '1' && d <= '6' {
			return int(d - '0')
		}
	}
	return 0
}

func convertTable(tbl wTable) domain.ContentNode {
	table := domain.ContentNode{Type: domain.NodeTable}
	for _, r := range tbl.Rows {
		row := domain.ContentNode{Type: domain.NodeTableRow}
		for _, c := range r.Cells {
			cell := domain.ContentNode{Type: domain.NodeTableCell}
			for i, p := range c.Paragraphs {
				if i > 0 {
					cell.Children = append(cell.Children, domain.ContentNode{Type: domain.NodeHardBreak})
				}
				cell.Children = append(cell.Children, convertRuns(p.Runs, nil)...)
			}
			row.Children = append(row.Children, cell)
		}
		table.Children = append(table.Children, row)
	}
	return table
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle extracts the title from docProps/core.xml or falls back to filename.
func extractTitle(reader *zip.Reader, uri string) string {
	if content, err := readPart(reader, "docProps/core.xml"); err == nil && content != nil {
		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && core.Title != "" {
			return strings.TrimSpace(core.Title)
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
