package domain

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NodeType identifies a node in the rich-text content tree.
type NodeType string

// Content node types.
const (
	NodeDocument       NodeType = "doc"
	NodePage           NodeType = "page"
	NodeHeading        NodeType = "heading"
	NodeParagraph      NodeType = "paragraph"
	NodeText           NodeType = "text"
	NodeBulletList     NodeType = "bullet_list"
	NodeOrderedList    NodeType = "ordered_list"
	NodeListItem       NodeType = "list_item"
	NodeCodeBlock      NodeType = "code_block"
	NodeBlockquote     NodeType = "blockquote"
	NodeHorizontalRule NodeType = "horizontal_rule"
	NodeHardBreak      NodeType = "hard_break"
	NodeTable          NodeType = "table"
	NodeTableRow       NodeType = "table_row"
	NodeTableCell      NodeType = "table_cell"
)

// MarkType identifies an inline mark or annotation applied to a text node.
type MarkType string

// Content mark types.
const (
	MarkBold       MarkType = "bold"
	MarkItalic     MarkType = "italic"
	MarkUnderline  MarkType = "underline"
	MarkStrike     MarkType = "strike"
	MarkCode       MarkType = "code"
	MarkLink       MarkType = "link"
	MarkAnnotation MarkType = "annotation"
)

// Mark decorates a text node. Attrs carries mark data such as "href".
type Mark struct {
	Type  MarkType          `json:"type" yaml:"type"`
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// ContentNode is one node of the rich-text tree.
type ContentNode struct {
	Type     NodeType          `json:"type" yaml:"type"`
	Text     string            `json:"text,omitempty" yaml:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Marks    []Mark            `json:"marks,omitempty" yaml:"marks,omitempty"`
	Children []ContentNode     `json:"content,omitempty" yaml:"content,omitempty"`
}

// RichTextDocument is the root of an extracted content tree.
type RichTextDocument struct {
	// Title is the detected document title, if any.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Root is a NodeDocument node.
	Root ContentNode `json:"root" yaml:"root"`
}

// NewRichTextDocument wraps block nodes in a document root.
func NewRichTextDocument(title string, blocks ...ContentNode) *RichTextDocument {
	return &RichTextDocument{
		Title: title,
		Root:  ContentNode{Type: NodeDocument, Children: blocks},
	}
}

// TextNode creates a text leaf with optional marks.
func TextNode(text string, marks ...Mark) ContentNode {
	return ContentNode{Type: NodeText, Text: text, Marks: marks}
}

// Paragraph creates a paragraph from inline nodes.
func Paragraph(inline ...ContentNode) ContentNode {
	return ContentNode{Type: NodeParagraph, Children: inline}
}

// Heading creates a heading of the given level (1-6).
func Heading(level int, inline ...ContentNode) ContentNode {
	return ContentNode{
		Type:     NodeHeading,
		Attrs:    map[string]string{"level": strconv.Itoa(level)},
		Children: inline,
	}
}

// PageNode creates a page container (paginated formats only).
func PageNode(number int, blocks ...ContentNode) ContentNode {
	return ContentNode{
		Type:     NodePage,
		Attrs:    map[string]string{"number": strconv.Itoa(number)},
		Children: blocks,
	}
}

// Validate checks the tree shape: a document root, and text only in leaves.
func (d *RichTextDocument) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if d.Root.Type != NodeDocument {
		return fmt.Errorf("%w: content root must be %q, got %q", ErrInvalidInput, NodeDocument, d.Root.Type)
	}
	return validateNode(d.Root)
}

func validateNode(n ContentNode) error {
	if n.Type == "" {
		return fmt.Errorf("%w: content node without type", ErrInvalidInput)
	}
	if n.Type == NodeText && len(n.Children) > 0 {
		return fmt.Errorf("%w: text node with children", ErrInvalidInput)
	}
	for _, child := range n.Children {
		if err := validateNode(child); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits every node depth-first, parents before children.
func (n ContentNode) Walk(fn func(ContentNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// HeadingLevel returns the level attribute of a heading, defaulting to 1.
func (n ContentNode) HeadingLevel() int {
	level, err := strconv.Atoi(n.Attrs["level"])
	if err != nil || level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

// InlineText concatenates the text leaves below n.
func (n ContentNode) InlineText() string {
	var b strings.Builder
	n.Walk(func(c ContentNode) {
		switch c.Type {
		case NodeText:
			b.WriteString(c.Text)
		case NodeHardBreak:
			b.WriteString("\n")
		}
	})
	return b.String()
}

// Statistics are computed once, when an ExtractedDocument is created.
type Statistics struct {
	WordCount      int `json:"word_count" yaml:"word_count"`
	CharacterCount int `json:"character_count" yaml:"character_count"`
	ParagraphCount int `json:"paragraph_count" yaml:"paragraph_count"`
	HeadingCount   int `json:"heading_count" yaml:"heading_count"`
	PageCount      int `json:"page_count" yaml:"page_count"`
	TableCount     int `json:"table_count" yaml:"table_count"`
}

// ComputeStatistics derives summary statistics from the tree.
// Unpaginated content with any text counts as one page.
func (d *RichTextDocument) ComputeStatistics() Statistics {
	var stats Statistics
	d.Root.Walk(func(n ContentNode) {
		switch n.Type {
		case NodeText:
			stats.WordCount += len(strings.Fields(n.Text))
			stats.CharacterCount += utf8.RuneCountInString(n.Text)
		case NodeParagraph:
			stats.ParagraphCount++
		case NodeHeading:
			stats.HeadingCount++
		case NodePage:
			stats.PageCount++
		case NodeTable:
			stats.TableCount++
		}
	})
	if stats.PageCount == 0 && stats.CharacterCount > 0 {
		stats.PageCount = 1
	}
	return stats
}

// PlainText renders the tree as plain text, one block per paragraph.
func (d *RichTextDocument) PlainText() string {
	var blocks []string
	collectBlocks(d.Root, func(n ContentNode) {
		if text := strings.TrimSpace(n.InlineText()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n\n")
}

// collectBlocks calls fn for every leaf block (a block with inline children).
func collectBlocks(n ContentNode, fn func(ContentNode)) {
	switch n.Type {
	case NodeParagraph, NodeHeading, NodeCodeBlock, NodeTableCell:
		fn(n)
		return
	}
	for _, child := range n.Children {
		collectBlocks(child, fn)
	}
}

// Markdown renders the tree as CommonMark.
func (d *RichTextDocument) Markdown() string {
	var b strings.Builder
	for _, child := range d.Root.Children {
		writeMarkdownBlock(&b, child, "")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func writeMarkdownBlock(b *strings.Builder, n ContentNode, indent string) {
	switch n.Type {
	case NodePage:
		for _, child := range n.Children {
			writeMarkdownBlock(b, child, indent)
		}
	case NodeHeading:
		b.WriteString(strings.Repeat("#", n.HeadingLevel()) + " " + markdownInline(n) + "\n\n")
	case NodeParagraph:
		b.WriteString(indent + markdownInline(n) + "\n\n")
	case NodeCodeBlock:
		b.WriteString("```" + n.Attrs["language"] + "\n" + n.InlineText() + "\n```\n\n")
	case NodeBlockquote:
		var inner strings.Builder
		for _, child := range n.Children {
			writeMarkdownBlock(&inner, child, "")
		}
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			b.WriteString("> " + line + "\n")
		}
		b.WriteString("\n")
	case NodeHorizontalRule:
		b.WriteString("---\n\n")
	case NodeBulletList, NodeOrderedList:
		for i, item := range n.Children {
			marker := "- "
			if n.Type == NodeOrderedList {
				marker = strconv.Itoa(i+1) + ". "
			}
			b.WriteString(indent + marker + strings.TrimSpace(listItemMarkdown(item)) + "\n")
			for _, nested := range item.Children {
				if nested.Type == NodeBulletList || nested.Type == NodeOrderedList {
					writeMarkdownBlock(b, nested, indent+"  ")
				}
			}
		}
		if indent == "" {
			b.WriteString("\n")
		}
	case NodeTable:
		for i, row := range n.Children {
			cells := make([]string, 0, len(row.Children))
			for _, cell := range row.Children {
				cells = append(cells, strings.TrimSpace(cell.InlineText()))
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			if i == 0 {
				b.WriteString("|" + strings.Repeat(" --- |", len(cells)) + "\n")
			}
		}
		b.WriteString("\n")
	default:
		if text := markdownInline(n); text != "" {
			b.WriteString(indent + text + "\n\n")
		}
	}
}

func listItemMarkdown(item ContentNode) string {
	var parts []string
	for _, child := range item.Children {
		if child.Type == NodeBulletList || child.Type == NodeOrderedList {
			continue
		}
		parts = append(parts, markdownInline(child))
	}
	return strings.Join(parts, " ")
}

func markdownInline(n ContentNode) string {
	if n.Type == NodeText {
		return applyMarks(n.Text, n.Marks)
	}
	if n.Type == NodeHardBreak {
		return "  \n"
	}
	var b strings.Builder
	for _, child := range n.Children {
		b.WriteString(markdownInline(child))
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "~", `\~`, "<", `\<`,
)

func applyMarks(text string, marks []Mark) string {
	code := false
	for _, m := range marks {
		if m.Type == MarkCode {
			code = true
		}
	}
	switch {
	case code && strings.Contains(text, "`"):
		text = "`` " + text + " ``"
	case code:
		text = "`" + text + "`"
	default:
		text = markdownEscaper.Replace(text)
	}

	for _, m := range marks {
		switch m.Type {
		case MarkBold:
			text = "**" + text + "**"
		case MarkItalic:
			text = "*" + text + "*"
		case MarkUnderline:
			text = "<u>" + text + "</u>"
		case MarkStrike:
			text = "~~" + text + "~~"
		case MarkLink:
			text = "[" + text + "](" + m.Attrs["href"] + ")"
		case MarkAnnotation:
			if note := m.Attrs["note"]; note != "" {
				text = `<mark title="` + html.EscapeString(note) + `">` + text + "</mark>"
			} else {
				text = "<mark>" + text + "</mark>"
			}
		}
	}
	return text
}
