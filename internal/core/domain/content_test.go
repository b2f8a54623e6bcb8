package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContent() *RichTextDocument {
	return NewRichTextDocument("Guide",
		Heading(1, TextNode("Guide")),
		Paragraph(
			TextNode("Read the "),
			TextNode("manual", Mark{Type: MarkBold}),
			TextNode(" first."),
		),
		ContentNode{Type: NodeBulletList, Children: []ContentNode{
			{Type: NodeListItem, Children: []ContentNode{Paragraph(TextNode("one"))}},
			{Type: NodeListItem, Children: []ContentNode{Paragraph(TextNode("two"))}},
		}},
	)
}

func TestRichTextDocument_Validate(t *testing.T) {
	assert.NoError(t, sampleContent().Validate())

	var nilDoc *RichTextDocument
	assert.ErrorIs(t, nilDoc.Validate(), ErrInvalidInput)

	badRoot := &RichTextDocument{Root: Paragraph(TextNode("x"))}
	assert.ErrorIs(t, badRoot.Validate(), ErrInvalidInput)

	untyped := NewRichTextDocument("", ContentNode{})
	assert.ErrorIs(t, untyped.Validate(), ErrInvalidInput)

	textWithChildren := NewRichTextDocument("", Paragraph(ContentNode{
		Type:     NodeText,
		Children: []ContentNode{TextNode("nested")},
	}))
	assert.ErrorIs(t, textWithChildren.Validate(), ErrInvalidInput)
}

func TestContentNode_HeadingLevel(t *testing.T) {
	assert.Equal(t, 3, Heading(3).HeadingLevel())
	assert.Equal(t, 6, Heading(9).HeadingLevel())
	assert.Equal(t, 1, Heading(0).HeadingLevel())
	assert.Equal(t, 1, ContentNode{Type: NodeHeading}.HeadingLevel())
}

func TestContentNode_InlineText(t *testing.T) {
	p := Paragraph(TextNode("a"), ContentNode{Type: NodeHardBreak}, TextNode("b"))
	assert.Equal(t, "a\nb", p.InlineText())
}

func TestRichTextDocument_ComputeStatistics(t *testing.T) {
	stats := sampleContent().ComputeStatistics()

	assert.Equal(t, 7, stats.WordCount)
	assert.Equal(t, len("Guide")+len("Read the ")+len("manual")+len(" first.")+len("one")+len("two"), stats.CharacterCount)
	assert.Equal(t, 3, stats.ParagraphCount)
	assert.Equal(t, 1, stats.HeadingCount)
	assert.Equal(t, 1, stats.PageCount, "unpaginated text counts as one page")
	assert.Zero(t, stats.TableCount)
}

func TestRichTextDocument_ComputeStatistics_Pages(t *testing.T) {
	doc := NewRichTextDocument("",
		PageNode(1, Paragraph(TextNode("héllo"))),
		PageNode(2, ContentNode{Type: NodeTable}),
	)
	stats := doc.ComputeStatistics()
	assert.Equal(t, 2, stats.PageCount)
	assert.Equal(t, 1, stats.TableCount)
	assert.Equal(t, 5, stats.CharacterCount, "characters are runes")

	empty := NewRichTextDocument("")
	assert.Zero(t, empty.ComputeStatistics().PageCount)
}

func TestRichTextDocument_PlainText(t *testing.T) {
	want := "Guide\n\nRead the manual first.\n\none\n\ntwo"
	assert.Equal(t, want, sampleContent().PlainText())
}

func TestRichTextDocument_Markdown(t *testing.T) {
	want := "# Guide\n\nRead the **manual** first.\n\n- one\n- two\n"
	assert.Equal(t, want, sampleContent().Markdown())
}

func TestRichTextDocument_MarkdownBlocks(t *testing.T) {
	doc := NewRichTextDocument("",
		ContentNode{Type: NodeCodeBlock, Attrs: map[string]string{"language": "go"}, Children: []ContentNode{TextNode("x := 1")}},
		ContentNode{Type: NodeHorizontalRule},
		ContentNode{Type: NodeBlockquote, Children: []ContentNode{Paragraph(TextNode("quoted"))}},
		ContentNode{Type: NodeOrderedList, Children: []ContentNode{
			{Type: NodeListItem, Children: []ContentNode{Paragraph(TextNode("first"))}},
			{Type: NodeListItem, Children: []ContentNode{Paragraph(TextNode("second", Mark{Type: MarkLink, Attrs: map[string]string{"href": "https://example.com"}}))}},
		}},
		ContentNode{Type: NodeTable, Children: []ContentNode{
			{Type: NodeTableRow, Children: []ContentNode{
				{Type: NodeTableCell, Children: []ContentNode{TextNode("h1")}},
				{Type: NodeTableCell, Children: []ContentNode{TextNode("h2")}},
			}},
			{Type: NodeTableRow, Children: []ContentNode{
				{Type: NodeTableCell, Children: []ContentNode{TextNode("a")}},
				{Type: NodeTableCell, Children: []ContentNode{TextNode("b")}},
			}},
		}},
	)

	md := doc.Markdown()
	assert.Contains(t, md, "```go\nx := 1\n```")
	assert.Contains(t, md, "---\n")
	assert.Contains(t, md, "> quoted\n")
	assert.Contains(t, md, "1. first\n2. [second](https://example.com)\n")
	assert.Contains(t, md, "| h1 | h2 |\n| --- | --- |\n| a | b |\n")
}

func TestRichTextDocument_JSONShape(t *testing.T) {
	data, err := json.Marshal(sampleContent())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Guide", raw["title"])
	root := raw["root"].(map[string]any)
	assert.Equal(t, "doc", root["type"])
	assert.Len(t, root["content"], 3)

	var back RichTextDocument
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *sampleContent(), back)
}

func TestRichTextDocument_Markdown_EscapesLiteralText(t *testing.T) {
	doc := NewRichTextDocument("",
		Paragraph(
			TextNode("2*3 is not_emphasis, see [1] or ~x~ "),
			TextNode("a`b", Mark{Type: MarkCode}),
			TextNode(" "),
			TextNode("*raw*", Mark{Type: MarkCode}),
		),
	)

	assert.Equal(t,
		"2\\*3 is not\\_emphasis, see \\[1\\] or \\~x\\~ `` a`b `` `*raw*`\n",
		doc.Markdown())
}

func TestRichTextDocument_Markdown_UnderlineAndAnnotation(t *testing.T) {
	doc := NewRichTextDocument("",
		Paragraph(
			TextNode("signed", Mark{Type: MarkUnderline}),
			TextNode(" "),
			TextNode("clause", Mark{Type: MarkAnnotation, Attrs: map[string]string{"note": `check "term" <5>`}}),
			TextNode(" "),
			TextNode("plain", Mark{Type: MarkAnnotation}),
		),
	)

	assert.Equal(t,
		`<u>signed</u> <mark title="check &#34;term&#34; &lt;5&gt;">clause</mark> <mark>plain</mark>`+"\n",
		doc.Markdown())
}
