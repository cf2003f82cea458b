package notion

import (
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// PageContent is the transient value produced by a full page fetch: the
// page's title, stable id, URL and its blocks flattened into linear text.
type PageContent struct {
	PageID  string
	Title   string
	Content string
	URL     string
}

// RowPreview is a cheap extraction from a database query result: the title
// property plus any inline rich-text properties, without fetching blocks.
type RowPreview struct {
	PageID  string
	Title   string
	Preview string
	URL     string
}

// childFetcher loads the children of a block. Injected so flattening can be
// exercised without a live API.
type childFetcher func(blockID string) ([]notionapi.Block, error)

// richTextToString concatenates the plain text of a rich text list.
func richTextToString(richText []notionapi.RichText) string {
	var b strings.Builder
	for _, item := range richText {
		b.WriteString(item.PlainText)
	}
	return b.String()
}

// pageTitle extracts the title property of a page, if any.
func pageTitle(properties notionapi.Properties) string {
	for _, prop := range properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return richTextToString(title.Title)
		}
	}
	return ""
}

// extractRowPreview pulls the title and all inline rich-text properties from
// a database row. Property values are rendered as "Name: value" lines.
func extractRowPreview(page notionapi.Page) RowPreview {
	preview := RowPreview{
		PageID: string(page.ID),
		URL:    page.URL,
	}

	var content strings.Builder
	for name, prop := range page.Properties {
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			preview.Title = richTextToString(p.Title)
		case *notionapi.RichTextProperty:
			if text := richTextToString(p.RichText); text != "" {
				fmt.Fprintf(&content, "%s: %s\n", name, text)
			}
		}
	}
	preview.Preview = content.String()

	return preview
}

// flattenBlocks renders structured blocks into a linear text representation.
// Headings, lists, to-dos, toggles, code, quotes and callouts keep a textual
// marker; child blocks are expanded depth-first and appended after their
// parent. Fetch errors on children are swallowed - a partially flattened
// page is still usable context.
func flattenBlocks(blocks []notionapi.Block, children childFetcher) string {
	var content strings.Builder

	for _, block := range blocks {
		switch b := block.(type) {
		case *notionapi.ParagraphBlock:
			content.WriteString(richTextToString(b.Paragraph.RichText) + "\n\n")
		case *notionapi.Heading1Block:
			content.WriteString("# " + richTextToString(b.Heading1.RichText) + "\n\n")
		case *notionapi.Heading2Block:
			content.WriteString("## " + richTextToString(b.Heading2.RichText) + "\n\n")
		case *notionapi.Heading3Block:
			content.WriteString("### " + richTextToString(b.Heading3.RichText) + "\n\n")
		case *notionapi.BulletedListItemBlock:
			content.WriteString("- " + richTextToString(b.BulletedListItem.RichText) + "\n")
		case *notionapi.NumberedListItemBlock:
			content.WriteString("1. " + richTextToString(b.NumberedListItem.RichText) + "\n")
		case *notionapi.ToDoBlock:
			marker := "[ ] "
			if b.ToDo.Checked {
				marker = "[x] "
			}
			content.WriteString(marker + richTextToString(b.ToDo.RichText) + "\n")
		case *notionapi.ToggleBlock:
			content.WriteString("> " + richTextToString(b.Toggle.RichText) + "\n")
		case *notionapi.CodeBlock:
			content.WriteString("```" + b.Code.Language + "\n" + richTextToString(b.Code.RichText) + "\n```\n\n")
		case *notionapi.QuoteBlock:
			content.WriteString("> " + richTextToString(b.Quote.RichText) + "\n\n")
		case *notionapi.CalloutBlock:
			emoji := "💡"
			if b.Callout.Icon != nil && b.Callout.Icon.Emoji != nil {
				emoji = string(*b.Callout.Icon.Emoji)
			}
			content.WriteString(emoji + " " + richTextToString(b.Callout.RichText) + "\n\n")
		}

		if block.GetHasChildren() && children != nil {
			childBlocks, err := children(string(block.GetID()))
			if err != nil {
				continue
			}
			content.WriteString(flattenBlocks(childBlocks, children))
		}
	}

	return content.String()
}
