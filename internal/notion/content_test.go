package notion

import (
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
)

func rt(text string) []notionapi.RichText {
	return []notionapi.RichText{{PlainText: text}}
}

func TestRichTextToString(t *testing.T) {
	text := richTextToString([]notionapi.RichText{
		{PlainText: "hello "},
		{PlainText: "world"},
	})
	assert.Equal(t, "hello world", text)

	assert.Equal(t, "", richTextToString(nil))
}

func TestPageTitle(t *testing.T) {
	props := notionapi.Properties{
		"Name":  &notionapi.TitleProperty{Title: rt("Project X")},
		"Notes": &notionapi.RichTextProperty{RichText: rt("ignored")},
	}
	assert.Equal(t, "Project X", pageTitle(props))

	assert.Equal(t, "", pageTitle(notionapi.Properties{
		"Notes": &notionapi.RichTextProperty{RichText: rt("no title here")},
	}))
}

func TestExtractRowPreview(t *testing.T) {
	page := notionapi.Page{
		ID:  notionapi.ObjectID("page-1"),
		URL: "https://notion.so/page-1",
		Properties: notionapi.Properties{
			"Name":   &notionapi.TitleProperty{Title: rt("Project X")},
			"Budget": &notionapi.RichTextProperty{RichText: rt("$50k")},
			"Empty":  &notionapi.RichTextProperty{RichText: nil},
		},
	}

	preview := extractRowPreview(page)

	assert.Equal(t, "page-1", preview.PageID)
	assert.Equal(t, "Project X", preview.Title)
	assert.Equal(t, "https://notion.so/page-1", preview.URL)
	assert.Equal(t, "Budget: $50k\n", preview.Preview)
}

func TestFlattenBlocks_AllTypes(t *testing.T) {
	emoji := notionapi.Emoji("🚀")
	blocks := []notionapi.Block{
		&notionapi.Heading1Block{Heading1: notionapi.Heading{RichText: rt("Title")}},
		&notionapi.Heading2Block{Heading2: notionapi.Heading{RichText: rt("Section")}},
		&notionapi.Heading3Block{Heading3: notionapi.Heading{RichText: rt("Subsection")}},
		&notionapi.ParagraphBlock{Paragraph: notionapi.Paragraph{RichText: rt("Some prose.")}},
		&notionapi.BulletedListItemBlock{BulletedListItem: notionapi.ListItem{RichText: rt("first")}},
		&notionapi.NumberedListItemBlock{NumberedListItem: notionapi.ListItem{RichText: rt("second")}},
		&notionapi.ToDoBlock{ToDo: notionapi.ToDo{RichText: rt("pending"), Checked: false}},
		&notionapi.ToDoBlock{ToDo: notionapi.ToDo{RichText: rt("done"), Checked: true}},
		&notionapi.ToggleBlock{Toggle: notionapi.Toggle{RichText: rt("details")}},
		&notionapi.CodeBlock{Code: notionapi.Code{RichText: rt("fmt.Println()"), Language: "go"}},
		&notionapi.QuoteBlock{Quote: notionapi.Quote{RichText: rt("quoted")}},
		&notionapi.CalloutBlock{Callout: notionapi.Callout{
			RichText: rt("heads up"),
			Icon:     &notionapi.Icon{Emoji: &emoji},
		}},
		&notionapi.CalloutBlock{Callout: notionapi.Callout{RichText: rt("default icon")}},
	}

	content := flattenBlocks(blocks, nil)

	expected := "# Title\n\n" +
		"## Section\n\n" +
		"### Subsection\n\n" +
		"Some prose.\n\n" +
		"- first\n" +
		"1. second\n" +
		"[ ] pending\n" +
		"[x] done\n" +
		"> details\n" +
		"```go\nfmt.Println()\n```\n\n" +
		"> quoted\n\n" +
		"🚀 heads up\n\n" +
		"💡 default icon\n\n"
	assert.Equal(t, expected, content)
}

func TestFlattenBlocks_ChildrenExpandedDepthFirst(t *testing.T) {
	parent := &notionapi.ToggleBlock{
		BasicBlock: notionapi.BasicBlock{
			ID:          notionapi.BlockID("toggle-1"),
			HasChildren: true,
		},
		Toggle: notionapi.Toggle{RichText: rt("parent")},
	}

	fetched := []string{}
	children := func(blockID string) ([]notionapi.Block, error) {
		fetched = append(fetched, blockID)
		return []notionapi.Block{
			&notionapi.BulletedListItemBlock{BulletedListItem: notionapi.ListItem{RichText: rt("child")}},
		}, nil
	}

	content := flattenBlocks([]notionapi.Block{parent}, children)

	assert.Equal(t, []string{"toggle-1"}, fetched)
	assert.Equal(t, "> parent\n- child\n", content)
}

func TestFlattenBlocks_ChildFetchErrorSwallowed(t *testing.T) {
	parent := &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			ID:          notionapi.BlockID("p-1"),
			HasChildren: true,
		},
		Paragraph: notionapi.Paragraph{RichText: rt("still here")},
	}
	children := func(blockID string) ([]notionapi.Block, error) {
		return nil, errors.New("api down")
	}

	content := flattenBlocks([]notionapi.Block{parent}, children)

	assert.Equal(t, "still here\n\n", content)
}

func TestFlattenBlocks_NilFetcherSkipsChildren(t *testing.T) {
	parent := &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			ID:          notionapi.BlockID("p-1"),
			HasChildren: true,
		},
		Paragraph: notionapi.Paragraph{RichText: rt("no descent")},
	}

	content := flattenBlocks([]notionapi.Block{parent}, nil)

	assert.Equal(t, "no descent\n\n", content)
}
