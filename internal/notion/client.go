// Package notion provides access to a Notion workspace: database queries,
// page fetching with block flattening, and embedding-based live search.
package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// Client wraps the Notion API client for one configured database.
type Client struct {
	api        *notionapi.Client
	databaseID string
}

// NewClient creates a Notion client. Missing credentials are a fatal
// configuration error surfaced at the service-initialization boundary.
func NewClient(apiKey, databaseID string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NOTION_API_KEY environment variable not set")
	}
	if databaseID == "" {
		return nil, fmt.Errorf("NOTION_DATABASE_ID environment variable not set")
	}

	return &Client{
		api:        notionapi.NewClient(notionapi.Token(apiKey)),
		databaseID: databaseID,
	}, nil
}

// QueryDatabase fetches all rows of the configured database and extracts a
// cheap preview (title + inline rich-text properties) from each.
func (c *Client) QueryDatabase(ctx context.Context) ([]RowPreview, error) {
	var previews []RowPreview

	request := &notionapi.DatabaseQueryRequest{PageSize: 100}
	for {
		resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(c.databaseID), request)
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", c.databaseID, err)
		}

		for _, page := range resp.Results {
			previews = append(previews, extractRowPreview(page))
		}

		if !resp.HasMore {
			break
		}
		request.StartCursor = notionapi.Cursor(resp.NextCursor)
	}

	return previews, nil
}

// FetchPage retrieves a page's title, URL and full nested content, with
// child blocks expanded depth-first into linear text.
func (c *Client) FetchPage(ctx context.Context, pageID string) (*PageContent, error) {
	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}

	blocks, err := c.fetchChildBlocks(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list blocks of page %s: %w", pageID, err)
	}

	content := flattenBlocks(blocks, func(blockID string) ([]notionapi.Block, error) {
		return c.fetchChildBlocks(ctx, blockID)
	})

	return &PageContent{
		PageID:  pageID,
		Title:   pageTitle(page.Properties),
		Content: content,
		URL:     page.URL,
	}, nil
}

// fetchChildBlocks lists all children of a block, following pagination.
func (c *Client) fetchChildBlocks(ctx context.Context, blockID string) ([]notionapi.Block, error) {
	var blocks []notionapi.Block

	pagination := &notionapi.Pagination{PageSize: 100}
	for {
		resp, err := c.api.Block.GetChildren(ctx, notionapi.BlockID(blockID), pagination)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, resp.Results...)

		if !resp.HasMore {
			break
		}
		pagination.StartCursor = notionapi.Cursor(resp.NextCursor)
	}

	return blocks, nil
}
