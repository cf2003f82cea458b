// Package mcp exposes the QA pipeline as a Model Context Protocol tool.
package mcp

// AskInput defines the input parameters for the ask_notion tool.
type AskInput struct {
	// Question is the natural-language question to answer from the workspace.
	Question string `json:"question" jsonschema:"required,description=The question to answer from the Notion workspace"`
}

// AskOutput contains the generated answer and its provenance.
type AskOutput struct {
	// Answer is the generated natural-language answer.
	Answer string `json:"answer"`
	// Source is the title of the page the answer was grounded in, or a
	// "no information" label.
	Source string `json:"source"`
	// URL links to the source page, empty if none.
	URL string `json:"url,omitempty"`
	// Similarity is the cache similarity score, 0 when the answer came from
	// a live search or no content.
	Similarity float64 `json:"similarity"`
}
