package sources

import (
	"context"

	"github.com/eantrace/eantrace/analyze"
	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/fetch"
	"github.com/eantrace/eantrace/models"
)

// PageAnalyzer fetches a candidate URL and runs evidence extraction over its
// text. This is the second-wave task body.
type PageAnalyzer struct {
	client *fetch.Client
}

// NewPageAnalyzer builds the page analyzer.
func NewPageAnalyzer(client *fetch.Client) *PageAnalyzer {
	return &PageAnalyzer{client: client}
}

// Analyze fetches url and extracts findings for code. A nil result with a
// nil error means the page held no evidence.
func (a *PageAnalyzer) Analyze(ctx context.Context, url string, code ean.Code) (*models.SourceResult, error) {
	page, err := a.client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return analyze.ExtractDoc(analyze.Document{
		URL:   url,
		Title: page.Title,
		Text:  page.Text,
	}, code), nil
}
