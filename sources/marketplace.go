package sources

import (
	"context"
	"fmt"

	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/fetch"
	"github.com/eantrace/eantrace/models"
)

const defaultMarketplaceBase = "https://www.amazon.com"

// Marketplace probes the marketplace search page for the code. It only
// captures the results-page title, no per-product scraping.
type Marketplace struct {
	client *fetch.Client
	base   string
}

// NewMarketplace builds the marketplace source.
func NewMarketplace(client *fetch.Client) *Marketplace {
	return &Marketplace{client: client, base: defaultMarketplaceBase}
}

// Name identifies the source in logs.
func (s *Marketplace) Name() string { return "marketplace" }

// Lookup fetches the marketplace search page and reports its title as one
// finding.
func (s *Marketplace) Lookup(ctx context.Context, code ean.Code) (*models.SourceResult, error) {
	searchURL := fmt.Sprintf("%s/s?k=%s", s.base, code)
	page, err := s.client.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	title := page.Title
	if title == "" {
		title = "Marketplace search"
	}
	return &models.SourceResult{
		SourceURL: searchURL,
		Findings: []models.Finding{{
			ProductName: title,
			DateClue:    models.UnknownClue,
			Assessment:  models.Marketplace,
			Snippet:     fmt.Sprintf("marketplace search results for EAN %s", code),
			SourceURL:   searchURL,
		}},
	}, nil
}
