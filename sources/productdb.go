// Package sources implements the external lookups feeding the orchestrator:
// the product database, the snapshot archive, the marketplace probe, the
// web-search scraper and the second-wave page analyzer.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/fetch"
	"github.com/eantrace/eantrace/models"
)

const defaultProductDBBase = "https://es.openfoodfacts.org"

// ProductDB looks a code up in the Open Food Facts product database.
type ProductDB struct {
	client *fetch.Client
	base   string
}

// NewProductDB builds the product database source.
func NewProductDB(client *fetch.Client) *ProductDB {
	return &ProductDB{client: client, base: defaultProductDBBase}
}

// Name identifies the source in logs.
func (s *ProductDB) Name() string { return "product_db" }

type productDBPayload struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		GenericName string `json:"generic_name"`
		CreatedT    int64  `json:"created_t"`
	} `json:"product"`
}

// Lookup fetches the product record for the code. An absent record is a
// valid empty outcome, not an error.
func (s *ProductDB) Lookup(ctx context.Context, code ean.Code) (*models.SourceResult, error) {
	apiURL := fmt.Sprintf("%s/api/v0/product/%s.json", s.base, code)
	body, err := s.client.FetchBytes(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var payload productDBPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode product record: %w", err)
	}
	if payload.Status != 1 {
		return nil, nil
	}

	name := payload.Product.ProductName
	if name == "" {
		name = models.UnknownClue
	}
	clue := models.UnknownClue
	if payload.Product.CreatedT > 0 {
		clue = time.Unix(payload.Product.CreatedT, 0).UTC().Format("2006-01-02")
	}
	snippet := payload.Product.GenericName
	if snippet == "" {
		snippet = fmt.Sprintf("product database record for EAN %s", code)
	}

	pageURL := fmt.Sprintf("%s/product/%s", s.base, code)
	return &models.SourceResult{
		SourceURL: pageURL,
		Findings: []models.Finding{{
			ProductName: name,
			DateClue:    clue,
			Assessment:  models.ProductDB,
			Snippet:     snippet,
			SourceURL:   pageURL,
		}},
	}, nil
}
