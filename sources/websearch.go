package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/eantrace/eantrace/config"
	"github.com/eantrace/eantrace/fetch"
	"github.com/eantrace/eantrace/models"
)

// Result-page domains tried in order; the first one yielding candidates
// wins.
var defaultSearchDomains = []string{
	"https://www.google.com",
	"https://www.google.es",
	"https://www.google.com.mx",
}

// The result-page markup changes periodically, so several selector
// generations are tried before falling back to bare anchors.
var resultSelectors = []string{"div.g", "div.tF2Cxc", "div.yuRUbf", "div.rc"}

var snippetSelectors = []string{"div.VwiC3b", "div.IsZvec", "span.st", "div.s"}

// WebSearch scrapes search-result pages for one term at a time.
type WebSearch struct {
	client     *fetch.Client
	lang       string
	maxResults int
	domains    []string
}

// NewWebSearch builds the web-search source from cfg.
func NewWebSearch(client *fetch.Client, cfg *config.Config) *WebSearch {
	return &WebSearch{
		client:     client,
		lang:       cfg.Lang,
		maxResults: cfg.MaxResults,
		domains:    defaultSearchDomains,
	}
}

// Search queries each domain in order and returns the first non-empty
// candidate list, deduplicated by link. An empty list with a nil error means
// the term simply found nothing.
func (s *WebSearch) Search(ctx context.Context, term string) ([]models.Candidate, error) {
	var lastErr error
	for _, domain := range s.domains {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		searchURL := fmt.Sprintf("%s/search?hl=%s&q=%s&num=%d",
			domain, url.QueryEscape(s.lang), url.QueryEscape(term), s.maxResults)

		body, err := s.client.FetchBytes(ctx, searchURL)
		if err != nil {
			lastErr = err
			continue
		}
		candidates, err := parseResults(body)
		if err != nil {
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return dedupeByLink(candidates), nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("search %q: %w", term, lastErr)
	}
	return nil, nil
}

func parseResults(body []byte) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	for _, selector := range resultSelectors {
		blocks := doc.Find(selector)
		if blocks.Length() == 0 {
			continue
		}
		var candidates []models.Candidate
		blocks.Each(func(_ int, block *goquery.Selection) {
			link := block.Find("a[href]").First().AttrOr("href", "")
			if !acceptableLink(link) {
				return
			}
			title := strings.TrimSpace(block.Find("h3").First().Text())
			candidates = append(candidates, models.Candidate{
				Title:   title,
				Link:    link,
				Snippet: findSnippet(block),
			})
		})
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	// Selector-less fallback: any outbound anchor on the page.
	var candidates []models.Candidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		link := a.AttrOr("href", "")
		if !acceptableLink(link) {
			return
		}
		candidates = append(candidates, models.Candidate{
			Title: strings.TrimSpace(a.Text()),
			Link:  link,
		})
	})
	return candidates, nil
}

func findSnippet(block *goquery.Selection) string {
	for _, selector := range snippetSelectors {
		if sel := block.Find(selector).First(); sel.Length() > 0 {
			return strings.TrimSpace(sel.Text())
		}
	}
	return ""
}

func acceptableLink(link string) bool {
	return strings.HasPrefix(link, "http") && !strings.Contains(link, "google")
}

func dedupeByLink(candidates []models.Candidate) []models.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c.Link]; dup {
			continue
		}
		seen[c.Link] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}
